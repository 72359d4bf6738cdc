package repos

import (
	"github.com/google/uuid"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

func (s *RepositoryTestSuite) TestHPCJobHandleIsUniquePerJob() {
	job := s.createTestJob("user-1")

	handle := &models.HPCJob{
		WorkflowJobID:      job.JobID,
		SlurmJobID:         "884422",
		SlurmState:         models.SlurmStatePending,
		BatchScriptPath:    "batch_scripts/submit_workflow_job.sh",
		RemoteWorkspaceDir: "/scratch/hpcbroker/jobs/" + job.JobID,
	}
	s.Require().NoError(s.hpcJobRepo.Create(s.ctx, handle))

	// A second handle for the same workflow job must be rejected
	second := &models.HPCJob{WorkflowJobID: job.JobID, SlurmJobID: "884423"}
	s.Error(s.hpcJobRepo.Create(s.ctx, second))

	got, err := s.hpcJobRepo.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal("884422", got.SlurmJobID)
}

func (s *RepositoryTestSuite) TestHPCJobSlurmStateUpdate() {
	job := s.createTestJob("user-1")
	handle := &models.HPCJob{
		WorkflowJobID: job.JobID,
		SlurmJobID:    "1001",
		SlurmState:    models.SlurmStatePending,
	}
	s.Require().NoError(s.hpcJobRepo.Create(s.ctx, handle))

	s.Require().NoError(s.hpcJobRepo.UpdateSlurmState(s.ctx, job.JobID, models.SlurmStateRunning))
	got, err := s.hpcJobRepo.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.SlurmStateRunning, got.SlurmState)
}

func (s *RepositoryTestSuite) TestHPCJobNotFound() {
	_, err := s.hpcJobRepo.GetByWorkflowJobID(s.ctx, uuid.NewString())
	s.Error(err)
	s.Contains(err.Error(), "not found")
}
