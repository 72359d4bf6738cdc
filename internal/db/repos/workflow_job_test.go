package repos

import (
	"github.com/google/uuid"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

func (s *RepositoryTestSuite) TestWorkflowJobLifecycle() {
	job := s.createTestJob("user-1")

	got, err := s.jobRepo.GetByJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateQueued, got.State)
	s.Equal("user-1", got.UserID)

	s.Require().NoError(s.jobRepo.UpdateState(s.ctx, job.JobID, models.JobStateTransferringToHPC))
	got, err = s.jobRepo.GetByJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.JobStateTransferringToHPC, got.State)

	got.State = models.JobStatePending
	s.Require().NoError(s.jobRepo.Update(s.ctx, got))
	got, err = s.jobRepo.GetByJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.JobStatePending, got.State)
}

func (s *RepositoryTestSuite) TestWorkflowJobNotFound() {
	_, err := s.jobRepo.GetByJobID(s.ctx, uuid.NewString())
	s.Error(err)
	s.Contains(err.Error(), "not found")
}

func (s *RepositoryTestSuite) TestWorkflowJobDuplicateJobID() {
	job := s.createTestJob("user-1")
	dup := &models.WorkflowJob{
		JobID:       job.JobID,
		UserID:      "user-2",
		WorkspaceID: uuid.NewString(),
		WorkflowID:  uuid.NewString(),
		State:       models.JobStateQueued,
	}
	s.Error(s.jobRepo.Create(s.ctx, dup))
}
