package broker

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ocrforge/hpcbroker/internal/db/models"
	"github.com/ocrforge/hpcbroker/internal/hpc"
)

// A well-formed submission moves the job queued -> transferring -> pending
// and records the scheduler-assigned id on exactly one handle.
func (s *WorkerTestSuite) TestSubmitSuccess() {
	job, workspace, _ := s.seedJob(32)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	worker.Handle(s.ctx, submitBody(job, 4, 16))

	s.Equal(models.JobStatePending, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStatePending, s.workspaceState(workspace.WorkspaceID))

	handle, err := s.store.HPCJobs.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal("884422", handle.SlurmJobID)
	s.Equal(hpc.RemoteJobDir("/scratch/hpcbroker", job.JobID), handle.RemoteWorkspaceDir)

	s.Require().Len(s.executor.submitCalls, 1)
	params := s.executor.submitCalls[0]
	s.Equal(4, params.CPUs)
	s.Equal(16, params.RAM)
	s.Equal(4, params.ProcessForks, "process forks default to the requested cpu count")
	s.Equal(32, params.PagesAmount)
	s.Equal(hpc.DeadlineRegular, params.Profile.Deadline)
	s.Equal(1, s.transfer.putCalls)
}

func (s *WorkerTestSuite) TestSubmitTestProfile() {
	job, _, _ := s.seedJob(4)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, true)

	worker.Handle(s.ctx, submitBody(job, 2, 8))

	s.Require().Len(s.executor.submitCalls, 1)
	s.Equal(hpc.DeadlineTest, s.executor.submitCalls[0].Profile.Deadline)
	s.Equal(hpc.QOSShort, s.executor.submitCalls[0].Profile.QOS)
}

// A message missing cpus is a permanent producer bug: the job fails, no
// remote call is attempted and no handle is created.
func (s *WorkerTestSuite) TestSubmitMalformedMessage() {
	job, workspace, _ := s.seedJob(8)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	body := []byte(`{"user_id": "user-1", "workspace_id": "` + workspace.WorkspaceID +
		`", "workflow_id": "` + job.WorkflowID + `", "job_id": "` + job.JobID +
		`", "input_file_grp": "DEFAULT", "partition": "standard96", "ram": 16}`)
	worker.Handle(s.ctx, body)

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Empty(s.executor.submitCalls, "no remote call may happen for a malformed message")
	s.Zero(s.transfer.putCalls)
	_, err := s.store.HPCJobs.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Error(err, "no handle may exist for a failed decode")

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Zero(stats.PagesFailed, "decode failures do not touch page stats")
}

// A read failure fails the job and releases the workspace to ready.
func (s *WorkerTestSuite) TestSubmitMissingWorkflow() {
	job, workspace, _ := s.seedJob(8)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	body := []byte(`{"user_id": "user-1", "workspace_id": "` + workspace.WorkspaceID +
		`", "workflow_id": "` + uuid.NewString() + `", "job_id": "` + job.JobID +
		`", "input_file_grp": "DEFAULT", "partition": "standard96", "cpus": 4, "ram": 16}`)
	worker.Handle(s.ctx, body)

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))
	s.Empty(s.executor.submitCalls)
}

// A transfer failure after staging began charges the pages as failed.
func (s *WorkerTestSuite) TestSubmitTransferFailure() {
	job, workspace, _ := s.seedJob(12)
	s.transfer.putErr = errors.New("sftp: connection lost")
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	worker.Handle(s.ctx, submitBody(job, 4, 16))

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))
	s.Empty(s.executor.submitCalls)

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(12), stats.PagesFailed)
}

func (s *WorkerTestSuite) TestSubmitSchedulerFailure() {
	job, workspace, _ := s.seedJob(9)
	s.executor.submitErr = errors.New("sbatch: error: invalid partition")
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	worker.Handle(s.ctx, submitBody(job, 4, 16))

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))
	_, err := s.store.HPCJobs.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Error(err)

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(9), stats.PagesFailed)
}

// A shutdown signal observed at a checkpoint finalizes the in-flight
// message through the ordinary failure path: job failed, workspace released,
// no remote side effect started.
func (s *WorkerTestSuite) TestSubmitCancelledBeforeStaging() {
	job, workspace, _ := s.seedJob(8)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	worker.Handle(ctx, submitBody(job, 4, 16))

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))
	s.Zero(s.transfer.putCalls, "no staging may start after cancellation")
	s.Empty(s.executor.submitCalls)
}

// A body no decode can attribute to a job leaves the store untouched.
func (s *WorkerTestSuite) TestSubmitUnattributableGarbage() {
	job, _, _ := s.seedJob(3)
	worker := NewSubmitWorker(s.store, s.executor, s.transfer, false)

	worker.Handle(s.ctx, []byte(`not json at all`))

	s.Equal(models.JobStateQueued, s.jobState(job.JobID))
	s.Empty(s.executor.submitCalls)
}
