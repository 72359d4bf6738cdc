package broker

import (
	"errors"

	"github.com/google/uuid"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// seedSubmitted runs a full successful submission so status tests start from
// a pending job with a persisted scheduler handle.
func (s *WorkerTestSuite) seedSubmitted(pages int) (*models.WorkflowJob, *models.Workspace) {
	job, workspace, _ := s.seedJob(pages)
	NewSubmitWorker(s.store, s.executor, s.transfer, false).Handle(s.ctx, submitBody(job, 4, 16))
	s.Require().Equal(models.JobStatePending, s.jobState(job.JobID))
	return job, workspace
}

// A completed scheduler job finalizes everything: results fetched, file
// groups re-derived from the METS metadata, workspace ready, job success,
// pages_succeed increased by exactly the workspace's page amount.
func (s *WorkerTestSuite) TestStatusCompleted() {
	job, workspace := s.seedSubmitted(24)
	s.executor.state = models.SlurmStateCompleted
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))

	s.Equal(models.JobStateSuccess, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))

	got, err := s.store.Workspaces.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal([]string{"DEFAULT", "OCR-D-BIN", "OCR-D-OCR"}, got.FileGroups)

	handle, err := s.store.HPCJobs.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.SlurmStateCompleted, handle.SlurmState)

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(24), stats.PagesSucceed)
	s.Equal(1, s.transfer.getCalls)
	s.Equal(1, s.transfer.logCalls)
}

// A failed scheduler job releases the workspace with its file groups
// unchanged and charges pages_failed.
func (s *WorkerTestSuite) TestStatusFailed() {
	job, workspace := s.seedSubmitted(10)
	s.executor.state = models.SlurmStateTimeout
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))

	s.Equal(models.JobStateFailed, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStateReady, s.workspaceState(workspace.WorkspaceID))

	got, err := s.store.Workspaces.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal([]string{"DEFAULT"}, got.FileGroups, "file groups stay unchanged on failure")

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(10), stats.PagesFailed)
	s.Zero(s.transfer.getCalls, "no result transfer for a failed job")
	s.Equal(1, s.transfer.logCalls)
}

// Redelivering a status check for a job already in a terminal state must
// not touch stats or file groups again.
func (s *WorkerTestSuite) TestStatusRedeliveryIsIdempotent() {
	job, workspace := s.seedSubmitted(24)
	s.executor.state = models.SlurmStateCompleted
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))
	worker.Handle(s.ctx, statusBody(job.JobID))

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(24), stats.PagesSucceed, "stats must not grow on redelivery")
	s.Equal(1, s.transfer.getCalls, "results must not be fetched twice")

	got, err := s.store.Workspaces.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal([]string{"DEFAULT", "OCR-D-BIN", "OCR-D-OCR"}, got.FileGroups)
}

// An in-flight scheduler state produces no internal transition.
func (s *WorkerTestSuite) TestStatusRunningIsNoOp() {
	job, workspace := s.seedSubmitted(5)
	s.executor.state = models.SlurmStateRunning
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))

	s.Equal(models.JobStatePending, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStatePending, s.workspaceState(workspace.WorkspaceID))

	// The observed scheduler state is still persisted on the handle
	handle, err := s.store.HPCJobs.GetByWorkflowJobID(s.ctx, job.JobID)
	s.Require().NoError(err)
	s.Equal(models.SlurmStateRunning, handle.SlurmState)
}

// Unreadable metadata must not abort the success transition: the sentinel
// marker is stored instead.
func (s *WorkerTestSuite) TestStatusCorruptedMets() {
	job, workspace := s.seedSubmitted(7)
	s.executor.state = models.SlurmStateCompleted
	s.transfer.metsOnGet = "<mets:mets><broken"
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))

	s.Equal(models.JobStateSuccess, s.jobState(job.JobID))
	got, err := s.store.Workspaces.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal([]string{models.CorruptedFileGroups}, got.FileGroups)

	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(int64(7), stats.PagesSucceed)
}

// Store read failures drop the message with no compensating action.
func (s *WorkerTestSuite) TestStatusUnknownJobIsDropped() {
	worker := NewStatusWorker(s.store, s.executor, s.transfer)
	worker.Handle(s.ctx, statusBody(uuid.NewString()))
	s.Empty(s.executor.stateCalls)
}

// Poll failures drop the message leaving all state untouched.
func (s *WorkerTestSuite) TestStatusPollFailureIsDropped() {
	job, workspace := s.seedSubmitted(6)
	s.executor.stateErr = errors.New("sacct: connection refused")
	worker := NewStatusWorker(s.store, s.executor, s.transfer)

	worker.Handle(s.ctx, statusBody(job.JobID))

	s.Equal(models.JobStatePending, s.jobState(job.JobID))
	s.Equal(models.WorkspaceStatePending, s.workspaceState(workspace.WorkspaceID))
	stats, err := s.store.Stats.Get(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Zero(stats.PagesFailed)
}
