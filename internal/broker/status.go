package broker

import (
	"context"

	"github.com/ocrforge/hpcbroker/internal/db/models"
	"github.com/ocrforge/hpcbroker/internal/hpc"
	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// StatusWorker consumes status-check requests: it polls the scheduler and,
// on a terminal outcome, reconciles results, workspace state and the user's
// page statistics.
type StatusWorker struct {
	store    *Store
	executor hpc.Executor
	transfer hpc.Transfer
}

// NewStatusWorker creates the status handler.
func NewStatusWorker(store *Store, executor hpc.Executor, transfer hpc.Transfer) *StatusWorker {
	return &StatusWorker{store: store, executor: executor, transfer: transfer}
}

// Worker binds the handler to the status queue on the given channel.
func (w *StatusWorker) Worker(channel messaging.Channel) *Worker {
	return NewWorker(channel, messaging.QueueJobStatusChecks, w.Handle)
}

// Handle processes one status-check message. Read and poll failures drop the
// message without compensating action: without a workspace backup mechanism
// there is nothing safe to roll back, so the loss of retry here is
// deliberate. The surrounding worker loop acknowledges on every path.
func (w *StatusWorker) Handle(ctx context.Context, body []byte) {
	message, err := messaging.DecodeCheckJobStatus(body)
	if err != nil {
		logger.Errorf("Failed to decode status message, dropping: %v", permanent(err))
		return
	}
	log := logger.WithJob(message.JobID)
	log.Debugf("Consumed status-check message")

	job, err := w.store.Jobs.GetByJobID(ctx, message.JobID)
	if err != nil {
		log.Warnf("Dropping status check: %v", permanent(err))
		return
	}
	workspace, err := w.store.Workspaces.GetByWorkspaceID(ctx, job.WorkspaceID)
	if err != nil {
		log.Warnf("Dropping status check: %v", permanent(err))
		return
	}
	handle, err := w.store.HPCJobs.GetByWorkflowJobID(ctx, message.JobID)
	if err != nil {
		log.Warnf("Dropping status check: %v", permanent(err))
		return
	}

	slurmState, err := w.executor.JobState(ctx, handle.SlurmJobID)
	if err != nil {
		log.Warnf("Failed to poll scheduler state, dropping status check: %v", permanent(err))
		return
	}
	if slurmState != handle.SlurmState {
		log.Infof("Scheduler job %s state: %s -> %s", handle.SlurmJobID, handle.SlurmState, slurmState)
		if err := w.store.HPCJobs.UpdateSlurmState(ctx, message.JobID, slurmState); err != nil {
			log.Warnf("Failed to persist scheduler state, dropping status check: %v", err)
			return
		}
	}

	newJobState, changed := slurmState.JobState()
	if !changed || newJobState == job.State {
		log.Debugf("No internal transition for scheduler state %s", slurmState)
		return
	}
	// Redelivery guard: a job already reconciled to a terminal state must
	// not have its stats or file groups touched again.
	if job.State.IsTerminal() {
		log.Infof("Job already in terminal state %s, dropping status check", job.State)
		return
	}
	log.Infof("Job state: %s -> %s", job.State, newJobState)

	switch newJobState {
	case models.JobStateSuccess:
		w.reconcileSuccess(ctx, job, workspace, handle)
	case models.JobStateFailed:
		w.reconcileFailure(ctx, job, workspace, handle)
	default:
		if err := w.store.Jobs.UpdateState(ctx, job.JobID, newJobState); err != nil {
			log.Warnf("Failed to update job state: %v", err)
		}
	}
}

// reconcileSuccess downloads results, re-derives the workspace file groups
// and finalizes job, workspace and stats for a succeeded scheduler job.
func (w *StatusWorker) reconcileSuccess(ctx context.Context, job *models.WorkflowJob, workspace *models.Workspace, handle *models.HPCJob) {
	log := logger.WithJob(job.JobID)
	// Once the outcome is known the reconciliation runs to completion even
	// through a shutdown; transfers are awaited, not cancelled.
	ctx = context.WithoutCancel(ctx)

	if err := w.transfer.GetJobLog(ctx, handle.SlurmJobID, job.JobID, job.JobDir); err != nil {
		log.Warnf("Failed to download execution log: %v", err)
	}
	if err := w.store.Workspaces.UpdateState(ctx, workspace.WorkspaceID, models.WorkspaceStateTransferringFromHPC); err != nil {
		log.Warnf("Failed to update workspace state: %v", err)
		return
	}
	if err := w.store.Jobs.UpdateState(ctx, job.JobID, models.JobStateTransferringFromHPC); err != nil {
		log.Warnf("Failed to update job state: %v", err)
		return
	}
	if err := w.transfer.GetWorkspace(ctx, job.JobID, workspace.WorkspaceDir, job.JobDir); err != nil {
		log.Warnf("Failed to fetch result workspace: %v", err)
		return
	}

	// The transition must not abort on unreadable metadata; the sentinel
	// marks the workspace for manual inspection instead.
	fileGroups, err := ExtractFileGroups(workspace.MetsPath())
	if err != nil {
		log.Errorf("Failed to extract the processed file groups: %v", err)
		fileGroups = []string{models.CorruptedFileGroups}
	}
	if err := w.store.Workspaces.SetReady(ctx, workspace.WorkspaceID, fileGroups); err != nil {
		log.Warnf("Failed to finalize workspace: %v", err)
		return
	}
	if err := w.store.Jobs.UpdateState(ctx, job.JobID, models.JobStateSuccess); err != nil {
		log.Warnf("Failed to finalize job: %v", err)
		return
	}
	stats, err := w.store.Stats.AddPagesSucceed(ctx, workspace.UserID, workspace.PagesAmount)
	if err != nil {
		log.Errorf("Failed to increase pages_succeed stat: %v", err)
		return
	}
	log.Infof("Increased pages_succeed stat by %d, total: %d", workspace.PagesAmount, stats.PagesSucceed)
}

// reconcileFailure downloads the execution log and finalizes job, workspace
// and stats for a failed scheduler job. File groups stay as they were.
func (w *StatusWorker) reconcileFailure(ctx context.Context, job *models.WorkflowJob, workspace *models.Workspace, handle *models.HPCJob) {
	log := logger.WithJob(job.JobID)
	ctx = context.WithoutCancel(ctx)

	if err := w.transfer.GetJobLog(ctx, handle.SlurmJobID, job.JobID, job.JobDir); err != nil {
		log.Warnf("Failed to download execution log: %v", err)
	}
	if err := w.store.Workspaces.SetReady(ctx, workspace.WorkspaceID, nil); err != nil {
		log.Warnf("Failed to release workspace: %v", err)
		return
	}
	if err := w.store.Jobs.UpdateState(ctx, job.JobID, models.JobStateFailed); err != nil {
		log.Warnf("Failed to finalize job: %v", err)
		return
	}
	stats, err := w.store.Stats.AddPagesFailed(ctx, workspace.UserID, workspace.PagesAmount)
	if err != nil {
		log.Errorf("Failed to increase pages_failed stat: %v", err)
		return
	}
	log.Infof("Increased pages_failed stat by %d, total: %d", workspace.PagesAmount, stats.PagesFailed)
}
