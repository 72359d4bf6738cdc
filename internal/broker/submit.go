package broker

import (
	"context"

	"github.com/ocrforge/hpcbroker/internal/db/models"
	"github.com/ocrforge/hpcbroker/internal/hpc"
	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// SubmitWorker consumes submission requests: it stages the workspace to the
// cluster, triggers the batch job and records the scheduler-assigned id.
type SubmitWorker struct {
	store    *Store
	executor hpc.Executor
	transfer hpc.Transfer
	// testBatch selects the short test submission profile
	testBatch bool
}

// NewSubmitWorker creates the submission handler.
func NewSubmitWorker(store *Store, executor hpc.Executor, transfer hpc.Transfer, testBatch bool) *SubmitWorker {
	return &SubmitWorker{store: store, executor: executor, transfer: transfer, testBatch: testBatch}
}

// Worker binds the handler to the submission queue on the given channel.
func (w *SubmitWorker) Worker(channel messaging.Channel) *Worker {
	return NewWorker(channel, messaging.QueueJobSubmissions, w.Handle)
}

// Handle processes one submission message. Every path ends with the message
// acknowledged by the surrounding worker loop; failures are finalized here
// (job failed, workspace released) and never requeued, because a replay
// after partial remote staging is unsafe.
func (w *SubmitWorker) Handle(ctx context.Context, body []byte) {
	message, err := messaging.DecodeSubmitJob(body)
	if err != nil {
		// Malformedness is a producer bug, not a transient condition
		herr := permanent(err)
		logger.Errorf("Failed to decode submission message: %v", herr)
		if jobID := messaging.JobID(body); jobID != "" {
			w.failJob(ctx, jobID)
		}
		return
	}
	log := logger.WithJob(message.JobID)
	log.Infof("Consumed submission message for workspace %s", message.WorkspaceID)

	workflow, err := w.store.Workflows.GetByWorkflowID(ctx, message.WorkflowID)
	if err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	workspace, err := w.store.Workspaces.GetByWorkspaceID(ctx, message.WorkspaceID)
	if err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}

	// Checkpoint before any remote side effect
	if err := ctx.Err(); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}

	// Stage the workspace and the workflow script to the cluster
	if err := w.store.Workspaces.UpdateState(ctx, message.WorkspaceID, models.WorkspaceStateTransferringToHPC); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	if err := w.store.Jobs.UpdateState(ctx, message.JobID, models.JobStateTransferringToHPC); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	remoteDir, err := w.transfer.PutWorkspace(ctx, workspace.WorkspaceDir, workflow.ScriptPath, message.JobID)
	if err != nil {
		w.failPages(ctx, message, workspace)
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}

	// Checkpoint between staging and submission
	if err := ctx.Err(); err != nil {
		w.failPages(ctx, message, workspace)
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}

	metsBasename := workspace.MetsBasename
	if metsBasename == "" {
		metsBasename = models.DefaultMetsBasename
	}
	params := hpc.SubmitParams{
		WorkflowJobID:   message.JobID,
		WorkspaceID:     message.WorkspaceID,
		ScriptPath:      workflow.ScriptPath,
		MetsBasename:    metsBasename,
		InputFileGrp:    message.InputFileGrp,
		RemoveFileGrps:  message.RemoveFileGrps,
		ExecutableSteps: workflow.ExecutableSteps,
		// One process instance per requested cpu gives the best throughput
		ProcessForks:  message.CPUs,
		PagesAmount:   workspace.PagesAmount,
		UseMetsServer: workflow.UsesMetsServer,
		CPUs:          message.CPUs,
		RAM:           message.RAM,
		Partition:     message.Partition,
		Profile:       hpc.SubmitProfile(w.testBatch),
	}
	slurmJobID, err := w.executor.SubmitBatchJob(ctx, params)
	if err != nil {
		w.failPages(ctx, message, workspace)
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	log.Infof("Batch job submitted, scheduler id: %s", slurmJobID)

	handle := &models.HPCJob{
		WorkflowJobID:      message.JobID,
		SlurmJobID:         slurmJobID,
		SlurmState:         models.SlurmStatePending,
		BatchScriptPath:    hpc.BatchScriptName,
		RemoteWorkspaceDir: remoteDir,
	}
	if err := w.store.HPCJobs.Create(ctx, handle); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}

	if err := w.store.Jobs.UpdateState(ctx, message.JobID, models.JobStatePending); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	if err := w.store.Workspaces.UpdateState(ctx, message.WorkspaceID, models.WorkspaceStatePending); err != nil {
		w.finalizeFailure(ctx, message, true, permanent(err))
		return
	}
	log.Infof("Job moved to state %s", models.JobStatePending)
}

// finalizeFailure is the single failure path: mark the job failed and, when
// applicable, release the workspace to its terminal ready state. It is also
// invoked on shutdown for an in-flight message, so the writes run on a
// context that survives cancellation.
func (w *SubmitWorker) finalizeFailure(ctx context.Context, message *messaging.SubmitJobMessage, setWsReady bool, herr *handlerError) {
	log := logger.WithJob(message.JobID)
	log.Errorf("Finalizing submission as failed: %v", herr)

	ctx = context.WithoutCancel(ctx)
	if err := w.store.Jobs.UpdateState(ctx, message.JobID, models.JobStateFailed); err != nil {
		log.Errorf("Failed to mark job failed: %v", err)
	}
	if setWsReady {
		if err := w.store.Workspaces.UpdateState(ctx, message.WorkspaceID, models.WorkspaceStateReady); err != nil {
			log.Errorf("Failed to release workspace %s: %v", message.WorkspaceID, err)
		}
	}
}

// failJob marks a job failed when nothing else about the message is usable.
func (w *SubmitWorker) failJob(ctx context.Context, jobID string) {
	if err := w.store.Jobs.UpdateState(context.WithoutCancel(ctx), jobID, models.JobStateFailed); err != nil {
		logger.WithJob(jobID).Errorf("Failed to mark job failed: %v", err)
	}
}

// failPages charges the failed submission against the user's page counter.
func (w *SubmitWorker) failPages(ctx context.Context, message *messaging.SubmitJobMessage, workspace *models.Workspace) {
	log := logger.WithJob(message.JobID)
	stats, err := w.store.Stats.AddPagesFailed(context.WithoutCancel(ctx), message.UserID, workspace.PagesAmount)
	if err != nil {
		log.Errorf("Failed to increase pages_failed stat: %v", err)
		return
	}
	log.Errorf("Increased pages_failed stat by %d, total: %d", workspace.PagesAmount, stats.PagesFailed)
}
