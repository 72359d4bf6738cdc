package models

import "fmt"

// JobState represents the lifecycle state of a workflow job.
type JobState string

// Workflow job states
const (
	// JobStateQueued indicates the job is waiting for a submit worker
	JobStateQueued JobState = "queued"
	// JobStateTransferringToHPC indicates the workspace is being staged to the cluster
	JobStateTransferringToHPC JobState = "transferring_to_hpc"
	// JobStatePending indicates the batch job is submitted and waiting in the scheduler
	JobStatePending JobState = "pending"
	// JobStateRunning indicates the batch job is executing on the cluster.
	// Observed through the scheduler state on the job handle; the conversion
	// table never produces it as an internal transition.
	JobStateRunning JobState = "running"
	// JobStateTransferringFromHPC indicates results are being fetched from the cluster
	JobStateTransferringFromHPC JobState = "transferring_from_hpc"
	// JobStateSuccess indicates the job finished and its results were reconciled
	JobStateSuccess JobState = "success"
	// JobStateFailed indicates the job failed at any stage
	JobStateFailed JobState = "failed"
)

// IsTerminal reports whether no further lifecycle transition occurs for the job.
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailed
}

func (s JobState) String() string {
	return string(s)
}

// ParseJobState converts a string into a JobState
func ParseJobState(str string) (JobState, error) {
	switch JobState(str) {
	case JobStateQueued, JobStateTransferringToHPC, JobStatePending, JobStateRunning,
		JobStateTransferringFromHPC, JobStateSuccess, JobStateFailed:
		return JobState(str), nil
	}
	return "", fmt.Errorf("invalid job state: %s", str)
}

// WorkspaceState represents the lifecycle state of a workspace.
type WorkspaceState string

// Workspace states. Ready is the sole terminal state and is reached on both
// job success and job failure.
const (
	WorkspaceStateQueued              WorkspaceState = "queued"
	WorkspaceStateTransferringToHPC   WorkspaceState = "transferring_to_hpc"
	WorkspaceStatePending             WorkspaceState = "pending"
	WorkspaceStateTransferringFromHPC WorkspaceState = "transferring_from_hpc"
	WorkspaceStateReady               WorkspaceState = "ready"
)

func (s WorkspaceState) String() string {
	return string(s)
}

// ParseWorkspaceState converts a string into a WorkspaceState
func ParseWorkspaceState(str string) (WorkspaceState, error) {
	switch WorkspaceState(str) {
	case WorkspaceStateQueued, WorkspaceStateTransferringToHPC, WorkspaceStatePending,
		WorkspaceStateTransferringFromHPC, WorkspaceStateReady:
		return WorkspaceState(str), nil
	}
	return "", fmt.Errorf("invalid workspace state: %s", str)
}

// SlurmState mirrors the native vocabulary of the batch scheduler.
type SlurmState string

// Native scheduler states as reported by sacct/squeue.
const (
	SlurmStatePending     SlurmState = "PENDING"
	SlurmStateConfiguring SlurmState = "CONFIGURING"
	SlurmStateRequeued    SlurmState = "REQUEUED"
	SlurmStateResizing    SlurmState = "RESIZING"
	SlurmStateSuspended   SlurmState = "SUSPENDED"
	SlurmStateRunning     SlurmState = "RUNNING"
	SlurmStateCompleting  SlurmState = "COMPLETING"
	SlurmStateCompleted   SlurmState = "COMPLETED"
	SlurmStateBootFail    SlurmState = "BOOT_FAIL"
	SlurmStateCancelled   SlurmState = "CANCELLED"
	SlurmStateDeadline    SlurmState = "DEADLINE"
	SlurmStateFailed      SlurmState = "FAILED"
	SlurmStateNodeFail    SlurmState = "NODE_FAIL"
	SlurmStateOutOfMemory SlurmState = "OUT_OF_MEMORY"
	SlurmStatePreempted   SlurmState = "PREEMPTED"
	SlurmStateTimeout     SlurmState = "TIMEOUT"
	SlurmStateRevoked     SlurmState = "REVOKED"
)

// AllSlurmStates lists every scheduler state the conversion table covers.
var AllSlurmStates = []SlurmState{
	SlurmStatePending, SlurmStateConfiguring, SlurmStateRequeued, SlurmStateResizing,
	SlurmStateSuspended, SlurmStateRunning, SlurmStateCompleting, SlurmStateCompleted,
	SlurmStateBootFail, SlurmStateCancelled, SlurmStateDeadline, SlurmStateFailed,
	SlurmStateNodeFail, SlurmStateOutOfMemory, SlurmStatePreempted, SlurmStateTimeout,
	SlurmStateRevoked,
}

func (s SlurmState) String() string {
	return string(s)
}

// ParseSlurmState converts a scheduler-reported string into a SlurmState.
func ParseSlurmState(str string) (SlurmState, error) {
	for _, state := range AllSlurmStates {
		if SlurmState(str) == state {
			return state, nil
		}
	}
	return "", fmt.Errorf("invalid slurm state: %s", str)
}

// JobState maps a scheduler state to the internal job state. The mapping is
// total over AllSlurmStates: every scheduler state yields either a defined
// internal state, or changed == false meaning the internal state is left as
// it is (the job is still in flight on the cluster).
func (s SlurmState) JobState() (state JobState, changed bool) {
	switch s {
	case SlurmStatePending, SlurmStateConfiguring, SlurmStateRequeued,
		SlurmStateResizing, SlurmStateSuspended:
		return JobStatePending, true
	case SlurmStateRunning, SlurmStateCompleting:
		return "", false
	case SlurmStateCompleted:
		return JobStateSuccess, true
	case SlurmStateBootFail, SlurmStateCancelled, SlurmStateDeadline, SlurmStateFailed,
		SlurmStateNodeFail, SlurmStateOutOfMemory, SlurmStatePreempted,
		SlurmStateTimeout, SlurmStateRevoked:
		return JobStateFailed, true
	}
	// Unlisted states never reach here: ParseSlurmState rejects them at the
	// gateway boundary.
	return "", false
}
