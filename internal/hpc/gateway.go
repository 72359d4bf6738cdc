// Package hpc talks to the remote batch cluster: submitting scheduler jobs
// over SSH and moving workspace data over SFTP.
package hpc

import (
	"context"
	"path"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// Batch submission profiles. The test profile trades the regular deadline for
// a short queue slot so integration runs do not wait behind production jobs.
const (
	// DeadlineRegular is the wall-clock limit for regular submissions
	DeadlineRegular = "48:00:00"
	// DeadlineTest is the wall-clock limit for test submissions
	DeadlineTest = "0:30:00"
	// QOSDefault is the quality-of-service class for regular submissions
	QOSDefault = "normal"
	// QOSShort is the quality-of-service class for test submissions
	QOSShort = "short"
)

// BatchScriptName is the batch script executed by the scheduler for every
// workflow job, staged once under the remote base directory.
const BatchScriptName = "submit_workflow_job.sh"

// Profile carries the deadline and quality-of-service class of a submission.
type Profile struct {
	Deadline string
	QOS      string
}

// SubmitProfile returns the submission profile: the short test profile when
// testBatch is set, the regular one otherwise.
func SubmitProfile(testBatch bool) Profile {
	if testBatch {
		return Profile{Deadline: DeadlineTest, QOS: QOSShort}
	}
	return Profile{Deadline: DeadlineRegular, QOS: QOSDefault}
}

// SubmitParams carries everything the batch script needs to run one workflow
// job on the cluster.
type SubmitParams struct {
	WorkflowJobID   string
	WorkspaceID     string
	ScriptPath      string
	MetsBasename    string
	InputFileGrp    string
	RemoveFileGrps  string
	ExecutableSteps []string
	// ProcessForks is the per-processor instance count, defaulting to the
	// requested cpu amount on the producer side.
	ProcessForks  int
	PagesAmount   int
	UseMetsServer bool
	CPUs          int
	RAM           int
	Partition     string
	Profile       Profile
}

// Executor submits batch jobs to the remote scheduler and queries their state.
type Executor interface {
	// SubmitBatchJob triggers a scheduler job and returns its scheduler id.
	SubmitBatchJob(ctx context.Context, params SubmitParams) (string, error)
	// JobState queries the live scheduler state of the given scheduler job.
	JobState(ctx context.Context, slurmJobID string) (models.SlurmState, error)
}

// Transfer moves workspace data and logs between the broker host and the
// cluster filesystem.
type Transfer interface {
	// PutWorkspace stages the workspace directory and the workflow script
	// into the job's remote staging directory and returns that directory.
	PutWorkspace(ctx context.Context, localDir string, scriptPath string, jobID string) (string, error)
	// GetWorkspace fetches the processed workspace from the job's remote
	// staging directory and unpacks it over the local workspace directory.
	GetWorkspace(ctx context.Context, jobID string, workspaceDir string, jobDir string) error
	// GetJobLog downloads the scheduler's execution log into the job dir.
	GetJobLog(ctx context.Context, slurmJobID string, jobID string, jobDir string) error
}

// RemoteJobDir derives the staging directory of a job on the cluster. It is
// a pure function of the base directory and the job id; nothing else about
// the remote layout is guaranteed.
func RemoteJobDir(baseDir, jobID string) string {
	return path.Join(baseDir, jobID)
}
