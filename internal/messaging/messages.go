// Package messaging defines the queue message schemas and the channel the
// workers consume them from.
package messaging

import (
	"encoding/json"
	"fmt"
)

// Queue names, one logical queue per worker role.
const (
	// QueueJobSubmissions carries submission requests for the submit worker
	QueueJobSubmissions = "hpcbroker.job.submissions"
	// QueueJobStatusChecks carries status-check requests for the status worker
	QueueJobStatusChecks = "hpcbroker.job.status_checks"
)

// SubmitJobMessage requests the submission of a workflow job to the cluster.
type SubmitJobMessage struct {
	UserID         string `json:"user_id"`
	WorkspaceID    string `json:"workspace_id"`
	WorkflowID     string `json:"workflow_id"`
	JobID          string `json:"job_id"`
	InputFileGrp   string `json:"input_file_grp"`
	RemoveFileGrps string `json:"remove_file_grps"`
	Partition      string `json:"partition"`
	CPUs           int    `json:"cpus"`
	RAM            int    `json:"ram"`
}

// CheckJobStatusMessage requests a reconciliation of one job's scheduler state.
type CheckJobStatusMessage struct {
	JobID string `json:"job_id"`
}

// submitJobEnvelope mirrors SubmitJobMessage with pointer fields so a missing
// field can be told apart from a zero value during validation.
type submitJobEnvelope struct {
	UserID         *string `json:"user_id"`
	WorkspaceID    *string `json:"workspace_id"`
	WorkflowID     *string `json:"workflow_id"`
	JobID          *string `json:"job_id"`
	InputFileGrp   *string `json:"input_file_grp"`
	RemoveFileGrps *string `json:"remove_file_grps"`
	Partition      *string `json:"partition"`
	CPUs           *int    `json:"cpus"`
	RAM            *int    `json:"ram"`
}

// DecodeSubmitJob parses and validates a submission message body. The result
// is either a fully populated message or an error; a partially populated
// message is never returned. Malformedness is a producer bug and is treated
// by the callers as a permanent failure.
func DecodeSubmitJob(body []byte) (*SubmitJobMessage, error) {
	var envelope submitJobEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed submission message: %w", err)
	}

	required := map[string]*string{
		"user_id":        envelope.UserID,
		"workspace_id":   envelope.WorkspaceID,
		"workflow_id":    envelope.WorkflowID,
		"job_id":         envelope.JobID,
		"input_file_grp": envelope.InputFileGrp,
		"partition":      envelope.Partition,
	}
	for field, value := range required {
		if value == nil || *value == "" {
			return nil, fmt.Errorf("submission message misses field: %s", field)
		}
	}
	if envelope.CPUs == nil {
		return nil, fmt.Errorf("submission message misses field: cpus")
	}
	if envelope.RAM == nil {
		return nil, fmt.Errorf("submission message misses field: ram")
	}
	if *envelope.CPUs <= 0 {
		return nil, fmt.Errorf("submission message has invalid cpus: %d", *envelope.CPUs)
	}
	if *envelope.RAM <= 0 {
		return nil, fmt.Errorf("submission message has invalid ram: %d", *envelope.RAM)
	}

	message := &SubmitJobMessage{
		UserID:       *envelope.UserID,
		WorkspaceID:  *envelope.WorkspaceID,
		WorkflowID:   *envelope.WorkflowID,
		JobID:        *envelope.JobID,
		InputFileGrp: *envelope.InputFileGrp,
		Partition:    *envelope.Partition,
		CPUs:         *envelope.CPUs,
		RAM:          *envelope.RAM,
	}
	if envelope.RemoveFileGrps != nil {
		message.RemoveFileGrps = *envelope.RemoveFileGrps
	}
	return message, nil
}

// DecodeCheckJobStatus parses and validates a status-check message body.
func DecodeCheckJobStatus(body []byte) (*CheckJobStatusMessage, error) {
	var envelope struct {
		JobID *string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed status message: %w", err)
	}
	if envelope.JobID == nil || *envelope.JobID == "" {
		return nil, fmt.Errorf("status message misses field: job_id")
	}
	return &CheckJobStatusMessage{JobID: *envelope.JobID}, nil
}

// JobID extracts the job id from a submission body without full validation,
// so a decode failure can still be attributed to a job where possible.
func JobID(body []byte) string {
	var envelope struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.JobID
}
