package api

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ocrforge/hpcbroker/internal/broker"
	"github.com/ocrforge/hpcbroker/internal/db/models"
	"github.com/ocrforge/hpcbroker/internal/logger"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// JobHandler serves the workflow-job endpoints.
type JobHandler struct {
	store   *broker.Store
	channel messaging.Channel
	jobsDir string
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(store *broker.Store, channel messaging.Channel, jobsDir string) *JobHandler {
	return &JobHandler{store: store, channel: channel, jobsDir: jobsDir}
}

// SubmitJobRequest is the body of POST /jobs.
type SubmitJobRequest struct {
	UserID         string `json:"user_id"`
	WorkspaceID    string `json:"workspace_id"`
	WorkflowID     string `json:"workflow_id"`
	InputFileGrp   string `json:"input_file_grp"`
	RemoveFileGrps string `json:"remove_file_grps"`
	Partition      string `json:"partition"`
	CPUs           int    `json:"cpus"`
	RAM            int    `json:"ram"`
}

// SubmitJob creates a queued workflow job and enqueues its submission
// message. The workers own every later state transition.
func (h *JobHandler) SubmitJob(c *fiber.Ctx) error {
	var request SubmitJobRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if request.UserID == "" || request.WorkspaceID == "" || request.WorkflowID == "" ||
		request.InputFileGrp == "" || request.Partition == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required field")
	}
	if request.CPUs <= 0 || request.RAM <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "cpus and ram must be positive")
	}

	if _, err := h.store.Workflows.GetByWorkflowID(c.Context(), request.WorkflowID); err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown workflow: %s", request.WorkflowID))
	}
	if _, err := h.store.Workspaces.GetByWorkspaceID(c.Context(), request.WorkspaceID); err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown workspace: %s", request.WorkspaceID))
	}

	jobID := uuid.NewString()
	job := &models.WorkflowJob{
		JobID:       jobID,
		UserID:      request.UserID,
		WorkspaceID: request.WorkspaceID,
		WorkflowID:  request.WorkflowID,
		JobDir:      filepath.Join(h.jobsDir, jobID),
		State:       models.JobStateQueued,
	}
	if err := h.store.Jobs.Create(c.Context(), job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if err := h.store.Workspaces.UpdateState(c.Context(), request.WorkspaceID, models.WorkspaceStateQueued); err != nil {
		return fmt.Errorf("failed to queue workspace: %w", err)
	}

	body, err := json.Marshal(messaging.SubmitJobMessage{
		UserID:         request.UserID,
		WorkspaceID:    request.WorkspaceID,
		WorkflowID:     request.WorkflowID,
		JobID:          jobID,
		InputFileGrp:   request.InputFileGrp,
		RemoveFileGrps: request.RemoveFileGrps,
		Partition:      request.Partition,
		CPUs:           request.CPUs,
		RAM:            request.RAM,
	})
	if err != nil {
		return fmt.Errorf("failed to encode submission message: %w", err)
	}
	if err := h.channel.Publish(c.Context(), messaging.QueueJobSubmissions, body); err != nil {
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}
	logger.WithJob(jobID).Infof("Enqueued submission for workspace %s", request.WorkspaceID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"resource_id": jobID,
		"state":       job.State,
	})
}

// JobStatus returns the stored job state and enqueues a status check, so
// polling clients drive the reconciliation cadence.
func (h *JobHandler) JobStatus(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "job id is required")
	}
	job, err := h.store.Jobs.GetByJobID(c.Context(), jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unknown job: %s", jobID))
	}

	// Terminal jobs need no further checks
	if !job.State.IsTerminal() {
		body, err := json.Marshal(messaging.CheckJobStatusMessage{JobID: jobID})
		if err != nil {
			return fmt.Errorf("failed to encode status message: %w", err)
		}
		if err := h.channel.Publish(c.Context(), messaging.QueueJobStatusChecks, body); err != nil {
			return fmt.Errorf("failed to enqueue status check: %w", err)
		}
	}

	return c.JSON(fiber.Map{
		"resource_id": job.JobID,
		"state":       job.State,
	})
}

// UserStats returns the aggregate page counters of one user.
func (h *JobHandler) UserStats(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user id is required")
	}
	stats, err := h.store.Stats.Get(c.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to get user stats: %w", err)
	}
	return c.JSON(fiber.Map{
		"user_id":       stats.UserID,
		"pages_succeed": stats.PagesSucceed,
		"pages_failed":  stats.PagesFailed,
	})
}
