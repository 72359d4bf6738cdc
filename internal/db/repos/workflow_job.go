// Package repos provides access to the persisted broker entities.
package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// WorkflowJobRepository provides access to workflow job records
type WorkflowJobRepository struct {
	db *gorm.DB
}

// NewWorkflowJobRepository creates a new workflow job repository instance
func NewWorkflowJobRepository(db *gorm.DB) *WorkflowJobRepository {
	return &WorkflowJobRepository{db: db}
}

// Create creates a new workflow job record
func (r *WorkflowJobRepository) Create(ctx context.Context, job *models.WorkflowJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByJobID retrieves a workflow job by its job id
func (r *WorkflowJobRepository) GetByJobID(ctx context.Context, jobID string) (*models.WorkflowJob, error) {
	var job models.WorkflowJob
	err := r.db.WithContext(ctx).Where(&models.WorkflowJob{JobID: jobID}).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow job not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow job: %w", err)
	}
	return &job, nil
}

// Update replaces the stored record with the given one
func (r *WorkflowJobRepository) Update(ctx context.Context, job *models.WorkflowJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// UpdateState sets the lifecycle state of the job with the given job id
func (r *WorkflowJobRepository) UpdateState(ctx context.Context, jobID string, state models.JobState) error {
	return r.db.WithContext(ctx).Model(&models.WorkflowJob{}).
		Where(&models.WorkflowJob{JobID: jobID}).
		Update("state", state).Error
}
