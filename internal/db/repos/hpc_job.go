package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// HPCJobRepository provides access to the scheduler job handles
type HPCJobRepository struct {
	db *gorm.DB
}

// NewHPCJobRepository creates a new HPC job repository instance
func NewHPCJobRepository(db *gorm.DB) *HPCJobRepository {
	return &HPCJobRepository{db: db}
}

// Create creates the handle linking a workflow job to its scheduler job.
// The unique index on workflow_job_id makes a second create for the same
// job fail, keeping the handle one-to-one.
func (r *HPCJobRepository) Create(ctx context.Context, job *models.HPCJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByWorkflowJobID retrieves the handle for the given workflow job id
func (r *HPCJobRepository) GetByWorkflowJobID(ctx context.Context, workflowJobID string) (*models.HPCJob, error) {
	var job models.HPCJob
	err := r.db.WithContext(ctx).Where(&models.HPCJob{WorkflowJobID: workflowJobID}).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("hpc job not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hpc job: %w", err)
	}
	return &job, nil
}

// UpdateSlurmState sets the last observed scheduler state of the handle
func (r *HPCJobRepository) UpdateSlurmState(ctx context.Context, workflowJobID string, state models.SlurmState) error {
	return r.db.WithContext(ctx).Model(&models.HPCJob{}).
		Where(&models.HPCJob{WorkflowJobID: workflowJobID}).
		Update("slurm_state", state).Error
}
