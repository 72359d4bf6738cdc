package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// WorkflowRepository provides access to workflow records
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new workflow repository instance
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create creates a new workflow record
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	return r.db.WithContext(ctx).Create(workflow).Error
}

// GetByWorkflowID retrieves a workflow by its workflow id
func (r *WorkflowRepository) GetByWorkflowID(ctx context.Context, workflowID string) (*models.Workflow, error) {
	var workflow models.Workflow
	err := r.db.WithContext(ctx).Where(&models.Workflow{WorkflowID: workflowID}).First(&workflow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workflow not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &workflow, nil
}
