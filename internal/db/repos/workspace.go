package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/models"
)

// WorkspaceRepository provides access to workspace records
type WorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new workspace repository instance
func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Create creates a new workspace record
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Create(workspace).Error
}

// GetByWorkspaceID retrieves a workspace by its workspace id
func (r *WorkspaceRepository) GetByWorkspaceID(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	var workspace models.Workspace
	err := r.db.WithContext(ctx).Where(&models.Workspace{WorkspaceID: workspaceID}).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("workspace not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &workspace, nil
}

// Update replaces the stored record with the given one
func (r *WorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Save(workspace).Error
}

// UpdateState sets the lifecycle state of the workspace with the given id
func (r *WorkspaceRepository) UpdateState(ctx context.Context, workspaceID string, state models.WorkspaceState) error {
	return r.db.WithContext(ctx).Model(&models.Workspace{}).
		Where(&models.Workspace{WorkspaceID: workspaceID}).
		Update("state", state).Error
}

// SetReady moves the workspace into its terminal ready state, replacing the
// file group listing when one is given. The read-modify-write matches the
// full-record update semantics of the store; there is no field-level
// concurrency control.
func (r *WorkspaceRepository) SetReady(ctx context.Context, workspaceID string, fileGroups []string) error {
	workspace, err := r.GetByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return err
	}
	workspace.State = models.WorkspaceStateReady
	if fileGroups != nil {
		workspace.FileGroups = fileGroups
	}
	return r.Update(ctx, workspace)
}
