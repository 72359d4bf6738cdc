// Package broker implements the queue-consuming workers that move workflow
// jobs through their lifecycle: submission to the cluster and reconciliation
// of scheduler outcomes back into the store.
package broker

import (
	"gorm.io/gorm"

	"github.com/ocrforge/hpcbroker/internal/db/repos"
)

// Store bundles the repositories the workers coordinate across.
type Store struct {
	Jobs       *repos.WorkflowJobRepository
	Workspaces *repos.WorkspaceRepository
	Workflows  *repos.WorkflowRepository
	HPCJobs    *repos.HPCJobRepository
	Stats      *repos.UserStatsRepository
}

// NewStore creates the repository set on one database connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Jobs:       repos.NewWorkflowJobRepository(db),
		Workspaces: repos.NewWorkspaceRepository(db),
		Workflows:  repos.NewWorkflowRepository(db),
		HPCJobs:    repos.NewHPCJobRepository(db),
		Stats:      repos.NewUserStatsRepository(db),
	}
}
