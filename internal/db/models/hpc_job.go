package models

import "gorm.io/gorm"

// HPCJob links a workflow job to the batch job the scheduler assigned for it.
// Created exactly once by the submit worker after a successful submission;
// the unique index on WorkflowJobID enforces at most one handle per job.
// Only the status worker updates it afterwards.
type HPCJob struct {
	gorm.Model
	WorkflowJobID   string     `json:"workflow_job_id" gorm:"uniqueIndex;not null"`
	SlurmJobID      string     `json:"slurm_job_id" gorm:"index;not null"`
	SlurmState      SlurmState `json:"slurm_state"`
	BatchScriptPath string     `json:"batch_script_path" gorm:"type:text"`
	RemoteWorkspaceDir string  `json:"remote_workspace_dir" gorm:"type:text"`
}
