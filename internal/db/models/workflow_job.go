// Package models defines the persisted entities and their state vocabulary.
package models

import "gorm.io/gorm"

// WorkflowJob represents one document-processing job submitted against a
// workflow and a workspace. Jobs are created by the API layer in the queued
// state and mutated only by the submit and status workers afterwards.
type WorkflowJob struct {
	gorm.Model
	JobID       string   `json:"job_id" gorm:"uniqueIndex;not null"`
	UserID      string   `json:"user_id" gorm:"index;not null"`
	WorkspaceID string   `json:"workspace_id" gorm:"not null"`
	WorkflowID  string   `json:"workflow_id" gorm:"not null"`
	JobDir      string   `json:"job_dir" gorm:"type:text"`
	State       JobState `json:"state" gorm:"index;not null"`
}
