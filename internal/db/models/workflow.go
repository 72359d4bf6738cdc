package models

import "gorm.io/gorm"

// Workflow represents an uploaded processing script and the metadata the
// submit worker needs to build a batch invocation from it.
type Workflow struct {
	gorm.Model
	WorkflowID      string   `json:"workflow_id" gorm:"uniqueIndex;not null"`
	ScriptPath      string   `json:"script_path" gorm:"type:text;not null"`
	UsesMetsServer  bool     `json:"uses_mets_server"`
	ExecutableSteps []string `json:"executable_steps" gorm:"serializer:json;type:jsonb"`
}
