package models

import "gorm.io/gorm"

// CorruptedFileGroups is the sentinel stored as the sole file group when the
// workspace metadata cannot be read back after a result transfer.
const CorruptedFileGroups = "CORRUPTED FILE GROUPS"

// DefaultMetsBasename is used when a workspace record carries no basename.
const DefaultMetsBasename = "mets.xml"

// Workspace represents an OCR workspace directory tracked through staging to
// and from the cluster.
type Workspace struct {
	gorm.Model
	WorkspaceID  string         `json:"workspace_id" gorm:"uniqueIndex;not null"`
	UserID       string         `json:"user_id" gorm:"index;not null"`
	WorkspaceDir string         `json:"workspace_dir" gorm:"type:text"`
	MetsBasename string         `json:"mets_basename"`
	PagesAmount  int            `json:"pages_amount"`
	FileGroups   []string       `json:"file_groups" gorm:"serializer:json;type:jsonb"`
	State        WorkspaceState `json:"state" gorm:"index;not null"`
}

// MetsPath returns the path of the workspace's METS file, falling back to the
// default basename for records created before the field existed.
func (w *Workspace) MetsPath() string {
	basename := w.MetsBasename
	if basename == "" {
		basename = DefaultMetsBasename
	}
	return w.WorkspaceDir + "/" + basename
}
