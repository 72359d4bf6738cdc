package models

import "gorm.io/gorm"

// UserStats aggregates per-user page counters. Both counters are monotone:
// they are only ever increased, by the workspace's page amount, once per
// terminal job outcome.
type UserStats struct {
	gorm.Model
	UserID       string `json:"user_id" gorm:"uniqueIndex;not null"`
	PagesSucceed int64  `json:"pages_succeed" gorm:"not null;default:0"`
	PagesFailed  int64  `json:"pages_failed" gorm:"not null;default:0"`
}
