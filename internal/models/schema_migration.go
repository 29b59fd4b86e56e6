package models

import "time"

// SchemaMigration is one applied entry in the append-only schema change
// ledger. The version string doubles as the primary key, so re-recording an
// applied version is impossible.
type SchemaMigration struct {
	Version     string    `gorm:"primaryKey;size:128" json:"version"`
	Description string    `gorm:"not null" json:"description"`
	AppliedAt   time.Time `gorm:"not null" json:"applied_at"`
}
