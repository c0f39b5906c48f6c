package models

import "time"

// Audit actions
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// AuditLog records one change to a lease or to a unit's availability.
// Rows written by the same service call share a CorrelationID.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey"`
	CorrelationID string    `gorm:"size:36;index;not null"`
	EntityType    string    `gorm:"size:50;not null"` // "lease", "unit"
	EntityID      uint      `gorm:"index"`
	Action        string    `gorm:"size:20;not null"`
	Field         string    `gorm:"size:50"`
	OldValue      string    `gorm:"type:text"`
	NewValue      string    `gorm:"type:text"`
	CreatedAt     time.Time
}
