package models

import "time"

const NotificationLeaseConfirmation = "lease_confirmation"

// Notification is an outbox row for a message addressed to a tenant.
// Delivery is left to whatever drains the table.
type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	TenantID  uint      `gorm:"index;not null"` // recipient
	LeaseID   *uint     `gorm:"index"`
	Type      string    `gorm:"size:50;not null"`
	Recipient string    `gorm:"size:254;not null"` // e-mail address at the time of writing
	Title     string    `gorm:"size:255"`
	Message   string    `gorm:"type:text"`
	SentAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
