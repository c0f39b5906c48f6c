package models

import (
	"strings"
	"time"
)

// Tenant is a person renting one or more units.
type Tenant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null;index" json:"last_name"`
	Email     string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone     string `gorm:"size:20" json:"phone,omitempty"`

	// Reference to a stored identity document, not the document itself
	IDDocument       string `gorm:"column:id_document;size:255" json:"id_document,omitempty"`
	EmergencyContact string `gorm:"size:200" json:"emergency_contact,omitempty"`
	Notes            string `gorm:"type:text" json:"notes,omitempty"`
}

// FullName returns "First Last".
func (t *Tenant) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}
