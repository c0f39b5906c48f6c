package models

import (
	"strings"
	"time"
)

// Owner is a natural or legal person owning buildings or individual units.
type Owner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null;index" json:"last_name"`
	Email     string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone     string `gorm:"size:20" json:"phone,omitempty"`
	Address   string `gorm:"type:text" json:"address,omitempty"`

	// Fiscal identifier used on owner statements
	TaxNumber string `gorm:"size:50" json:"tax_number,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`
}

// FullName returns "First Last".
func (o *Owner) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
