package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// LeaseType selects the billing model of a lease.
type LeaseType string

const (
	LeaseTypeStandard   LeaseType = "standard"
	LeaseTypeColocation LeaseType = "colocation"
)

// Valid reports whether t is a known lease type.
func (t LeaseType) Valid() bool {
	return t == LeaseTypeStandard || t == LeaseTypeColocation
}

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseStatusDraft      LeaseStatus = "draft"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusTerminated LeaseStatus = "terminated"
	LeaseStatusCancelled  LeaseStatus = "cancelled"
)

// Valid reports whether s is a known lease status.
func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseStatusDraft, LeaseStatusActive, LeaseStatusTerminated, LeaseStatusCancelled:
		return true
	}
	return false
}

// LeaseContract binds a tenant to a unit over a date range.
type LeaseContract struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Public identifier, stable across renumbering and exports
	Reference string `gorm:"size:36;uniqueIndex;not null" json:"reference"`

	UnitID   uint    `gorm:"not null;index" json:"unit_id"`
	Unit     *Unit   `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"unit,omitempty"`
	TenantID uint    `gorm:"not null;index" json:"tenant_id"`
	Tenant   *Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`

	LeaseType           LeaseType `gorm:"size:20;not null" json:"lease_type"`
	HasSolidarityClause bool      `gorm:"not null" json:"has_solidarity_clause"`

	// Dates; a nil EndDate is an open-ended lease
	StartDate datatypes.Date  `gorm:"not null;index" json:"start_date"`
	EndDate   *datatypes.Date `json:"end_date,omitempty"`

	// Amounts
	FlatRateCharges decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"flat_rate_charges"`
	DepositAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"deposit_amount"`

	Status           LeaseStatus `gorm:"size:20;not null;index" json:"status"`
	ContractDocument string      `gorm:"size:255" json:"contract_document,omitempty"`
	Notes            string      `gorm:"type:text" json:"notes,omitempty"`
}

// IsActive reports whether the lease holds its unit, regardless of dates.
func (l *LeaseContract) IsActive() bool {
	return l.Status == LeaseStatusActive
}

// IsCurrent reports whether the lease is active and today falls inside its
// date range.
func (l *LeaseContract) IsCurrent(today time.Time) bool {
	if !l.IsActive() {
		return false
	}
	d := Day(today)
	if CompareDays(l.StartDate, d) > 0 {
		return false
	}
	return l.EndDate == nil || CompareDays(*l.EndDate, d) >= 0
}

// UsesFlatRate reports whether the flat-rate colocation billing model applies.
func (l *LeaseContract) UsesFlatRate() bool {
	return l.LeaseType == LeaseTypeColocation && l.FlatRateCharges.IsPositive()
}

// TotalMonthlyAmount is the amount billed monthly for unit under this lease.
// Flat-rate colocation replaces the unit's specific charges.
func (l *LeaseContract) TotalMonthlyAmount(unit *Unit) decimal.Decimal {
	if l.UsesFlatRate() {
		return unit.MonthlyRent.Add(l.FlatRateCharges)
	}
	return unit.TotalMonthlyCost()
}

// Overlaps reports whether [start, end] intersects the lease's range, both
// bounds inclusive. Any open end counts as an overlap.
func (l *LeaseContract) Overlaps(start datatypes.Date, end *datatypes.Date) bool {
	if end == nil || l.EndDate == nil {
		return true
	}
	return CompareDays(start, *l.EndDate) <= 0 && CompareDays(*end, l.StartDate) >= 0
}

// Period renders the lease date range.
func (l *LeaseContract) Period() string {
	return fmt.Sprintf("%s to %s", FormatDay(l.StartDate), FormatDayPtr(l.EndDate))
}
