package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitType is the kind of rentable space.
type UnitType string

const (
	UnitTypeApartment UnitType = "apartment"
	UnitTypeHouse     UnitType = "house"
	UnitTypeRoom      UnitType = "room"
)

// Valid reports whether t is a known unit type.
func (t UnitType) Valid() bool {
	switch t {
	case UnitTypeApartment, UnitTypeHouse, UnitTypeRoom:
		return true
	}
	return false
}

// Unit is a rentable space inside a building.
type Unit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BuildingID uint      `gorm:"not null;uniqueIndex:idx_units_building_number" json:"building_id"`
	Building   *Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"building,omitempty"`

	// Set only when the unit is owned separately from its building
	OwnerID *uint  `gorm:"index" json:"owner_id,omitempty"`
	Owner   *Owner `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"owner,omitempty"`

	Type        UnitType        `gorm:"size:20;not null" json:"type"`
	UnitNumber  string          `gorm:"size:50;not null;uniqueIndex:idx_units_building_number" json:"unit_number"`
	SizeM2      decimal.Decimal `gorm:"column:size_m2;type:decimal(8,2);not null" json:"size_m2"`
	Description string          `gorm:"type:text" json:"description,omitempty"`

	// Pricing
	MonthlyRent     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"monthly_rent"`
	SpecificCharges decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"specific_charges"`

	// Maintained from the unit's active leases, never written by callers
	IsAvailable bool `gorm:"not null;index" json:"is_available"`
}

// TotalMonthlyCost is rent plus the unit's specific charges.
func (u *Unit) TotalMonthlyCost() decimal.Decimal {
	return u.MonthlyRent.Add(u.SpecificCharges)
}

// EffectiveOwnerID resolves the unit owner, falling back to the building
// owner. Building must be loaded for the fallback to apply.
func (u *Unit) EffectiveOwnerID() *uint {
	if u.OwnerID != nil {
		return u.OwnerID
	}
	if u.Building != nil && u.Building.OwnerID != nil {
		return u.Building.OwnerID
	}
	return nil
}
