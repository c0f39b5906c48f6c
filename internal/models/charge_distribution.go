package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var hundred = decimal.NewFromInt(100)

// ChargeDistribution allocates a percentage of a building's general charges
// to one unit over a validity window.
type ChargeDistribution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BuildingID uint      `gorm:"not null;uniqueIndex:idx_charge_distributions_key" json:"building_id"`
	Building   *Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE" json:"building,omitempty"`
	UnitID     uint      `gorm:"not null;uniqueIndex:idx_charge_distributions_key" json:"unit_id"`
	Unit       *Unit     `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"unit,omitempty"`

	DistributionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"distribution_percentage"`
	StartDate              datatypes.Date  `gorm:"not null;uniqueIndex:idx_charge_distributions_key" json:"start_date"`
	EndDate                *datatypes.Date `json:"end_date,omitempty"`
}

// InEffect reports whether the entry applies on date: start inclusive,
// end exclusive.
func (c *ChargeDistribution) InEffect(date datatypes.Date) bool {
	if CompareDays(c.StartDate, date) > 0 {
		return false
	}
	return c.EndDate == nil || CompareDays(date, *c.EndDate) < 0
}

// ShareOf returns this entry's part of total, rounded to cents.
func (c *ChargeDistribution) ShareOf(total decimal.Decimal) decimal.Decimal {
	return total.Mul(c.DistributionPercentage).Div(hundred).Round(2)
}
