package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Building groups rentable units under one address.
type Building struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:200;not null;index" json:"name"`
	Address     string `gorm:"type:text;not null" json:"address"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Owner is optional; units without their own owner inherit this one.
	OwnerID *uint  `gorm:"index" json:"owner_id,omitempty"`
	Owner   *Owner `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"owner,omitempty"`

	// Building-wide charges split between units by ChargeDistribution entries
	TotalGeneralCharges decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_general_charges"`
	HasIndividualMeters bool            `gorm:"not null" json:"has_individual_meters"`
}

// OccupancyStats summarizes unit availability for a building.
type OccupancyStats struct {
	BuildingID uint  `json:"building_id"`
	Total      int64 `json:"total_units"`
	Available  int64 `json:"available_units"`
	Rented     int64 `json:"rented_units"`
}

// OccupancyRate returns the rented share of units in [0,1].
func (s OccupancyStats) OccupancyRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Rented) / float64(s.Total)
}
