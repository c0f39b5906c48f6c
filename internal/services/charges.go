package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChargeService answers billing questions about units and leases.
type ChargeService struct {
	db *gorm.DB
}

func NewChargeService(db *gorm.DB) *ChargeService {
	return &ChargeService{db: db}
}

// UnitMonthlyCost returns rent plus specific charges of a unit.
func (s *ChargeService) UnitMonthlyCost(ctx context.Context, unitID uint) (decimal.Decimal, error) {
	var unit models.Unit
	if err := s.first(ctx, &unit, "unit", unitID); err != nil {
		return decimal.Zero, err
	}
	return unit.TotalMonthlyCost(), nil
}

// LeaseMonthlyAmount returns the amount billed monthly under a lease.
func (s *ChargeService) LeaseMonthlyAmount(ctx context.Context, leaseID uint) (decimal.Decimal, error) {
	var lease models.LeaseContract
	if err := s.first(ctx, &lease, "lease", leaseID, "Unit"); err != nil {
		return decimal.Zero, err
	}
	if lease.Unit == nil {
		return decimal.Zero, &ReferenceError{Entity: "unit", ID: lease.UnitID}
	}
	return lease.TotalMonthlyAmount(lease.Unit), nil
}

// EffectiveOwner returns the ID of the owner attributed to a unit, or nil
// when neither the unit nor its building has one.
func (s *ChargeService) EffectiveOwner(ctx context.Context, unitID uint) (*uint, error) {
	var unit models.Unit
	if err := s.first(ctx, &unit, "unit", unitID, "Building"); err != nil {
		return nil, err
	}
	return unit.EffectiveOwnerID(), nil
}

// ChargeShare is one unit's part of a building's general charges.
type ChargeShare struct {
	UnitID     uint
	UnitNumber string
	Percentage decimal.Decimal
	Amount     decimal.Decimal
}

// BuildingChargeShares splits the building's general charges between the
// distribution entries in effect on date.
func (s *ChargeService) BuildingChargeShares(ctx context.Context, buildingID uint, date datatypes.Date) ([]ChargeShare, error) {
	var building models.Building
	if err := s.first(ctx, &building, "building", buildingID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	entries, err := collectAsOf(db, buildingID, models.Normalize(date))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.UnitID
	}
	var units []models.Unit
	if err := db.Select("id", "unit_number").Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	numbers := make(map[uint]string, len(units))
	for _, u := range units {
		numbers[u.ID] = u.UnitNumber
	}

	shares := make([]ChargeShare, len(entries))
	for i := range entries {
		shares[i] = ChargeShare{
			UnitID:     entries[i].UnitID,
			UnitNumber: numbers[entries[i].UnitID],
			Percentage: entries[i].DistributionPercentage,
			Amount:     entries[i].ShareOf(building.TotalGeneralCharges),
		}
	}
	return shares, nil
}

func (s *ChargeService) first(ctx context.Context, dst interface{}, entity string, id uint, preloads ...string) error {
	q := s.db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	err := q.First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("get %s %d: %w", entity, id, err)
	}
	return nil
}
