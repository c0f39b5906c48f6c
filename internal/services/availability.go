package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockUnit loads a unit with a row lock held until the transaction ends.
// SQLite ignores the locking clause; it already serializes writers.
func lockUnit(tx *gorm.DB, unitID uint) (*models.Unit, error) {
	var unit models.Unit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&unit, unitID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ReferenceError{Entity: "unit", ID: unitID}
	}
	if err != nil {
		return nil, fmt.Errorf("lock unit %d: %w", unitID, err)
	}
	return &unit, nil
}

// countActiveLeases counts active leases on unitID, ignoring excludeID.
func countActiveLeases(tx *gorm.DB, unitID, excludeID uint) (int64, error) {
	q := tx.Model(&models.LeaseContract{}).
		Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count active leases on unit %d: %w", unitID, err)
	}
	return n, nil
}

// syncUnitOnSave applies the availability rule after lease was inserted or
// updated: an active lease takes the unit, otherwise the unit is released
// unless another active lease still holds it.
func syncUnitOnSave(tx *gorm.DB, trail *auditTrail, lease *models.LeaseContract) error {
	if lease.IsActive() {
		return setAvailability(tx, trail, lease.UnitID, false)
	}
	return releaseIfFree(tx, trail, lease.UnitID, lease.ID)
}

// syncUnitOnDelete applies the availability rule after a lease on unitID
// was removed, or moved to another unit.
func syncUnitOnDelete(tx *gorm.DB, trail *auditTrail, unitID, leaseID uint) error {
	return releaseIfFree(tx, trail, unitID, leaseID)
}

func releaseIfFree(tx *gorm.DB, trail *auditTrail, unitID, excludeID uint) error {
	n, err := countActiveLeases(tx, unitID, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return setAvailability(tx, trail, unitID, true)
}

// setAvailability persists the flag when it differs and audits the flip.
func setAvailability(tx *gorm.DB, trail *auditTrail, unitID uint, available bool) error {
	var unit models.Unit
	if err := tx.Select("id", "is_available").First(&unit, unitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ReferenceError{Entity: "unit", ID: unitID}
		}
		return fmt.Errorf("load unit %d: %w", unitID, err)
	}
	if unit.IsAvailable == available {
		return nil
	}
	if err := tx.Model(&models.Unit{}).Where("id = ?", unitID).Update("is_available", available).Error; err != nil {
		return fmt.Errorf("update unit %d availability: %w", unitID, err)
	}
	return trail.availabilityChanged(unitID, unit.IsAvailable, available)
}

// ReconcileAvailability recomputes every unit's availability from its
// leases and returns the IDs of the units that had drifted.
func (s *LeaseService) ReconcileAvailability(ctx context.Context) ([]uint, error) {
	var fixed []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var occupied []uint
		if err := tx.Model(&models.LeaseContract{}).
			Where("status = ?", models.LeaseStatusActive).
			Distinct().Pluck("unit_id", &occupied).Error; err != nil {
			return fmt.Errorf("active lease units: %w", err)
		}
		taken := make(map[uint]bool, len(occupied))
		for _, id := range occupied {
			taken[id] = true
		}

		var units []models.Unit
		if err := tx.Select("id", "is_available").Order("id").Find(&units).Error; err != nil {
			return fmt.Errorf("list units: %w", err)
		}
		trail := newAuditTrail(tx)
		for _, u := range units {
			want := !taken[u.ID]
			if u.IsAvailable == want {
				continue
			}
			if err := setAvailability(tx, trail, u.ID, want); err != nil {
				return err
			}
			fixed = append(fixed, u.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(fixed) > 0 {
		s.log.Warn("unit availability drift repaired", "units", fixed)
	}
	return fixed, nil
}
