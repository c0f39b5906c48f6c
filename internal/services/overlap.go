package services

import (
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// checkOverlap fails with an OverlapError when [start, end] collides with
// an active lease on unitID other than excludeID.
func checkOverlap(tx *gorm.DB, unitID, excludeID uint, start datatypes.Date, end *datatypes.Date) error {
	q := tx.Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var active []models.LeaseContract
	if err := q.Order("id").Find(&active).Error; err != nil {
		return fmt.Errorf("load active leases on unit %d: %w", unitID, err)
	}
	for i := range active {
		if active[i].Overlaps(start, end) {
			return &OverlapError{LeaseID: active[i].ID, Start: active[i].StartDate, End: active[i].EndDate}
		}
	}
	return nil
}
