package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/validation"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	minPercentage = decimal.Zero
	maxPercentage = decimal.NewFromInt(100)
)

// DistributionService manages the ledger of building charge shares.
type DistributionService struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func NewDistributionService(db *gorm.DB, log *slog.Logger) *DistributionService {
	return &DistributionService{db: db, log: log, now: time.Now}
}

// DistributionInput describes a new ledger entry. A zero StartDate means today.
type DistributionInput struct {
	BuildingID uint            `json:"building_id"`
	UnitID     uint            `json:"unit_id"`
	Percentage decimal.Decimal `json:"distribution_percentage"`
	StartDate  datatypes.Date  `json:"start_date"`
	EndDate    *datatypes.Date `json:"end_date"`
}

// Add records a unit's share of a building's general charges. Percentages
// of one building are not required to add up to 100.
func (s *DistributionService) Add(ctx context.Context, in DistributionInput) (*models.ChargeDistribution, error) {
	if time.Time(in.StartDate).IsZero() {
		in.StartDate = models.Day(s.now())
	}
	v := validation.Violations{}
	validation.RequiredID("building_id", in.BuildingID, v)
	validation.RequiredID("unit_id", in.UnitID, v)
	validation.RangeDecimal("distribution_percentage", in.Percentage, minPercentage, maxPercentage, v)
	validation.DateOrder("end_date", in.StartDate, in.EndDate, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	entry := &models.ChargeDistribution{
		BuildingID:             in.BuildingID,
		UnitID:                 in.UnitID,
		DistributionPercentage: in.Percentage.Round(2),
		StartDate:              models.Normalize(in.StartDate),
		EndDate:                models.NormalizePtr(in.EndDate),
	}
	dup := &UniquenessError{
		Entity: "charge distribution",
		Field:  "building_id, unit_id, start_date",
		Value:  fmt.Sprintf("%d, %d, %s", in.BuildingID, in.UnitID, models.FormatDay(entry.StartDate)),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Building{}, in.BuildingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ReferenceError{Entity: "building", ID: in.BuildingID}
			}
			return fmt.Errorf("load building %d: %w", in.BuildingID, err)
		}
		var unit models.Unit
		if err := tx.Select("id", "building_id").First(&unit, in.UnitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ReferenceError{Entity: "unit", ID: in.UnitID}
			}
			return fmt.Errorf("load unit %d: %w", in.UnitID, err)
		}
		if unit.BuildingID != in.BuildingID {
			return invalid(validation.Violations{"unit_id": "not_in_building"})
		}

		var existing []models.ChargeDistribution
		if err := tx.Where("building_id = ? AND unit_id = ?", in.BuildingID, in.UnitID).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("load distributions: %w", err)
		}
		for _, e := range existing {
			if models.CompareDays(e.StartDate, entry.StartDate) == 0 {
				return dup
			}
		}
		if err := tx.Create(entry).Error; err != nil {
			return translateWrite(err, "create charge distribution", dup, &ReferenceError{Entity: "building or unit"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("charge distribution added", "distribution_id", entry.ID,
		"building_id", entry.BuildingID, "unit_id", entry.UnitID,
		"percentage", entry.DistributionPercentage.StringFixed(2), "start_date", models.FormatDay(entry.StartDate))
	return entry, nil
}

// AsOf lazily yields the building's entries in effect on date, ordered by
// unit. The underlying rows stay open until iteration ends, so the loop
// body must not issue queries on a single-connection pool.
func (s *DistributionService) AsOf(ctx context.Context, buildingID uint, date datatypes.Date) iter.Seq2[models.ChargeDistribution, error] {
	return distributionsAsOf(s.db.WithContext(ctx), buildingID, date)
}

func distributionsAsOf(db *gorm.DB, buildingID uint, date datatypes.Date) iter.Seq2[models.ChargeDistribution, error] {
	return func(yield func(models.ChargeDistribution, error) bool) {
		rows, err := db.Model(&models.ChargeDistribution{}).
			Where("building_id = ?", buildingID).
			Order("unit_id").Order("start_date").
			Rows()
		if err != nil {
			yield(models.ChargeDistribution{}, fmt.Errorf("query distributions: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var entry models.ChargeDistribution
			if err := db.ScanRows(rows, &entry); err != nil {
				yield(models.ChargeDistribution{}, fmt.Errorf("scan distribution: %w", err))
				return
			}
			if !entry.InEffect(date) {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.ChargeDistribution{}, fmt.Errorf("iterate distributions: %w", err))
		}
	}
}

// collectAsOf drains distributionsAsOf into a slice.
func collectAsOf(db *gorm.DB, buildingID uint, date datatypes.Date) ([]models.ChargeDistribution, error) {
	var out []models.ChargeDistribution
	for entry, err := range distributionsAsOf(db, buildingID, date) {
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Total sums the percentages in effect on date. Callers use it to spot
// allocations that do not add up to 100.
func (s *DistributionService) Total(ctx context.Context, buildingID uint, date datatypes.Date) (decimal.Decimal, error) {
	total := decimal.Zero
	for entry, err := range s.AsOf(ctx, buildingID, date) {
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(entry.DistributionPercentage)
	}
	return total, nil
}

// ListByBuilding returns every entry of a building, current or not.
func (s *DistributionService) ListByBuilding(ctx context.Context, buildingID uint) ([]models.ChargeDistribution, error) {
	var entries []models.ChargeDistribution
	if err := s.db.WithContext(ctx).Where("building_id = ?", buildingID).
		Order("unit_id").Order("start_date").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	return entries, nil
}

// Delete removes a ledger entry.
func (s *DistributionService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ChargeDistribution{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete charge distribution %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("charge distribution", id)
	}
	s.log.Info("charge distribution deleted", "distribution_id", id)
	return nil
}
