package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed inserts demo owners, a building with units and a tenant.
// Existing rows are matched by natural key, so running it twice is a no-op.
// Leases are not seeded: they must go through the lease service to keep
// unit availability consistent.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		owner := models.Owner{FirstName: "Claire", LastName: "Martin", Email: "claire.martin@example.com", Phone: "+33 6 12 34 56 78"}
		if err := firstOrCreate(tx, &owner, "email = ?", owner.Email); err != nil {
			return err
		}

		building := models.Building{
			Name:                "Résidence des Tilleuls",
			Address:             "12 rue des Tilleuls, 69003 Lyon",
			OwnerID:             &owner.ID,
			TotalGeneralCharges: decimal.NewFromInt(1200),
			HasIndividualMeters: true,
		}
		if err := firstOrCreate(tx, &building, "name = ?", building.Name); err != nil {
			return err
		}

		units := []models.Unit{
			{UnitNumber: "A1", Type: models.UnitTypeApartment, SizeM2: decimal.NewFromInt(54), MonthlyRent: decimal.NewFromInt(780), SpecificCharges: decimal.NewFromInt(45)},
			{UnitNumber: "A2", Type: models.UnitTypeApartment, SizeM2: decimal.NewFromInt(72), MonthlyRent: decimal.NewFromInt(950), SpecificCharges: decimal.NewFromInt(60)},
			{UnitNumber: "R1", Type: models.UnitTypeRoom, SizeM2: decimal.NewFromInt(14), MonthlyRent: decimal.NewFromInt(420), SpecificCharges: decimal.Zero},
		}
		for i := range units {
			u := &units[i]
			u.BuildingID = building.ID
			u.IsAvailable = true
			if err := firstOrCreate(tx, u, "building_id = ? AND unit_number = ?", building.ID, u.UnitNumber); err != nil {
				return err
			}
		}

		tenant := models.Tenant{FirstName: "Hugo", LastName: "Bernard", Email: "hugo.bernard@example.com", EmergencyContact: "Lucie Bernard +33 6 98 76 54 32"}
		return firstOrCreate(tx, &tenant, "email = ?", tenant.Email)
	})
}

func firstOrCreate(tx *gorm.DB, dst interface{}, query string, args ...interface{}) error {
	err := tx.Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.Create(dst).Error
	}
	if err != nil {
		return fmt.Errorf("seed %T: %w", dst, err)
	}
	return nil
}
