package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/diewo77/go-rentals/internal/db"
	"github.com/diewo77/go-rentals/internal/logging"
	"github.com/diewo77/go-rentals/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := d.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

type fixture struct {
	db       *gorm.DB
	props    *PropertyService
	leases   *LeaseService
	charges  *ChargeService
	dists    *DistributionService
	owner    *models.Owner
	building *models.Building
	unit     *models.Unit
	tenant   *models.Tenant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := setupTestDB(t)
	log := logging.Discard()
	f := &fixture{
		db:      d,
		props:   NewPropertyService(d, log),
		leases:  NewLeaseService(d, nil, log),
		charges: NewChargeService(d),
		dists:   NewDistributionService(d, log),
	}
	ctx := context.Background()

	var err error
	f.owner, err = f.props.CreateOwner(ctx, OwnerInput{PersonInput: PersonInput{FirstName: "Claire", LastName: "Martin", Email: "claire@example.com"}})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	f.building, err = f.props.CreateBuilding(ctx, BuildingInput{
		Name: "Les Tilleuls", Address: "12 rue des Tilleuls", OwnerID: &f.owner.ID,
		TotalGeneralCharges: dec("1000"),
	})
	if err != nil {
		t.Fatalf("create building: %v", err)
	}
	f.unit = f.addUnit(t, "A1")
	f.tenant = f.addTenant(t, "hugo@example.com")
	return f
}

func (f *fixture) addUnit(t *testing.T, number string) *models.Unit {
	t.Helper()
	u, err := f.props.CreateUnit(context.Background(), UnitInput{
		BuildingID: f.building.ID, Type: models.UnitTypeApartment, UnitNumber: number,
		SizeM2: dec("50"), MonthlyRent: dec("800"), SpecificCharges: dec("50"),
	})
	if err != nil {
		t.Fatalf("create unit %s: %v", number, err)
	}
	return u
}

func (f *fixture) addTenant(t *testing.T, email string) *models.Tenant {
	t.Helper()
	tn, err := f.props.CreateTenant(context.Background(), TenantInput{PersonInput: PersonInput{FirstName: "Hugo", LastName: "Bernard", Email: email}})
	if err != nil {
		t.Fatalf("create tenant %s: %v", email, err)
	}
	return tn
}

func (f *fixture) lease(t *testing.T, unitID uint, status models.LeaseStatus, start, end string) *models.LeaseContract {
	t.Helper()
	l, err := f.leases.Create(context.Background(), f.leaseInput(t, unitID, status, start, end))
	if err != nil {
		t.Fatalf("create lease: %v", err)
	}
	return l
}

func (f *fixture) leaseInput(t *testing.T, unitID uint, status models.LeaseStatus, start, end string) LeaseInput {
	t.Helper()
	return LeaseInput{
		UnitID: unitID, TenantID: f.tenant.ID, Status: status,
		StartDate: day(t, start), EndDate: dayPtr(t, end),
		DepositAmount: dec("1600"),
	}
}

func (f *fixture) available(t *testing.T, unitID uint) bool {
	t.Helper()
	var u models.Unit
	if err := f.db.First(&u, unitID).Error; err != nil {
		t.Fatalf("load unit %d: %v", unitID, err)
	}
	return u.IsAvailable
}

// assertAvailabilityConsistent checks every unit: unavailable iff an active
// lease exists on it.
func (f *fixture) assertAvailabilityConsistent(t *testing.T) {
	t.Helper()
	var units []models.Unit
	if err := f.db.Find(&units).Error; err != nil {
		t.Fatal(err)
	}
	for _, u := range units {
		var n int64
		f.db.Model(&models.LeaseContract{}).Where("unit_id = ? AND status = ?", u.ID, models.LeaseStatusActive).Count(&n)
		if u.IsAvailable != (n == 0) {
			t.Errorf("unit %d: is_available=%v with %d active leases", u.ID, u.IsAvailable, n)
		}
	}
}

func day(t *testing.T, s string) datatypes.Date {
	t.Helper()
	d, err := models.ParseDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func dayPtr(t *testing.T, s string) *datatypes.Date {
	t.Helper()
	if s == "" {
		return nil
	}
	d := day(t, s)
	return &d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
