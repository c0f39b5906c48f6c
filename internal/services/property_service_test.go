package services

import (
	"context"
	"testing"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerEmailUnique(t *testing.T) {
	f := newFixture(t)
	_, err := f.props.CreateOwner(context.Background(), OwnerInput{PersonInput: PersonInput{FirstName: "C", LastName: "M", Email: " Claire@Example.com "}})
	var dup *UniquenessError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	// updating an owner with its own email is not a duplicate
	_, err = f.props.UpdateOwner(context.Background(), f.owner.ID, OwnerInput{
		PersonInput: PersonInput{FirstName: "Claire", LastName: "Martin-Roux", Email: "claire@example.com"},
		TaxNumber:   "FR123",
	})
	require.NoError(t, err)
}

func TestTenantValidationAndUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.props.CreateTenant(ctx, TenantInput{PersonInput: PersonInput{FirstName: "", LastName: "X", Email: "not-an-email"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Violations["first_name"])
	assert.Equal(t, "invalid_email", verr.Violations["email"])

	_, err = f.props.CreateTenant(ctx, TenantInput{PersonInput: PersonInput{FirstName: "H", LastName: "B", Email: "HUGO@example.com"}})
	var dup *UniquenessError
	require.ErrorAs(t, err, &dup)
}

func TestBuildingDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.True(t, f.building.HasIndividualMeters, "meters default to individual")

	no := false
	b, err := f.props.CreateBuilding(ctx, BuildingInput{Name: "Colocs", Address: "3 rue Mercière", HasIndividualMeters: &no})
	require.NoError(t, err)
	reloaded, err := f.props.GetBuilding(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.HasIndividualMeters)

	_, err = f.props.CreateBuilding(ctx, BuildingInput{Name: "Ghost", Address: "x", OwnerID: ptr(uint(404))})
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "owner", ref.Entity)

	_, err = f.props.CreateBuilding(ctx, BuildingInput{Name: "Neg", Address: "x", TotalGeneralCharges: dec("-1")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUnitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.props.CreateUnit(ctx, UnitInput{BuildingID: f.building.ID, Type: "garage", UnitNumber: "G1", SizeM2: dec("0"), MonthlyRent: dec("-10")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_choice", verr.Violations["type"])
	assert.Equal(t, "must_be_positive", verr.Violations["size_m2"])
	assert.Equal(t, "must_not_be_negative", verr.Violations["monthly_rent"])

	_, err = f.props.CreateUnit(ctx, UnitInput{BuildingID: f.building.ID, Type: models.UnitTypeRoom, UnitNumber: "A1", SizeM2: dec("10"), MonthlyRent: dec("300")})
	var dup *UniquenessError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "unit_number", dup.Field)

	_, err = f.props.CreateUnit(ctx, UnitInput{BuildingID: 404, Type: models.UnitTypeRoom, UnitNumber: "Z1", SizeM2: dec("10"), MonthlyRent: dec("300")})
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "building", ref.Entity)
}

func TestUpdateUnitKeepsAvailability(t *testing.T) {
	f := newFixture(t)
	f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")

	u, err := f.props.UpdateUnit(context.Background(), f.unit.ID, UnitInput{
		BuildingID: f.building.ID, Type: models.UnitTypeApartment, UnitNumber: "A1",
		SizeM2: dec("52"), MonthlyRent: dec("820"), SpecificCharges: dec("50"),
	})
	require.NoError(t, err)
	assert.False(t, u.IsAvailable)
	assert.False(t, f.available(t, f.unit.ID))
}

func TestDeleteOwnerDetachesProperties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.props.DeleteOwner(ctx, f.owner.ID))
	b, err := f.props.GetBuilding(ctx, f.building.ID)
	require.NoError(t, err)
	assert.Nil(t, b.OwnerID)

	_, err = f.props.GetOwner(ctx, f.owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.props.DeleteOwner(ctx, f.owner.ID), ErrNotFound)
}

func TestDeleteTenantReleasesUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u2 := f.addUnit(t, "A2")
	other := f.addTenant(t, "lea@example.com")

	f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")
	in := f.leaseInput(t, u2.ID, models.LeaseStatusActive, "2024-01-01", "")
	in.TenantID = other.ID
	_, err := f.leases.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.props.DeleteTenant(ctx, f.tenant.ID))
	assert.True(t, f.available(t, f.unit.ID), "unit of the deleted tenant is released")
	assert.False(t, f.available(t, u2.ID), "other tenant keeps their unit")
	f.assertAvailabilityConsistent(t)

	var n int64
	f.db.Model(&models.LeaseContract{}).Where("tenant_id = ?", f.tenant.ID).Count(&n)
	assert.Zero(t, n)
}

func TestDeleteBuildingCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")
	_, err := f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("100"), StartDate: day(t, "2024-01-01")})
	require.NoError(t, err)

	require.NoError(t, f.props.DeleteBuilding(ctx, f.building.ID))
	for _, model := range []interface{}{&models.Building{}, &models.Unit{}, &models.LeaseContract{}, &models.ChargeDistribution{}} {
		var n int64
		f.db.Model(model).Count(&n)
		assert.Zero(t, n, "%T rows left", model)
	}
	var tenants int64
	f.db.Model(&models.Tenant{}).Count(&tenants)
	assert.EqualValues(t, 1, tenants, "tenants survive building deletion")
}

func TestDeleteUnitCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")

	require.NoError(t, f.props.DeleteUnit(ctx, f.unit.ID))
	var n int64
	f.db.Model(&models.LeaseContract{}).Count(&n)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.props.DeleteUnit(ctx, f.unit.ID), ErrNotFound)
}

func TestBuildingStatsAndAvailableUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUnit(t, "B2")
	f.addUnit(t, "A2")
	f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")

	stats, err := f.props.BuildingStats(ctx, f.building.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Available)
	assert.EqualValues(t, 1, stats.Rented)

	units, err := f.props.AvailableUnits(ctx, &f.building.ID)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "A2", units[0].UnitNumber)
	assert.Equal(t, "B2", units[1].UnitNumber)
	require.NotNil(t, units[0].Building)
	assert.Equal(t, f.building.Name, units[0].Building.Name)

	all, err := f.props.ListUnits(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.props.BuildingStats(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnitAndTenantLeaseQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.lease(t, f.unit.ID, models.LeaseStatusTerminated, "2023-01-01", "2023-12-31")

	has, err := f.props.HasActiveLease(ctx, f.unit.ID)
	require.NoError(t, err)
	assert.False(t, has)
	none, err := f.props.ActiveLease(ctx, f.unit.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	active := f.lease(t, f.unit.ID, models.LeaseStatusActive, "2024-01-01", "")
	got, err := f.props.ActiveLease(ctx, f.unit.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, active.ID, got.ID)

	activeCount, total, err := f.props.TenantLeaseCounts(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, activeCount)
	assert.EqualValues(t, 2, total)

	leases, err := f.props.TenantActiveLeases(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}

func TestListOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.props.CreateOwner(ctx, OwnerInput{PersonInput: PersonInput{FirstName: "Anne", LastName: "Martin", Email: "anne@example.com"}})
	require.NoError(t, err)
	_, err = f.props.CreateOwner(ctx, OwnerInput{PersonInput: PersonInput{FirstName: "Zoé", LastName: "Arnaud", Email: "zoe@example.com"}})
	require.NoError(t, err)

	owners, err := f.props.ListOwners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 3)
	assert.Equal(t, []string{"Zoé Arnaud", "Anne Martin", "Claire Martin"},
		[]string{owners[0].FullName(), owners[1].FullName(), owners[2].FullName()})

	tenants, err := f.props.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)

	buildings, err := f.props.ListBuildings(ctx)
	require.NoError(t, err)
	assert.Len(t, buildings, 1)
}

func ptr[T any](v T) *T { return &v }
