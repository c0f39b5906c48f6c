package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDistributionDuplicateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("60"), StartDate: day(t, "2024-01-01")})
	require.NoError(t, err)

	_, err = f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("40"), StartDate: day(t, "2024-01-01")})
	var dup *UniquenessError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "charge distribution", dup.Entity)

	// another start date is a new entry
	_, err = f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("40"), StartDate: day(t, "2025-01-01")})
	require.NoError(t, err)
}

func TestAddDistributionPercentageRange(t *testing.T) {
	f := newFixture(t)
	for _, pct := range []string{"-0.01", "100.01", "250"} {
		_, err := f.dists.Add(context.Background(), DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec(pct), StartDate: day(t, "2024-01-01")})
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("percentage %s: err = %v, want out of range", pct, err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Violations["distribution_percentage"] != "out_of_range" {
			t.Errorf("percentage %s: want ValidationError on distribution_percentage, got %v", pct, err)
		}
	}
	bounds := map[string]string{"0": "2024-01-01", "100": "2024-02-01"}
	for pct, start := range bounds {
		_, err := f.dists.Add(context.Background(), DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec(pct), StartDate: day(t, start)})
		if err != nil {
			t.Errorf("percentage %s: unexpected error %v", pct, err)
		}
	}
}

func TestAddDistributionReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dists.Add(ctx, DistributionInput{BuildingID: 999, UnitID: f.unit.ID, Percentage: dec("10")})
	var ref *ReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "building", ref.Entity)

	_, err = f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: 999, Percentage: dec("10")})
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "unit", ref.Entity)

	other, err := f.props.CreateBuilding(ctx, BuildingInput{Name: "Autre", Address: "1 place Bellecour"})
	require.NoError(t, err)
	_, err = f.dists.Add(ctx, DistributionInput{BuildingID: other.ID, UnitID: f.unit.ID, Percentage: dec("10")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "not_in_building", verr.Violations["unit_id"])
}

func TestAddDistributionDefaultsStartToToday(t *testing.T) {
	f := newFixture(t)
	f.dists.now = func() time.Time { return time.Date(2024, 5, 17, 15, 30, 0, 0, time.UTC) }

	entry, err := f.dists.Add(context.Background(), DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("25")})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-17", models.FormatDay(entry.StartDate))
}

func TestDistributionsAsOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u2 := f.addUnit(t, "A2")
	add := func(unitID uint, pct, start, end string) {
		t.Helper()
		_, err := f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: unitID, Percentage: dec(pct), StartDate: day(t, start), EndDate: dayPtr(t, end)})
		require.NoError(t, err)
	}
	add(f.unit.ID, "50", "2024-01-01", "2024-07-01")
	add(f.unit.ID, "70", "2024-07-01", "")
	add(u2.ID, "50", "2024-01-01", "2024-07-01")
	add(u2.ID, "20", "2024-07-01", "")

	collect := func(date string) map[uint]string {
		out := map[uint]string{}
		for entry, err := range f.dists.AsOf(ctx, f.building.ID, day(t, date)) {
			require.NoError(t, err)
			out[entry.UnitID] = entry.DistributionPercentage.StringFixed(2)
		}
		return out
	}

	assert.Empty(t, collect("2023-12-31"))
	assert.Equal(t, map[uint]string{f.unit.ID: "50.00", u2.ID: "50.00"}, collect("2024-06-30"))
	assert.Equal(t, map[uint]string{f.unit.ID: "70.00", u2.ID: "20.00"}, collect("2024-07-01"))

	total, err := f.dists.Total(ctx, f.building.ID, day(t, "2024-07-01"))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("90")), "total %s", total)

	// early exit stops the iteration
	n := 0
	for range f.dists.AsOf(ctx, f.building.ID, day(t, "2024-06-30")) {
		n++
		break
	}
	assert.Equal(t, 1, n)

	all, err := f.dists.ListByBuilding(ctx, f.building.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteDistribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry, err := f.dists.Add(ctx, DistributionInput{BuildingID: f.building.ID, UnitID: f.unit.ID, Percentage: dec("10"), StartDate: day(t, "2024-01-01")})
	require.NoError(t, err)

	require.NoError(t, f.dists.Delete(ctx, entry.ID))
	assert.ErrorIs(t, f.dists.Delete(ctx, entry.ID), ErrNotFound)
}
