package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyService maintains owners, buildings, units and tenants.
// Deletions cascade explicitly so that availability stays consistent
// whatever the database's foreign key settings.
type PropertyService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewPropertyService(db *gorm.DB, log *slog.Logger) *PropertyService {
	return &PropertyService{db: db, log: log}
}

// PersonInput holds the contact fields shared by owners and tenants.
type PersonInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"max=20"`
	Notes     string `json:"notes"`
}

func (p *PersonInput) normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

type OwnerInput struct {
	PersonInput
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number" validate:"max=50"`
}

type TenantInput struct {
	PersonInput
	IDDocument       string `json:"id_document" validate:"max=255"`
	EmergencyContact string `json:"emergency_contact" validate:"max=200"`
}

type BuildingInput struct {
	Name                string          `json:"name" validate:"required,max=200"`
	Address             string          `json:"address" validate:"required"`
	Description         string          `json:"description"`
	OwnerID             *uint           `json:"owner_id"`
	TotalGeneralCharges decimal.Decimal `json:"total_general_charges"`
	// Defaults to true when nil.
	HasIndividualMeters *bool `json:"has_individual_meters"`
}

type UnitInput struct {
	BuildingID      uint            `json:"building_id"`
	OwnerID         *uint           `json:"owner_id"`
	Type            models.UnitType `json:"type" validate:"required,oneof=apartment house room"`
	UnitNumber      string          `json:"unit_number" validate:"required,max=50"`
	SizeM2          decimal.Decimal `json:"size_m2"`
	MonthlyRent     decimal.Decimal `json:"monthly_rent"`
	SpecificCharges decimal.Decimal `json:"specific_charges"`
	Description     string          `json:"description"`
}

func check(in interface{}, extra func(validation.Violations)) error {
	v := validation.Violations{}
	if err := validation.Struct(in, v); err != nil {
		return err
	}
	if extra != nil {
		extra(v)
	}
	return invalid(v)
}

// ---- owners

func (s *PropertyService) CreateOwner(ctx context.Context, in OwnerInput) (*models.Owner, error) {
	o := &models.Owner{}
	if err := s.saveOwner(ctx, o, in); err != nil {
		return nil, err
	}
	s.log.Info("owner created", "owner_id", o.ID)
	return o, nil
}

func (s *PropertyService) UpdateOwner(ctx context.Context, id uint, in OwnerInput) (*models.Owner, error) {
	o, err := s.GetOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveOwner(ctx, o, in); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PropertyService) saveOwner(ctx context.Context, o *models.Owner, in OwnerInput) error {
	in.normalize()
	if err := check(in, nil); err != nil {
		return err
	}
	dup := &UniquenessError{Entity: "owner", Field: "email", Value: in.Email}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, &models.Owner{}, o.ID, dup, "email = ?", in.Email); err != nil {
			return err
		}
		o.FirstName, o.LastName, o.Email, o.Phone, o.Notes = in.FirstName, in.LastName, in.Email, in.Phone, in.Notes
		o.Address, o.TaxNumber = in.Address, in.TaxNumber
		return translateWrite(tx.Save(o).Error, "save owner", dup, nil)
	})
}

func (s *PropertyService) GetOwner(ctx context.Context, id uint) (*models.Owner, error) {
	var o models.Owner
	if err := s.get(ctx, &o, "owner", id); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOwners returns owners sorted by last then first name.
func (s *PropertyService) ListOwners(ctx context.Context) ([]models.Owner, error) {
	var out []models.Owner
	err := s.db.WithContext(ctx).Order("last_name").Order("first_name").Find(&out).Error
	return out, wrap(err, "list owners")
}

// DeleteOwner removes an owner; buildings and units keep existing without one.
func (s *PropertyService) DeleteOwner(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Building{}).Where("owner_id = ?", id).Update("owner_id", nil).Error; err != nil {
			return fmt.Errorf("detach buildings: %w", err)
		}
		if err := tx.Model(&models.Unit{}).Where("owner_id = ?", id).Update("owner_id", nil).Error; err != nil {
			return fmt.Errorf("detach units: %w", err)
		}
		return deleteOne(tx, &models.Owner{}, "owner", id)
	})
	if err == nil {
		s.log.Info("owner deleted", "owner_id", id)
	}
	return err
}

// ---- buildings

func (s *PropertyService) CreateBuilding(ctx context.Context, in BuildingInput) (*models.Building, error) {
	b := &models.Building{}
	if err := s.saveBuilding(ctx, b, in); err != nil {
		return nil, err
	}
	s.log.Info("building created", "building_id", b.ID)
	return b, nil
}

func (s *PropertyService) UpdateBuilding(ctx context.Context, id uint, in BuildingInput) (*models.Building, error) {
	b, err := s.GetBuilding(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveBuilding(ctx, b, in); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PropertyService) saveBuilding(ctx context.Context, b *models.Building, in BuildingInput) error {
	in.Name = strings.TrimSpace(in.Name)
	err := check(in, func(v validation.Violations) {
		validation.NonNegativeDecimal("total_general_charges", in.TotalGeneralCharges, v)
	})
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Owner{}, "owner", in.OwnerID); err != nil {
			return err
		}
		b.Name, b.Address, b.Description, b.OwnerID = in.Name, in.Address, in.Description, in.OwnerID
		b.TotalGeneralCharges = in.TotalGeneralCharges
		b.HasIndividualMeters = in.HasIndividualMeters == nil || *in.HasIndividualMeters
		return translateWrite(tx.Omit(clause.Associations).Save(b).Error, "save building", nil, &ReferenceError{Entity: "owner"})
	})
}

func (s *PropertyService) GetBuilding(ctx context.Context, id uint) (*models.Building, error) {
	var b models.Building
	if err := s.get(ctx, &b, "building", id); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBuildings returns buildings sorted by name.
func (s *PropertyService) ListBuildings(ctx context.Context) ([]models.Building, error) {
	var out []models.Building
	err := s.db.WithContext(ctx).Order("name").Order("id").Find(&out).Error
	return out, wrap(err, "list buildings")
}

// DeleteBuilding removes a building with its units, their leases and the
// building's charge distributions.
func (s *PropertyService) DeleteBuilding(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unitIDs []uint
		if err := tx.Model(&models.Unit{}).Where("building_id = ?", id).Pluck("id", &unitIDs).Error; err != nil {
			return fmt.Errorf("list building units: %w", err)
		}
		if err := tx.Where("building_id = ?", id).Delete(&models.ChargeDistribution{}).Error; err != nil {
			return fmt.Errorf("delete distributions: %w", err)
		}
		if err := deleteUnits(tx, unitIDs); err != nil {
			return err
		}
		return deleteOne(tx, &models.Building{}, "building", id)
	})
	if err == nil {
		s.log.Info("building deleted", "building_id", id)
	}
	return err
}

// BuildingStats counts the building's units by availability.
func (s *PropertyService) BuildingStats(ctx context.Context, id uint) (models.OccupancyStats, error) {
	stats := models.OccupancyStats{BuildingID: id}
	if _, err := s.GetBuilding(ctx, id); err != nil {
		return stats, err
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Unit{}).Where("building_id = ?", id).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("count units: %w", err)
	}
	if err := db.Model(&models.Unit{}).Where("building_id = ? AND is_available = ?", id, true).Count(&stats.Available).Error; err != nil {
		return stats, fmt.Errorf("count available units: %w", err)
	}
	stats.Rented = stats.Total - stats.Available
	return stats, nil
}

// ---- units

// CreateUnit adds an available unit to a building.
func (s *PropertyService) CreateUnit(ctx context.Context, in UnitInput) (*models.Unit, error) {
	u := &models.Unit{IsAvailable: true}
	if err := s.saveUnit(ctx, u, in); err != nil {
		return nil, err
	}
	s.log.Info("unit created", "unit_id", u.ID, "building_id", u.BuildingID)
	return u, nil
}

// UpdateUnit changes a unit's descriptive and pricing fields. Availability
// is left to the lease rules.
func (s *PropertyService) UpdateUnit(ctx context.Context, id uint, in UnitInput) (*models.Unit, error) {
	u, err := s.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveUnit(ctx, u, in); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PropertyService) saveUnit(ctx context.Context, u *models.Unit, in UnitInput) error {
	in.UnitNumber = strings.TrimSpace(in.UnitNumber)
	err := check(in, func(v validation.Violations) {
		validation.RequiredID("building_id", in.BuildingID, v)
		validation.PositiveDecimal("size_m2", in.SizeM2, v)
		validation.NonNegativeDecimal("monthly_rent", in.MonthlyRent, v)
		validation.NonNegativeDecimal("specific_charges", in.SpecificCharges, v)
	})
	if err != nil {
		return err
	}
	dup := &UniquenessError{Entity: "unit", Field: "unit_number", Value: in.UnitNumber}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buildingID := in.BuildingID
		if err := ensureExists(tx, &models.Building{}, "building", &buildingID); err != nil {
			return err
		}
		if err := ensureExists(tx, &models.Owner{}, "owner", in.OwnerID); err != nil {
			return err
		}
		if err := ensureUnique(tx, &models.Unit{}, u.ID, dup, "building_id = ? AND unit_number = ?", in.BuildingID, in.UnitNumber); err != nil {
			return err
		}
		u.BuildingID, u.OwnerID, u.Type, u.UnitNumber = in.BuildingID, in.OwnerID, in.Type, in.UnitNumber
		u.SizeM2, u.MonthlyRent, u.SpecificCharges, u.Description = in.SizeM2, in.MonthlyRent, in.SpecificCharges, in.Description
		return translateWrite(tx.Omit(clause.Associations).Save(u).Error, "save unit", dup, &ReferenceError{Entity: "building or owner"})
	})
}

func (s *PropertyService) GetUnit(ctx context.Context, id uint) (*models.Unit, error) {
	var u models.Unit
	if err := s.get(ctx, &u, "unit", id); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUnits returns units ordered by building name then unit number,
// optionally restricted to one building.
func (s *PropertyService) ListUnits(ctx context.Context, buildingID *uint) ([]models.Unit, error) {
	return s.listUnits(ctx, buildingID, false)
}

// AvailableUnits lists the units a new lease can be offered on.
func (s *PropertyService) AvailableUnits(ctx context.Context, buildingID *uint) ([]models.Unit, error) {
	return s.listUnits(ctx, buildingID, true)
}

func (s *PropertyService) listUnits(ctx context.Context, buildingID *uint, onlyAvailable bool) ([]models.Unit, error) {
	q := s.db.WithContext(ctx).Model(&models.Unit{}).
		Joins("Building").
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Table: "Building", Name: "name"}},
			{Column: clause.Column{Table: clause.CurrentTable, Name: "unit_number"}},
		}})
	if buildingID != nil {
		q = q.Where("units.building_id = ?", *buildingID)
	}
	if onlyAvailable {
		q = q.Where("units.is_available = ?", true)
	}
	var out []models.Unit
	return out, wrap(q.Find(&out).Error, "list units")
}

// ActiveLease returns the unit's most recent active lease, or nil.
func (s *PropertyService) ActiveLease(ctx context.Context, unitID uint) (*models.LeaseContract, error) {
	var lease models.LeaseContract
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, models.LeaseStatusActive).
		Order("start_date DESC").Order("id DESC").
		First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active lease of unit %d: %w", unitID, err)
	}
	return &lease, nil
}

// HasActiveLease reports whether an active lease holds the unit.
func (s *PropertyService) HasActiveLease(ctx context.Context, unitID uint) (bool, error) {
	n, err := countActiveLeases(s.db.WithContext(ctx), unitID, 0)
	return n > 0, err
}

// DeleteUnit removes a unit with its leases and charge distributions.
func (s *PropertyService) DeleteUnit(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUnit(tx, id); err != nil {
			var ref *ReferenceError
			if errors.As(err, &ref) {
				return notFound("unit", id)
			}
			return err
		}
		return deleteUnits(tx, []uint{id})
	})
	if err == nil {
		s.log.Info("unit deleted", "unit_id", id)
	}
	return err
}

func deleteUnits(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("unit_id IN ?", ids).Delete(&models.LeaseContract{}).Error; err != nil {
		return fmt.Errorf("delete unit leases: %w", err)
	}
	if err := tx.Where("unit_id IN ?", ids).Delete(&models.ChargeDistribution{}).Error; err != nil {
		return fmt.Errorf("delete unit distributions: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Unit{}).Error; err != nil {
		return fmt.Errorf("delete units: %w", err)
	}
	return nil
}

// ---- tenants

func (s *PropertyService) CreateTenant(ctx context.Context, in TenantInput) (*models.Tenant, error) {
	t := &models.Tenant{}
	if err := s.saveTenant(ctx, t, in); err != nil {
		return nil, err
	}
	s.log.Info("tenant created", "tenant_id", t.ID)
	return t, nil
}

func (s *PropertyService) UpdateTenant(ctx context.Context, id uint, in TenantInput) (*models.Tenant, error) {
	t, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.saveTenant(ctx, t, in); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PropertyService) saveTenant(ctx context.Context, t *models.Tenant, in TenantInput) error {
	in.normalize()
	if err := check(in, nil); err != nil {
		return err
	}
	dup := &UniquenessError{Entity: "tenant", Field: "email", Value: in.Email}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, &models.Tenant{}, t.ID, dup, "email = ?", in.Email); err != nil {
			return err
		}
		t.FirstName, t.LastName, t.Email, t.Phone, t.Notes = in.FirstName, in.LastName, in.Email, in.Phone, in.Notes
		t.IDDocument, t.EmergencyContact = in.IDDocument, in.EmergencyContact
		return translateWrite(tx.Save(t).Error, "save tenant", dup, nil)
	})
}

func (s *PropertyService) GetTenant(ctx context.Context, id uint) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.get(ctx, &t, "tenant", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTenants returns tenants sorted by last then first name.
func (s *PropertyService) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var out []models.Tenant
	err := s.db.WithContext(ctx).Order("last_name").Order("first_name").Find(&out).Error
	return out, wrap(err, "list tenants")
}

// TenantLeaseCounts returns the tenant's active and total lease counts.
func (s *PropertyService) TenantLeaseCounts(ctx context.Context, tenantID uint) (active, total int64, err error) {
	leases := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.LeaseContract{}).Where("tenant_id = ?", tenantID)
	}
	if err = leases().Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count tenant leases: %w", err)
	}
	if err = leases().Where("status = ?", models.LeaseStatusActive).Count(&active).Error; err != nil {
		return 0, 0, fmt.Errorf("count tenant active leases: %w", err)
	}
	return active, total, nil
}

// TenantActiveLeases returns the tenant's active leases, most recent first.
func (s *PropertyService) TenantActiveLeases(ctx context.Context, tenantID uint) ([]models.LeaseContract, error) {
	var out []models.LeaseContract
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, models.LeaseStatusActive).
		Order("start_date DESC").Find(&out).Error
	return out, wrap(err, "list tenant active leases")
}

// DeleteTenant removes a tenant and their leases, then re-applies the
// availability rule to every unit those leases occupied.
func (s *PropertyService) DeleteTenant(ctx context.Context, id uint) error {
	var released []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var leases []models.LeaseContract
		if err := tx.Where("tenant_id = ?", id).Find(&leases).Error; err != nil {
			return fmt.Errorf("load tenant leases: %w", err)
		}
		unitIDs := make([]uint, 0, len(leases))
		for _, l := range leases {
			unitIDs = append(unitIDs, l.UnitID)
		}
		slices.Sort(unitIDs)
		unitIDs = slices.Compact(unitIDs)
		for _, unitID := range unitIDs {
			if _, err := lockUnit(tx, unitID); err != nil {
				return err
			}
		}

		trail := newAuditTrail(tx)
		for i := range leases {
			if err := tx.Delete(&models.LeaseContract{}, leases[i].ID).Error; err != nil {
				return fmt.Errorf("delete lease %d: %w", leases[i].ID, err)
			}
			if err := trail.leaseDeleted(&leases[i]); err != nil {
				return err
			}
		}
		for _, unitID := range unitIDs {
			if err := syncUnitOnDelete(tx, trail, unitID, 0); err != nil {
				return err
			}
		}
		released = unitIDs
		if err := tx.Where("tenant_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("delete tenant notifications: %w", err)
		}
		return deleteOne(tx, &models.Tenant{}, "tenant", id)
	})
	if err == nil {
		s.log.Info("tenant deleted", "tenant_id", id, "units_reevaluated", released)
	}
	return err
}

// ---- helpers

func (s *PropertyService) get(ctx context.Context, dst interface{}, entity string, id uint) error {
	err := s.db.WithContext(ctx).First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return wrap(err, "get "+entity)
}

func ensureUnique(tx *gorm.DB, model interface{}, selfID uint, dup *UniquenessError, query string, args ...interface{}) error {
	q := tx.Model(model).Where(query, args...)
	if selfID != 0 {
		q = q.Where("id <> ?", selfID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("uniqueness check: %w", err)
	}
	if n > 0 {
		return dup
	}
	return nil
}

func ensureExists(tx *gorm.DB, model interface{}, entity string, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", *id).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", entity, err)
	}
	if n == 0 {
		return &ReferenceError{Entity: entity, ID: *id}
	}
	return nil
}

func deleteOne(tx *gorm.DB, model interface{}, entity string, id uint) error {
	res := tx.Delete(model, id)
	if res.Error != nil {
		return fmt.Errorf("delete %s %d: %w", entity, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(entity, id)
	}
	return nil
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
