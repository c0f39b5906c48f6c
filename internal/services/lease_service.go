package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/diewo77/go-rentals/internal/locks"
	"github.com/diewo77/go-rentals/internal/models"
	"github.com/diewo77/go-rentals/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaseService creates, updates and deletes leases while keeping unit
// availability in step. Every mutation runs in one transaction under a
// per-unit lock.
type LeaseService struct {
	db     *gorm.DB
	locker locks.UnitLocker
	log    *slog.Logger
}

func NewLeaseService(db *gorm.DB, locker locks.UnitLocker, log *slog.Logger) *LeaseService {
	if locker == nil {
		locker = locks.Noop{}
	}
	return &LeaseService{db: db, locker: locker, log: log}
}

// LeaseInput carries the fields of a new lease. Zero LeaseType and Status
// default to standard and draft.
type LeaseInput struct {
	UnitID              uint               `json:"unit_id"`
	TenantID            uint               `json:"tenant_id"`
	LeaseType           models.LeaseType   `json:"lease_type" validate:"omitempty,oneof=standard colocation"`
	StartDate           datatypes.Date     `json:"start_date"`
	EndDate             *datatypes.Date    `json:"end_date"`
	Status              models.LeaseStatus `json:"status" validate:"omitempty,oneof=draft active terminated cancelled"`
	FlatRateCharges     decimal.Decimal    `json:"flat_rate_charges"`
	DepositAmount       decimal.Decimal    `json:"deposit_amount"`
	HasSolidarityClause bool               `json:"has_solidarity_clause"`
	ContractDocument    string             `json:"contract_document" validate:"max=255"`
	Notes               string             `json:"notes"`
}

func (in LeaseInput) toModel() *models.LeaseContract {
	l := &models.LeaseContract{
		Reference:           uuid.NewString(),
		UnitID:              in.UnitID,
		TenantID:            in.TenantID,
		LeaseType:           in.LeaseType,
		StartDate:           models.Normalize(in.StartDate),
		EndDate:             models.NormalizePtr(in.EndDate),
		Status:              in.Status,
		FlatRateCharges:     in.FlatRateCharges,
		DepositAmount:       in.DepositAmount,
		HasSolidarityClause: in.HasSolidarityClause,
		ContractDocument:    in.ContractDocument,
		Notes:               in.Notes,
	}
	if l.LeaseType == "" {
		l.LeaseType = models.LeaseTypeStandard
	}
	if l.Status == "" {
		l.Status = models.LeaseStatusDraft
	}
	return l
}

// LeaseUpdate lists the fields to change; nil fields are left untouched.
type LeaseUpdate struct {
	UnitID              *uint
	TenantID            *uint
	LeaseType           *models.LeaseType
	StartDate           *datatypes.Date
	EndDate             *datatypes.Date
	ClearEndDate        bool
	Status              *models.LeaseStatus
	FlatRateCharges     *decimal.Decimal
	DepositAmount       *decimal.Decimal
	HasSolidarityClause *bool
	ContractDocument    *string
	Notes               *string
}

func (u LeaseUpdate) apply(l *models.LeaseContract) {
	if u.UnitID != nil {
		l.UnitID = *u.UnitID
	}
	if u.TenantID != nil {
		l.TenantID = *u.TenantID
	}
	if u.LeaseType != nil {
		l.LeaseType = *u.LeaseType
	}
	if u.StartDate != nil {
		l.StartDate = models.Normalize(*u.StartDate)
	}
	if u.ClearEndDate {
		l.EndDate = nil
	} else if u.EndDate != nil {
		l.EndDate = models.NormalizePtr(u.EndDate)
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.FlatRateCharges != nil {
		l.FlatRateCharges = *u.FlatRateCharges
	}
	if u.DepositAmount != nil {
		l.DepositAmount = *u.DepositAmount
	}
	if u.HasSolidarityClause != nil {
		l.HasSolidarityClause = *u.HasSolidarityClause
	}
	if u.ContractDocument != nil {
		l.ContractDocument = *u.ContractDocument
	}
	if u.Notes != nil {
		l.Notes = *u.Notes
	}
}

func validateLease(l *models.LeaseContract, v validation.Violations) {
	validation.RequiredID("unit_id", l.UnitID, v)
	validation.RequiredID("tenant_id", l.TenantID, v)
	if !l.LeaseType.Valid() {
		v.Add("lease_type", "invalid_choice")
	}
	if !l.Status.Valid() {
		v.Add("status", "invalid_choice")
	}
	if time.Time(l.StartDate).IsZero() {
		v.Add("start_date", "required")
	}
	validation.DateOrder("end_date", l.StartDate, l.EndDate, v)
	validation.NonNegativeDecimal("flat_rate_charges", l.FlatRateCharges, v)
	validation.NonNegativeDecimal("deposit_amount", l.DepositAmount, v)
	if len(l.ContractDocument) > 255 {
		v.Add("contract_document", "too_long")
	}
}

// lockUnits takes the distributed lock of every unit in ascending order and
// returns a function releasing them all.
func (s *LeaseService) lockUnits(ctx context.Context, unitIDs ...uint) (func(), error) {
	ids := slices.Clone(unitIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var releases []locks.Release
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("unit lock release failed", "error", err)
			}
		}
	}
	for _, id := range ids {
		r, err := s.locker.LockUnit(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, r)
	}
	return releaseAll, nil
}

// Create validates and stores a new lease, then updates the unit's
// availability. A lease created directly as active queues a confirmation
// notification for the tenant.
func (s *LeaseService) Create(ctx context.Context, in LeaseInput) (*models.LeaseContract, error) {
	v := validation.Violations{}
	if err := validation.Struct(in, v); err != nil {
		return nil, err
	}
	lease := in.toModel()
	validateLease(lease, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	unlock, err := s.lockUnits(ctx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var trail *auditTrail
	var notification *models.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unit, err := lockUnit(tx, lease.UnitID)
		if err != nil {
			return err
		}
		tenant, err := loadTenant(tx, lease.TenantID)
		if err != nil {
			return err
		}
		if err := checkOverlap(tx, lease.UnitID, 0, lease.StartDate, lease.EndDate); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(lease).Error; err != nil {
			return translateWrite(err, "create lease",
				&UniquenessError{Entity: "lease", Field: "reference", Value: lease.Reference}, &ReferenceError{Entity: "unit or tenant"})
		}

		trail = newAuditTrail(tx)
		if err := trail.leaseCreated(lease); err != nil {
			return err
		}
		if err := syncUnitOnSave(tx, trail, lease); err != nil {
			return err
		}
		if lease.IsActive() {
			notification, err = queueLeaseConfirmation(tx, lease, tenant, unit)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("lease created",
		"lease_id", lease.ID, "unit_id", lease.UnitID, "tenant_id", lease.TenantID,
		"status", lease.Status, "correlation_id", trail.correlationID)
	if notification != nil {
		s.log.Info("lease confirmation queued", "notification_id", notification.ID, "recipient", notification.Recipient)
	}
	return lease, nil
}

// Update changes a lease and re-applies the availability rule. When the
// resulting lease is active its dates are checked against the unit's other
// active leases. Moving a lease to another unit re-evaluates both units.
func (s *LeaseService) Update(ctx context.Context, id uint, upd LeaseUpdate) (*models.LeaseContract, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unitIDs := []uint{current.UnitID}
	if upd.UnitID != nil {
		unitIDs = append(unitIDs, *upd.UnitID)
	}
	unlock, err := s.lockUnits(ctx, unitIDs...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var lease models.LeaseContract
	var trail *auditTrail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lease, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("lease", id)
			}
			return fmt.Errorf("load lease %d: %w", id, err)
		}
		before := lease
		upd.apply(&lease)

		v := validation.Violations{}
		validateLease(&lease, v)
		if err := invalid(v); err != nil {
			return err
		}
		rows := []uint{before.UnitID, lease.UnitID}
		slices.Sort(rows)
		for _, unitID := range slices.Compact(rows) {
			if _, err := lockUnit(tx, unitID); err != nil {
				return err
			}
		}
		if lease.TenantID != before.TenantID {
			if _, err := loadTenant(tx, lease.TenantID); err != nil {
				return err
			}
		}
		if lease.IsActive() {
			if err := checkOverlap(tx, lease.UnitID, lease.ID, lease.StartDate, lease.EndDate); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(&lease).Error; err != nil {
			return translateWrite(err, "update lease", nil, &ReferenceError{Entity: "unit or tenant"})
		}

		trail = newAuditTrail(tx)
		if err := trail.leaseChanged(&before, &lease); err != nil {
			return err
		}
		if err := syncUnitOnSave(tx, trail, &lease); err != nil {
			return err
		}
		if before.UnitID != lease.UnitID {
			return syncUnitOnDelete(tx, trail, before.UnitID, lease.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("lease updated", "lease_id", lease.ID, "unit_id", lease.UnitID,
		"status", lease.Status, "correlation_id", trail.correlationID)
	return &lease, nil
}

// Delete removes a lease and releases its unit when no other active lease
// holds it.
func (s *LeaseService) Delete(ctx context.Context, id uint) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	unlock, err := s.lockUnits(ctx, current.UnitID)
	if err != nil {
		return err
	}
	defer unlock()

	var trail *auditTrail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockUnit(tx, current.UnitID); err != nil {
			return err
		}
		res := tx.Delete(&models.LeaseContract{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete lease %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("lease", id)
		}
		trail = newAuditTrail(tx)
		if err := trail.leaseDeleted(current); err != nil {
			return err
		}
		return syncUnitOnDelete(tx, trail, current.UnitID, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("lease deleted", "lease_id", id, "unit_id", current.UnitID, "correlation_id", trail.correlationID)
	return nil
}

// Get returns a lease by ID.
func (s *LeaseService) Get(ctx context.Context, id uint) (*models.LeaseContract, error) {
	var lease models.LeaseContract
	err := s.db.WithContext(ctx).First(&lease, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("lease", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get lease %d: %w", id, err)
	}
	return &lease, nil
}

// GetByReference returns a lease by its public reference.
func (s *LeaseService) GetByReference(ctx context.Context, ref string) (*models.LeaseContract, error) {
	v := validation.Violations{}
	validation.Required("reference", ref, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	var lease models.LeaseContract
	err := s.db.WithContext(ctx).Where("reference = ?", ref).First(&lease).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lease %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lease %q: %w", ref, err)
	}
	return &lease, nil
}

// ListByUnit returns the unit's lease history, most recent start first.
func (s *LeaseService) ListByUnit(ctx context.Context, unitID uint) ([]models.LeaseContract, error) {
	return s.list(ctx, "unit_id = ?", unitID)
}

// ListByTenant returns the tenant's leases, most recent start first.
func (s *LeaseService) ListByTenant(ctx context.Context, tenantID uint) ([]models.LeaseContract, error) {
	return s.list(ctx, "tenant_id = ?", tenantID)
}

func (s *LeaseService) list(ctx context.Context, query string, args ...interface{}) ([]models.LeaseContract, error) {
	var leases []models.LeaseContract
	if err := s.db.WithContext(ctx).Where(query, args...).
		Order("start_date DESC").Order("id DESC").
		Find(&leases).Error; err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	return leases, nil
}

func loadTenant(tx *gorm.DB, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := tx.First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ReferenceError{Entity: "tenant", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load tenant %d: %w", id, err)
	}
	return &tenant, nil
}
