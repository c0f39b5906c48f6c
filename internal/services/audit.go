package services

import (
	"fmt"
	"strconv"

	"github.com/diewo77/go-rentals/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// auditTrail writes AuditLog rows inside the caller's transaction, all
// sharing one correlation ID.
type auditTrail struct {
	tx            *gorm.DB
	correlationID string
}

func newAuditTrail(tx *gorm.DB) *auditTrail {
	return &auditTrail{tx: tx, correlationID: uuid.NewString()}
}

func (a *auditTrail) record(entityType string, id uint, action, field, oldValue, newValue string) error {
	entry := models.AuditLog{
		CorrelationID: a.correlationID,
		EntityType:    entityType,
		EntityID:      id,
		Action:        action,
		Field:         field,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := a.tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit %s %d: %w", entityType, id, err)
	}
	return nil
}

func (a *auditTrail) leaseCreated(l *models.LeaseContract) error {
	return a.record("lease", l.ID, models.AuditActionCreate, "", "", leaseSummary(l))
}

func (a *auditTrail) leaseDeleted(l *models.LeaseContract) error {
	return a.record("lease", l.ID, models.AuditActionDelete, "", leaseSummary(l), "")
}

// leaseChanged writes one row per modified field.
func (a *auditTrail) leaseChanged(before, after *models.LeaseContract) error {
	for _, c := range leaseDiff(before, after) {
		if err := a.record("lease", after.ID, models.AuditActionUpdate, c.field, c.old, c.new); err != nil {
			return err
		}
	}
	return nil
}

func (a *auditTrail) availabilityChanged(unitID uint, from, to bool) error {
	return a.record("unit", unitID, models.AuditActionUpdate, "is_available",
		strconv.FormatBool(from), strconv.FormatBool(to))
}

type fieldChange struct {
	field, old, new string
}

func leaseDiff(before, after *models.LeaseContract) []fieldChange {
	var out []fieldChange
	add := func(field, o, n string) {
		if o != n {
			out = append(out, fieldChange{field, o, n})
		}
	}
	add("unit_id", strconv.FormatUint(uint64(before.UnitID), 10), strconv.FormatUint(uint64(after.UnitID), 10))
	add("tenant_id", strconv.FormatUint(uint64(before.TenantID), 10), strconv.FormatUint(uint64(after.TenantID), 10))
	add("lease_type", string(before.LeaseType), string(after.LeaseType))
	add("status", string(before.Status), string(after.Status))
	add("start_date", models.FormatDay(before.StartDate), models.FormatDay(after.StartDate))
	add("end_date", models.FormatDayPtr(before.EndDate), models.FormatDayPtr(after.EndDate))
	add("flat_rate_charges", before.FlatRateCharges.StringFixed(2), after.FlatRateCharges.StringFixed(2))
	add("deposit_amount", before.DepositAmount.StringFixed(2), after.DepositAmount.StringFixed(2))
	add("has_solidarity_clause", strconv.FormatBool(before.HasSolidarityClause), strconv.FormatBool(after.HasSolidarityClause))
	add("contract_document", before.ContractDocument, after.ContractDocument)
	add("notes", before.Notes, after.Notes)
	return out
}

func leaseSummary(l *models.LeaseContract) string {
	return fmt.Sprintf("unit=%d tenant=%d type=%s status=%s period=%s",
		l.UnitID, l.TenantID, l.LeaseType, l.Status, l.Period())
}

// queueLeaseConfirmation writes the tenant confirmation to the outbox.
func queueLeaseConfirmation(tx *gorm.DB, l *models.LeaseContract, tenant *models.Tenant, unit *models.Unit) (*models.Notification, error) {
	leaseID := l.ID
	n := models.Notification{
		TenantID:  tenant.ID,
		LeaseID:   &leaseID,
		Type:      models.NotificationLeaseConfirmation,
		Recipient: tenant.Email,
		Title:     fmt.Sprintf("Lease confirmation - unit %s", unit.UnitNumber),
		Message: fmt.Sprintf("Dear %s,\n\nYour lease %s for unit %s is active from %s to %s.\nMonthly amount: %s.\nDeposit: %s.\n",
			tenant.FullName(), l.Reference, unit.UnitNumber,
			models.FormatDay(l.StartDate), models.FormatDayPtr(l.EndDate),
			l.TotalMonthlyAmount(unit).StringFixed(2), l.DepositAmount.StringFixed(2)),
	}
	if err := tx.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("queue lease confirmation: %w", err)
	}
	return &n, nil
}
