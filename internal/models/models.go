// Package models holds the persisted rental entities and the pure
// calculations derived from them.
package models

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&Owner{},
		&Building{},
		&Unit{},
		&Tenant{},
		&LeaseContract{},
		&ChargeDistribution{},
		&AuditLog{},
		&Notification{},
	}
}
