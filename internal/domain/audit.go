package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog represents an audit log entry.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	EntityType EntityType      `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Action     AuditAction     `json:"action" db:"action"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// EntityType defines valid entity types for audit logs.
type EntityType string

const (
	// EntityBill represents bill entity type for audit logs
	EntityBill EntityType = "bill"
)

// AuditAction defines audit actions.
type AuditAction string

const (
	// ActionCreated represents create action for audit logs
	ActionCreated AuditAction = "created"
	// ActionUpdated represents update action for audit logs
	ActionUpdated AuditAction = "updated"
	// ActionDeleted represents delete action for audit logs
	ActionDeleted AuditAction = "deleted"
)

// BillAuditDetails is the snapshot stored with every bill audit entry.
type BillAuditDetails struct {
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description,omitempty"`
	Version       int       `json:"version"`
}

// AuditDetails snapshots the bill for an audit entry.
func (b *Bill) AuditDetails() BillAuditDetails {
	return BillAuditDetails{
		UserID:        b.UserID,
		TransactionID: b.TransactionID,
		Amount:        b.Amount.StringFixed(AmountScale),
		Date:          b.Date,
		Description:   b.Description,
		Version:       b.Version,
	}
}
