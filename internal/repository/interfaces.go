// Package repository defines interfaces for data access.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

// BillsRepo defines the interface for bill data operations.
// Every read joins the owning user and transaction.
type BillsRepo interface {
	// Create inserts a new bill. ID, version and timestamps are assigned here.
	Create(ctx context.Context, bill *domain.Bill) error

	// GetByID retrieves a bill with its user and transaction.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BillDetails, error)

	// List retrieves bills matching every present predicate of the filter.
	List(ctx context.Context, filter *domain.BillFilter) ([]*domain.BillDetails, error)

	// Update writes amount, date and description if the stored version still
	// equals bill.Version, then bumps the version.
	Update(ctx context.Context, bill *domain.Bill) error

	// Delete removes a bill by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UsersRepo defines the user lookups the ledger needs.
type UsersRepo interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// TransactionsRepo defines the transaction lookups the ledger needs.
type TransactionsRepo interface {
	// Create creates a new transaction.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// AuditRepo defines the interface for audit log operations.
type AuditRepo interface {
	// Log creates a new audit log entry.
	Log(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, action domain.AuditAction, details interface{}) error

	// ListForEntity retrieves audit logs for a specific entity, newest first.
	ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]*domain.AuditLog, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories aggregates all repository interfaces.
type Repositories struct {
	Bills        BillsRepo
	Users        UsersRepo
	Transactions TransactionsRepo
	Audit        AuditRepo
	Health       Pinger
}
