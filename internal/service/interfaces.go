// Package service defines interfaces for business logic services.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/worker"
)

// BillService defines the bill ledger operations. Identifiers arrive as raw
// strings from the transport and are parsed here.
type BillService interface {
	// ListAll retrieves every bill with its user and transaction.
	ListAll(ctx context.Context) ([]*domain.BillResponse, error)

	// Create records a bill for a user and transaction.
	Create(ctx context.Context, userID, transactionID string, req *domain.CreateBillRequest) (*domain.BillResponse, error)

	// GetByID retrieves a bill by ID.
	GetByID(ctx context.Context, billID string) (*domain.BillResponse, error)

	// Update overwrites the fields present in req.
	Update(ctx context.Context, billID string, req *domain.UpdateBillRequest) (*domain.BillResponse, error)

	// Delete removes a bill.
	Delete(ctx context.Context, billID string) error

	// ListByUser retrieves the bills of a user.
	ListByUser(ctx context.Context, userID string) ([]*domain.BillResponse, error)

	// ListByUserAndTransaction retrieves the bills of a user for one transaction.
	ListByUserAndTransaction(ctx context.Context, userID, transactionID string) ([]*domain.BillResponse, error)

	// ListIncomeByUser retrieves the bills of a user whose transaction is income.
	ListIncomeByUser(ctx context.Context, userID string) ([]*domain.BillResponse, error)

	// ListExpenseByUser retrieves the bills of a user whose transaction is expense.
	ListExpenseByUser(ctx context.Context, userID string) ([]*domain.BillResponse, error)
}

// CacheService defines the interface for caching operations
type CacheService interface {
	// Bill view cache operations. CacheBill ignores views older than the
	// minVersion of the last InvalidateBill for that bill.
	CacheBill(ctx context.Context, bill *domain.BillResponse) error
	GetCachedBill(ctx context.Context, billID uuid.UUID) (*domain.BillResponse, error)
	InvalidateBill(ctx context.Context, billID uuid.UUID, minVersion int) error

	// Rate limiting
	CheckRateLimit(ctx context.Context, clientIP string, maxRequests int, window time.Duration) (bool, error)

	// Health checks cache connectivity.
	Health(ctx context.Context) error
}

// AuditQueue accepts audit jobs for background writing. Submit reports
// false when the job was not queued.
type AuditQueue interface {
	Submit(job *worker.AuditJob) bool
}

// Services aggregates all service interfaces.
type Services struct {
	Bill  BillService
	Cache CacheService
}
