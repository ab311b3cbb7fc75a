package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
	"github.com/sefa-b/go-bill-ledger/internal/utils"
	"github.com/sefa-b/go-bill-ledger/internal/worker"
)

// deletedVersion is the cache floor of a deleted bill; no view reaches it.
const deletedVersion = math.MaxInt32

// BillServiceOptions configures a BillService.
type BillServiceOptions struct {
	// EnforceReferences checks that the user and transaction exist before a
	// bill is created. Without it only the store's foreign keys apply.
	EnforceReferences bool

	// Cache is optional; a nil cache disables the bill view cache.
	Cache CacheService

	// Metrics is optional.
	Metrics *utils.MetricsCollector

	// AuditQueue writes audit records in the background. When nil or full,
	// records are written inline.
	AuditQueue AuditQueue

	// Now overrides the clock used for defaulted bill dates.
	Now func() time.Time
}

// BillServiceImpl implements the BillService interface.
type BillServiceImpl struct {
	repos             *repository.Repositories
	cache             CacheService
	metrics           *utils.MetricsCollector
	auditQueue        AuditQueue
	enforceReferences bool
	now               func() time.Time
	tracer            trace.Tracer
}

// NewBillService creates a new bill service.
func NewBillService(repos *repository.Repositories, opts BillServiceOptions) *BillServiceImpl {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &BillServiceImpl{
		repos:             repos,
		cache:             opts.Cache,
		metrics:           opts.Metrics,
		auditQueue:        opts.AuditQueue,
		enforceReferences: opts.EnforceReferences,
		now:               now,
		tracer:            utils.GetTracer("bill-service"),
	}
}

// ListAll retrieves every bill with its user and transaction.
func (s *BillServiceImpl) ListAll(ctx context.Context) (bills []*domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.ListAll")
	defer func() { s.finish(span, "list_all", err) }()

	return s.list(ctx, &domain.BillFilter{})
}

// Create records a bill for a user and transaction.
func (s *BillServiceImpl) Create(ctx context.Context, userID, transactionID string, req *domain.CreateBillRequest) (resp *domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.Create",
		trace.WithAttributes(attribute.String("user_id", userID), attribute.String("transaction_id", transactionID)))
	defer func() { s.finish(span, "create", err) }()

	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("transaction", transactionID)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, fmt.Errorf("request body is required: %w", domain.ErrInvalidArgument)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidArgument)
	}

	if s.enforceReferences {
		if _, err := s.repos.Users.GetByID(ctx, uid); err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if _, err := s.repos.Transactions.GetByID(ctx, tid); err != nil {
			return nil, fmt.Errorf("failed to get transaction: %w", err)
		}
	}

	bill := domain.NewBill(uid, tid, req, s.now())
	if err := s.repos.Bills.Create(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	details, err := s.repos.Bills.GetByID(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created bill: %w", err)
	}

	s.audit(ctx, &details.Bill, domain.ActionCreated)

	utils.Info("bill created",
		"bill_id", bill.ID.String(),
		"user_id", uid.String(),
		"transaction_id", tid.String(),
		"type", string(details.Type()),
	)

	response := details.ToResponse()
	return &response, nil
}

// GetByID retrieves a bill by ID.
func (s *BillServiceImpl) GetByID(ctx context.Context, billID string) (resp *domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.GetByID", trace.WithAttributes(attribute.String("bill_id", billID)))
	defer func() { s.finish(span, "get", err) }()

	id, err := parseID("bill", billID)
	if err != nil {
		return nil, err
	}

	// Try cache first if available
	if s.cache != nil {
		cached, err := s.cache.GetCachedBill(ctx, id)
		if err == nil {
			s.recordCacheLookup(true)
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
		s.recordCacheLookup(false)
		if !errors.Is(err, repository.ErrCacheMiss) {
			utils.Warn("bill cache unavailable", "bill_id", id.String(), "error", err.Error())
		}
	}

	details, err := s.repos.Bills.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	response := details.ToResponse()

	if s.cache != nil {
		if err := s.cache.CacheBill(ctx, &response); err != nil {
			utils.Warn("failed to cache bill", "bill_id", id.String(), "error", err.Error())
		}
	}

	return &response, nil
}

// Update overwrites the fields present in req. The write only succeeds if the
// bill is unchanged since it was read.
func (s *BillServiceImpl) Update(ctx context.Context, billID string, req *domain.UpdateBillRequest) (resp *domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.Update", trace.WithAttributes(attribute.String("bill_id", billID)))
	defer func() { s.finish(span, "update", err) }()

	id, err := parseID("bill", billID)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, fmt.Errorf("request body is required: %w", domain.ErrInvalidArgument)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidArgument)
	}

	details, err := s.repos.Bills.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if !details.Bill.Apply(req) {
		response := details.ToResponse()
		return &response, nil
	}

	if err := s.repos.Bills.Update(ctx, &details.Bill); err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}

	s.invalidate(ctx, id, details.Bill.Version)
	s.audit(ctx, &details.Bill, domain.ActionUpdated)

	utils.Info("bill updated", "bill_id", id.String(), "version", details.Bill.Version)

	response := details.ToResponse()
	return &response, nil
}

// Delete removes a bill.
func (s *BillServiceImpl) Delete(ctx context.Context, billID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.Delete", trace.WithAttributes(attribute.String("bill_id", billID)))
	defer func() { s.finish(span, "delete", err) }()

	id, err := parseID("bill", billID)
	if err != nil {
		return err
	}

	details, err := s.repos.Bills.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get bill: %w", err)
	}

	if err := s.repos.Bills.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	s.invalidate(ctx, id, deletedVersion)
	s.audit(ctx, &details.Bill, domain.ActionDeleted)

	utils.Info("bill deleted", "bill_id", id.String())
	return nil
}

// ListByUser retrieves the bills of a user.
func (s *BillServiceImpl) ListByUser(ctx context.Context, userID string) (bills []*domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.ListByUser", trace.WithAttributes(attribute.String("user_id", userID)))
	defer func() { s.finish(span, "list_by_user", err) }()

	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, &domain.BillFilter{UserID: &uid})
}

// ListByUserAndTransaction retrieves the bills of a user for one transaction.
func (s *BillServiceImpl) ListByUserAndTransaction(ctx context.Context, userID, transactionID string) (bills []*domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.ListByUserAndTransaction",
		trace.WithAttributes(attribute.String("user_id", userID), attribute.String("transaction_id", transactionID)))
	defer func() { s.finish(span, "list_by_user_and_transaction", err) }()

	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	tid, err := parseID("transaction", transactionID)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, &domain.BillFilter{UserID: &uid, TransactionID: &tid})
}

// ListIncomeByUser retrieves the bills of a user whose transaction is income.
func (s *BillServiceImpl) ListIncomeByUser(ctx context.Context, userID string) (bills []*domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.ListIncomeByUser", trace.WithAttributes(attribute.String("user_id", userID)))
	defer func() { s.finish(span, "list_income_by_user", err) }()

	return s.listByUserAndType(ctx, userID, domain.TypeIncome)
}

// ListExpenseByUser retrieves the bills of a user whose transaction is expense.
func (s *BillServiceImpl) ListExpenseByUser(ctx context.Context, userID string) (bills []*domain.BillResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "BillService.ListExpenseByUser", trace.WithAttributes(attribute.String("user_id", userID)))
	defer func() { s.finish(span, "list_expense_by_user", err) }()

	return s.listByUserAndType(ctx, userID, domain.TypeExpense)
}

func (s *BillServiceImpl) listByUserAndType(ctx context.Context, userID string, txType domain.TransactionType) ([]*domain.BillResponse, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, &domain.BillFilter{UserID: &uid, Type: &txType})
}

func (s *BillServiceImpl) list(ctx context.Context, filter *domain.BillFilter) ([]*domain.BillResponse, error) {
	bills, err := s.repos.Bills.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	responses := make([]*domain.BillResponse, len(bills))
	for i, details := range bills {
		response := details.ToResponse()
		responses[i] = &response
	}

	return responses, nil
}

// invalidate drops the cached view. Cache failures never fail the request.
func (s *BillServiceImpl) invalidate(ctx context.Context, id uuid.UUID, minVersion int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBill(ctx, id, minVersion); err != nil {
		utils.Warn("failed to invalidate bill cache", "bill_id", id.String(), "error", err.Error())
	}
}

// audit records a bill change when an audit repository is wired.
func (s *BillServiceImpl) audit(ctx context.Context, bill *domain.Bill, action domain.AuditAction) {
	if s.repos.Audit == nil {
		return
	}

	job := worker.NewBillAuditJob(bill, action)
	if s.auditQueue != nil && s.auditQueue.Submit(job) {
		return
	}

	if err := s.repos.Audit.Log(ctx, job.EntityType, job.EntityID, job.Action, job.Details); err != nil {
		utils.Error("failed to log bill audit", "bill_id", bill.ID.String(), "action", string(action), "error", err.Error())
	}
}

func (s *BillServiceImpl) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

// finish closes the operation span and counts the outcome.
func (s *BillServiceImpl) finish(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if s.metrics != nil {
		s.metrics.RecordBillOperation(operation, err)
	}
}

// parseID parses a raw identifier. Empty or malformed values are invalid arguments.
func parseID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s id: %w", kind, domain.ErrInvalidArgument)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, domain.ErrInvalidArgument)
	}
	return id, nil
}
