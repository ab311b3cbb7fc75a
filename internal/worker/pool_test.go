package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

type recordingLogger struct {
	mu      sync.Mutex
	entries []uuid.UUID
	fail    bool
	delay   time.Duration
}

func (l *recordingLogger) Log(_ context.Context, _ domain.EntityType, entityID uuid.UUID, _ domain.AuditAction, _ interface{}) error {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("store unavailable")
	}
	l.entries = append(l.entries, entityID)
	return nil
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func testBill() *domain.Bill {
	return &domain.Bill{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TransactionID: uuid.New(),
		Amount:        decimal.RequireFromString("12.50"),
		Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Version:       1,
	}
}

func TestPoolDrainsQueueOnStop(t *testing.T) {
	logger := &recordingLogger{delay: time.Millisecond}
	pool := NewPool(NewJobQueue(50), logger)
	pool.Start(3)

	for i := 0; i < 20; i++ {
		if !pool.Submit(NewBillAuditJob(testBill(), domain.ActionCreated)) {
			t.Fatalf("job %d rejected", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := logger.count(); got != 20 {
		t.Errorf("expected 20 audit entries after drain, got %d", got)
	}

	stats := pool.GetStats()
	if stats.JobsProcessed != 20 || stats.QueueSize != 0 || stats.ActiveWorkers != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestPoolRejects(t *testing.T) {
	t.Run("full queue", func(t *testing.T) {
		pool := NewPool(NewJobQueue(1), &recordingLogger{})

		if !pool.Submit(NewBillAuditJob(testBill(), domain.ActionCreated)) {
			t.Fatal("first job should fit in the queue")
		}
		if pool.Submit(NewBillAuditJob(testBill(), domain.ActionCreated)) {
			t.Error("expected rejection when the queue is full")
		}
		if pool.GetStats().JobsRejected != 1 {
			t.Errorf("expected 1 rejected job, got %+v", pool.GetStats())
		}
	})

	t.Run("stopped pool", func(t *testing.T) {
		pool := NewPool(NewJobQueue(10), &recordingLogger{})
		pool.Start(1)
		if err := pool.Stop(context.Background()); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if pool.Submit(NewBillAuditJob(testBill(), domain.ActionDeleted)) {
			t.Error("expected rejection after Stop")
		}
		if err := pool.Stop(context.Background()); err != nil {
			t.Errorf("second Stop should be a no-op, got %v", err)
		}
	})
}

func TestPoolCountsFailures(t *testing.T) {
	pool := NewPool(NewJobQueue(10), &recordingLogger{fail: true})
	pool.Start(1)

	pool.Submit(NewBillAuditJob(testBill(), domain.ActionUpdated))
	pool.Submit(&AuditJob{ID: uuid.New(), EntityType: domain.EntityBill, Action: domain.ActionUpdated})

	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	stats := pool.GetStats()
	if stats.JobsFailed != 2 || stats.JobsProcessed != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestNewBillAuditJob(t *testing.T) {
	bill := testBill()
	job := NewBillAuditJob(bill, domain.ActionCreated)

	details, ok := job.Details.(domain.BillAuditDetails)
	if !ok {
		t.Fatalf("unexpected details type %T", job.Details)
	}
	if job.EntityID != bill.ID || job.EntityType != domain.EntityBill || details.Amount != "12.50" {
		t.Errorf("unexpected job %+v", job)
	}
}
