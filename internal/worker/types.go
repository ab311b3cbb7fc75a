// Package worker provides asynchronous writing of bill audit records.
package worker

import (
	"time"

	"github.com/google/uuid"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

// AuditJob is one audit record waiting to be written.
type AuditJob struct {
	ID         uuid.UUID          `json:"id"`
	EntityType domain.EntityType  `json:"entity_type"`
	EntityID   uuid.UUID          `json:"entity_id"`
	Action     domain.AuditAction `json:"action"`
	Details    interface{}        `json:"details,omitempty"`
	Enqueued   time.Time          `json:"enqueued"`
}

// JobQueue represents the channels for job submission and control.
type JobQueue struct {
	SubmitChan chan *AuditJob // Channel for submitting jobs
	QuitChan   chan struct{}  // Closed on shutdown
}

// NewJobQueue creates a new job queue with the specified buffer size.
func NewJobQueue(bufferSize int) *JobQueue {
	return &JobQueue{
		SubmitChan: make(chan *AuditJob, bufferSize),
		QuitChan:   make(chan struct{}),
	}
}

// NewBillAuditJob snapshots a bill change into a job.
func NewBillAuditJob(bill *domain.Bill, action domain.AuditAction) *AuditJob {
	return &AuditJob{
		ID:         uuid.New(),
		EntityType: domain.EntityBill,
		EntityID:   bill.ID,
		Action:     action,
		Details:    bill.AuditDetails(),
		Enqueued:   time.Now(),
	}
}
