package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

// billsRepo implements the BillsRepo interface on PostgreSQL.
type billsRepo struct {
	db *pgxpool.Pool
}

// NewBillsRepo creates a new bills repository.
func NewBillsRepo(db *pgxpool.Pool) BillsRepo {
	return &billsRepo{db: db}
}

// Create inserts a new bill.
func (r *billsRepo) Create(ctx context.Context, bill *domain.Bill) error {
	query := `
		INSERT INTO bills (id, user_id, transaction_id, amount, date, description, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now().UTC().Truncate(time.Microsecond)
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	bill.Date = bill.Date.UTC().Truncate(time.Microsecond)
	bill.Version = 1
	bill.CreatedAt = now
	bill.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		bill.ID, bill.UserID, bill.TransactionID, bill.Amount, bill.Date,
		bill.Description, bill.Version, bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill with its user and transaction.
func (r *billsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BillDetails, error) {
	details, err := scanBillDetails(r.db.QueryRow(ctx, BuildBillByIDQuery(DollarPlaceholder), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bill %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bill by ID: %w", err)
	}

	return details, nil
}

// List retrieves bills matching the filter.
func (r *billsRepo) List(ctx context.Context, filter *domain.BillFilter) ([]*domain.BillDetails, error) {
	query, args := BuildBillQuery(filter, DollarPlaceholder)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute bill query: %w", err)
	}
	defer rows.Close()

	bills := []*domain.BillDetails{}
	for rows.Next() {
		details, err := scanBillDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, details)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}

	return bills, nil
}

// Update writes the mutable fields guarded by the version the caller read.
func (r *billsRepo) Update(ctx context.Context, bill *domain.Bill) error {
	query := `
		UPDATE bills
		SET amount = $2, date = $3, description = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6`

	now := time.Now().UTC().Truncate(time.Microsecond)
	bill.Date = bill.Date.UTC().Truncate(time.Microsecond)

	result, err := r.db.Exec(ctx, query, bill.ID, bill.Amount, bill.Date, bill.Description, now, bill.Version)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		var current int
		checkErr := r.db.QueryRow(ctx, `SELECT version FROM bills WHERE id = $1`, bill.ID).Scan(&current)
		if errors.Is(checkErr, pgx.ErrNoRows) {
			return fmt.Errorf("bill %s: %w", bill.ID, domain.ErrNotFound)
		} else if checkErr != nil {
			return fmt.Errorf("failed to check bill version: %w", checkErr)
		}
		return fmt.Errorf("bill %s changed concurrently (have version %d, stored %d): %w",
			bill.ID, bill.Version, current, domain.ErrConflict)
	}

	bill.Version++
	bill.UpdatedAt = now
	return nil
}

// Delete removes a bill by ID.
func (r *billsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("bill %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// scanBillDetails scans one row of the joined bill projection.
func scanBillDetails(row pgx.Row) (*domain.BillDetails, error) {
	var d domain.BillDetails
	var txType string

	err := row.Scan(
		&d.Bill.ID,
		&d.Bill.UserID,
		&d.Bill.TransactionID,
		&d.Bill.Amount,
		&d.Bill.Date,
		&d.Bill.Description,
		&d.Bill.Version,
		&d.Bill.CreatedAt,
		&d.Bill.UpdatedAt,
		&d.User.ID,
		&d.User.Username,
		&d.User.CreatedAt,
		&d.Transaction.ID,
		&d.Transaction.Name,
		&txType,
		&d.Transaction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Transaction.Type = domain.TransactionType(txType)
	d.Bill.Date = d.Bill.Date.UTC()
	d.Bill.CreatedAt = d.Bill.CreatedAt.UTC()
	d.Bill.UpdatedAt = d.Bill.UpdatedAt.UTC()

	return &d, nil
}
