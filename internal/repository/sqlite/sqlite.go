// Package sqlite provides a SQLite-backed implementation of the repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store owns the SQLite connection shared by the repositories.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath, creating parent directories,
// and runs migrations automatically.
func New(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps PRAGMAs and :memory: databases consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate re-applies the schema. New already does this; it exists for the migrate command.
func (s *Store) Migrate(ctx context.Context) error {
	if err := runMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks if the database connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repositories wires the SQLite implementations of every repository.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Bills:        &billsRepo{db: s.db},
		Users:        &usersRepo{db: s.db},
		Transactions: &transactionsRepo{db: s.db},
		Audit:        &auditRepo{db: s.db},
		Health:       s,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// billsRepo implements repository.BillsRepo on SQLite.
type billsRepo struct {
	db *sql.DB
}

// Create inserts a new bill.
func (r *billsRepo) Create(ctx context.Context, bill *domain.Bill) error {
	now := time.Now().UTC()
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	bill.Date = bill.Date.UTC()
	bill.Version = 1
	bill.CreatedAt = now
	bill.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, user_id, transaction_id, amount, date, description, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.UserID, bill.TransactionID, bill.Amount.StringFixed(domain.AmountScale),
		formatTime(bill.Date), bill.Description, bill.Version, formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	return nil
}

// GetByID retrieves a bill with its user and transaction.
func (r *billsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BillDetails, error) {
	row := r.db.QueryRowContext(ctx, repository.BuildBillByIDQuery(repository.QuestionPlaceholder), id)
	details, err := scanBillDetails(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bill %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return details, nil
}

// List retrieves bills matching the filter.
func (r *billsRepo) List(ctx context.Context, filter *domain.BillFilter) ([]*domain.BillDetails, error) {
	query, args := repository.BuildBillQuery(filter, repository.QuestionPlaceholder)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
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
	now := time.Now().UTC()
	bill.Date = bill.Date.UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE bills
		SET amount = ?, date = ?, description = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		bill.Amount.StringFixed(domain.AmountScale), formatTime(bill.Date), bill.Description,
		formatTime(now), bill.ID, bill.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		var current int
		checkErr := r.db.QueryRowContext(ctx, "SELECT version FROM bills WHERE id = ?", bill.ID).Scan(&current)
		if errors.Is(checkErr, sql.ErrNoRows) {
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
	result, err := r.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bill %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBillDetails scans one row of the joined bill projection.
func scanBillDetails(row rowScanner) (*domain.BillDetails, error) {
	var d domain.BillDetails
	var amount, date, createdAt, updatedAt, userCreatedAt, txType, txCreatedAt string

	err := row.Scan(
		&d.Bill.ID,
		&d.Bill.UserID,
		&d.Bill.TransactionID,
		&amount,
		&date,
		&d.Bill.Description,
		&d.Bill.Version,
		&createdAt,
		&updatedAt,
		&d.User.ID,
		&d.User.Username,
		&userCreatedAt,
		&d.Transaction.ID,
		&d.Transaction.Name,
		&txType,
		&txCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := d.Bill.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	d.Transaction.Type = domain.TransactionType(txType)

	for _, ts := range []struct {
		dst *time.Time
		raw string
	}{
		{&d.Bill.Date, date},
		{&d.Bill.CreatedAt, createdAt},
		{&d.Bill.UpdatedAt, updatedAt},
		{&d.User.CreatedAt, userCreatedAt},
		{&d.Transaction.CreatedAt, txCreatedAt},
	} {
		parsed, err := parseTime(ts.raw)
		if err != nil {
			return nil, err
		}
		*ts.dst = parsed
	}

	return &d, nil
}

// usersRepo implements repository.UsersRepo on SQLite.
type usersRepo struct {
	db *sql.DB
}

// Create creates a new user.
func (r *usersRepo) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)",
		user.ID, user.Username, formatTime(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *usersRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, created_at FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.Username, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// transactionsRepo implements repository.TransactionsRepo on SQLite.
type transactionsRepo struct {
	db *sql.DB
}

// Create creates a new transaction.
func (r *transactionsRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO transactions (id, name, type, created_at) VALUES (?, ?, ?, ?)",
		tx.ID, tx.Name, string(tx.Type), formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID.
func (r *transactionsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, type, created_at FROM transactions WHERE id = ?", id,
	).Scan(&tx.ID, &tx.Name, &txType, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	tx.Type = domain.TransactionType(txType)
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

// auditRepo implements repository.AuditRepo on SQLite.
type auditRepo struct {
	db *sql.DB
}

// Log creates a new audit log entry.
func (r *auditRepo) Log(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, action domain.AuditAction, details interface{}) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, entity_type, entity_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New(), string(entityType), entityID, string(action), detailsJSON, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListForEntity retrieves audit logs for a specific entity, newest first.
func (r *auditRepo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action, details, created_at
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC`
	args := []interface{}{string(entityType), entityID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		var entity, action, createdAt string
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entity, &entry.EntityID, &action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.EntityType = domain.EntityType(entity)
		entry.Action = domain.AuditAction(action)
		if details.Valid {
			entry.Details = json.RawMessage(details.String)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}

	return logs, nil
}

var (
	_ repository.BillsRepo        = (*billsRepo)(nil)
	_ repository.UsersRepo        = (*usersRepo)(nil)
	_ repository.TransactionsRepo = (*transactionsRepo)(nil)
	_ repository.AuditRepo        = (*auditRepo)(nil)
	_ repository.Pinger           = (*Store)(nil)
)
