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

// transactionsRepo implements the TransactionsRepo interface.
type transactionsRepo struct {
	db *pgxpool.Pool
}

// NewTransactionsRepo creates a new transactions repository.
func NewTransactionsRepo(db *pgxpool.Pool) TransactionsRepo {
	return &transactionsRepo{db: db}
}

// Create creates a new transaction.
func (r *transactionsRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, name, type, created_at)
		VALUES ($1, $2, $3, $4)`

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := r.db.Exec(ctx, query, tx.ID, tx.Name, string(tx.Type), tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a transaction by ID.
func (r *transactionsRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT id, name, type, created_at
		FROM transactions
		WHERE id = $1`

	var tx domain.Transaction
	var txType string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tx.ID,
		&tx.Name,
		&txType,
		&tx.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}

	tx.Type = domain.TransactionType(txType)
	return &tx, nil
}
