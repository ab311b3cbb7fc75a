package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a transaction, and through it every bill linked to it.
type TransactionType string

const (
	// TypeIncome marks money coming in
	TypeIncome TransactionType = "income"
	// TypeExpense marks money going out
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ParseTransactionType parses a case-insensitive transaction type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid type, must be 'income' or 'expense'")
	}
	return t, nil
}

// Transaction is the category a bill is booked against. Read-only for the ledger.
type Transaction struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Type      TransactionType `json:"type" db:"type"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// TransactionSummary is the transaction part embedded in a bill view.
type TransactionSummary struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Type TransactionType `json:"type"`
}

// ToSummary converts a Transaction to the embedded TransactionSummary.
func (t *Transaction) ToSummary() TransactionSummary {
	return TransactionSummary{
		ID:   t.ID,
		Name: t.Name,
		Type: t.Type,
	}
}

// Validate validates the transaction data.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name: name is required")
	}
	if len(t.Name) > 100 {
		return fmt.Errorf("name: name must be at most 100 characters")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("type: invalid type, must be 'income' or 'expense'")
	}
	return nil
}
