package repository

import (
	"fmt"
	"strings"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

// Placeholder renders the n-th (1-based) bind parameter of a SQL dialect.
type Placeholder func(n int) string

// DollarPlaceholder renders PostgreSQL parameters ($1, $2, ...).
func DollarPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// QuestionPlaceholder renders SQLite parameters (?).
func QuestionPlaceholder(int) string {
	return "?"
}

// billColumns is the joined projection every bill read returns, in scan order.
const billColumns = `
		SELECT b.id, b.user_id, b.transaction_id, b.amount, b.date, b.description, b.version, b.created_at, b.updated_at,
			u.id, u.username, u.created_at,
			t.id, t.name, t.type, t.created_at
		FROM bills b
		JOIN users u ON u.id = b.user_id
		JOIN transactions t ON t.id = b.transaction_id`

// BuildBillQuery composes the joined bill listing for a filter. Present predicates
// are combined with AND; the transaction type is matched on the joined row.
func BuildBillQuery(filter *domain.BillFilter, ph Placeholder) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{}
	argIndex := 1

	if filter != nil {
		if filter.UserID != nil {
			conditions = append(conditions, "b.user_id = "+ph(argIndex))
			args = append(args, *filter.UserID)
			argIndex++
		}

		if filter.TransactionID != nil {
			conditions = append(conditions, "b.transaction_id = "+ph(argIndex))
			args = append(args, *filter.TransactionID)
			argIndex++
		}

		if filter.Type != nil {
			conditions = append(conditions, "t.type = "+ph(argIndex))
			args = append(args, string(*filter.Type))
		}
	}

	query := billColumns + `
		WHERE 1=1`
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.date DESC, b.id"

	return query, args
}

// BuildBillByIDQuery composes the joined lookup of a single bill.
func BuildBillByIDQuery(ph Placeholder) string {
	return billColumns + `
		WHERE b.id = ` + ph(1)
}
