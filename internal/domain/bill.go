package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill amounts are stored with cent precision.
const AmountScale = 2

const maxDescriptionLength = 500

var maxAmount = decimal.NewFromInt(1_000_000_000)

// Bill is the stored ledger entry. UserID and TransactionID are write-once.
type Bill struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	TransactionID uuid.UUID       `json:"transaction_id" db:"transaction_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Date          time.Time       `json:"date" db:"date"`
	Description   string          `json:"description" db:"description"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// BillDetails is a bill with its user and transaction resolved.
// Every read from the store returns this shape.
type BillDetails struct {
	Bill        Bill
	User        User
	Transaction Transaction
}

// Type returns the classification inherited from the linked transaction.
func (d *BillDetails) Type() TransactionType {
	return d.Transaction.Type
}

// BillFilter selects bills. Present predicates are combined with AND.
type BillFilter struct {
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	TransactionID *uuid.UUID       `json:"transaction_id,omitempty"`
	Type          *TransactionType `json:"type,omitempty"`
}

// Date is a request timestamp that accepts RFC 3339 or a bare calendar date.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses the accepted date layouts. Bare dates are taken as UTC midnight.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}

	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}

	return fmt.Errorf("invalid date %q, expected RFC 3339 or YYYY-MM-DD", s)
}

// MarshalJSON writes the date in RFC 3339.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

// CreateBillRequest is the payload for creating a bill. The user and transaction
// come from the route, never from the body. ID is accepted and ignored; the
// store assigns identities.
type CreateBillRequest struct {
	ID          *uuid.UUID       `json:"id,omitempty"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *Date            `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// UpdateBillRequest is a partial update; nil fields are left untouched.
// ID is accepted and ignored; the route names the bill.
type UpdateBillRequest struct {
	ID          *uuid.UUID       `json:"id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        *Date            `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// Validate validates the create bill request.
func (r *CreateBillRequest) Validate() error {
	if r.Amount == nil {
		return fmt.Errorf("amount: amount is required")
	}
	if err := validateAmount(*r.Amount); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return fmt.Errorf("description: %w", err)
		}
	}
	return nil
}

// Validate validates the update bill request.
func (r *UpdateBillRequest) Validate() error {
	if r.Amount != nil {
		if err := validateAmount(*r.Amount); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return fmt.Errorf("description: %w", err)
		}
	}
	return nil
}

// IsEmpty reports whether the update carries no field at all.
func (r *UpdateBillRequest) IsEmpty() bool {
	return r.Amount == nil && r.Date == nil && r.Description == nil
}

// NewBill builds an unsaved bill bound to the given user and transaction.
// A missing date defaults to now.
func NewBill(userID, transactionID uuid.UUID, req *CreateBillRequest, now time.Time) *Bill {
	bill := &Bill{
		UserID:        userID,
		TransactionID: transactionID,
		Date:          now.UTC(),
	}
	if req.Amount != nil {
		bill.Amount = req.Amount.Round(AmountScale)
	}
	if req.Date != nil {
		bill.Date = req.Date.Time.UTC()
	}
	if req.Description != nil {
		bill.Description = *req.Description
	}
	return bill
}

// Apply merges the present fields of req into b and reports whether anything changed.
func (b *Bill) Apply(req *UpdateBillRequest) bool {
	changed := false

	if req.Amount != nil {
		amount := req.Amount.Round(AmountScale)
		if !amount.Equal(b.Amount) {
			b.Amount = amount
			changed = true
		}
	}
	if req.Date != nil {
		date := req.Date.Time.UTC()
		if !date.Equal(b.Date) {
			b.Date = date
			changed = true
		}
	}
	if req.Description != nil && *req.Description != b.Description {
		b.Description = *req.Description
		changed = true
	}

	return changed
}

// BillResponse is the flattened view of a bill returned to callers.
type BillResponse struct {
	ID          uuid.UUID          `json:"id"`
	Amount      decimal.Decimal    `json:"amount"`
	Date        time.Time          `json:"date"`
	Description string             `json:"description,omitempty"`
	Type        TransactionType    `json:"type"`
	User        UserSummary        `json:"user"`
	Transaction TransactionSummary `json:"transaction"`
	Version     int                `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// MarshalJSON renders the amount with cent precision.
func (r BillResponse) MarshalJSON() ([]byte, error) {
	type view BillResponse
	return json.Marshal(struct {
		view
		Amount string `json:"amount"`
	}{
		view:   view(r),
		Amount: r.Amount.StringFixed(AmountScale),
	})
}

// ToResponse converts BillDetails to BillResponse.
func (d *BillDetails) ToResponse() BillResponse {
	return BillResponse{
		ID:          d.Bill.ID,
		Amount:      d.Bill.Amount,
		Date:        d.Bill.Date,
		Description: d.Bill.Description,
		Type:        d.Type(),
		User:        d.User.ToSummary(),
		Transaction: d.Transaction.ToSummary(),
		Version:     d.Bill.Version,
		CreatedAt:   d.Bill.CreatedAt,
		UpdatedAt:   d.Bill.UpdatedAt,
	}
}

// validateAmount validates a bill amount. Negative amounts are allowed.
func validateAmount(amount decimal.Decimal) error {
	if amount.Abs().GreaterThan(maxAmount) {
		return fmt.Errorf("amount cannot exceed 1,000,000,000 in absolute value")
	}
	return nil
}

// validateDescription validates description length.
func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return fmt.Errorf("description must be at most %d characters", maxDescriptionLength)
	}
	return nil
}
