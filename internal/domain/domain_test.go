package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T {
	return &v
}

// Test User validation
func TestUserValidation(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{name: "valid user", user: User{Username: "validuser"}, wantErr: false},
		{name: "invalid username - too short", user: User{Username: "ab"}, wantErr: true},
		{name: "invalid username - bad characters", user: User{Username: "bad user!"}, wantErr: true},
		{name: "empty username", user: User{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("User.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Test Transaction validation
func TestTransactionValidation(t *testing.T) {
	tests := []struct {
		name        string
		transaction Transaction
		wantErr     bool
	}{
		{name: "valid income", transaction: Transaction{Name: "salary", Type: TypeIncome}, wantErr: false},
		{name: "valid expense", transaction: Transaction{Name: "rent", Type: TypeExpense}, wantErr: false},
		{name: "missing name", transaction: Transaction{Name: "  ", Type: TypeExpense}, wantErr: true},
		{name: "invalid type", transaction: Transaction{Name: "rent", Type: "transfer"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.transaction.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Transaction.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		in      string
		want    TransactionType
		wantErr bool
	}{
		{in: "income", want: TypeIncome},
		{in: " EXPENSE ", want: TypeExpense},
		{in: "credit", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTransactionType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTransactionType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTransactionType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Test CreateBillRequest validation
func TestCreateBillRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		request CreateBillRequest
		wantErr bool
	}{
		{
			name:    "valid request",
			request: CreateBillRequest{Amount: ptr(decimal.RequireFromString("100.00")), Description: ptr("rent")},
			wantErr: false,
		},
		{
			name:    "negative amount is allowed",
			request: CreateBillRequest{Amount: ptr(decimal.RequireFromString("-42.10"))},
			wantErr: false,
		},
		{
			name:    "missing amount",
			request: CreateBillRequest{Description: ptr("rent")},
			wantErr: true,
		},
		{
			name:    "amount too large",
			request: CreateBillRequest{Amount: ptr(decimal.RequireFromString("1000000000.01"))},
			wantErr: true,
		},
		{
			name:    "description too long",
			request: CreateBillRequest{Amount: ptr(decimal.NewFromInt(1)), Description: ptr(strings.Repeat("x", 501))},
			wantErr: true,
		},
		{
			name:    "multibyte description at limit",
			request: CreateBillRequest{Amount: ptr(decimal.NewFromInt(1)), Description: ptr(strings.Repeat("é", 500))},
			wantErr: false,
		},
		{
			name:    "multibyte description over limit",
			request: CreateBillRequest{Amount: ptr(decimal.NewFromInt(1)), Description: ptr(strings.Repeat("€", 501))},
			wantErr: true,
		},
		{
			name:    "id is ignored",
			request: CreateBillRequest{ID: ptr(uuid.New()), Amount: ptr(decimal.NewFromInt(1))},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateBillRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateBillRequestValidation(t *testing.T) {
	empty := UpdateBillRequest{}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty update should be valid, got %v", err)
	}
	if !empty.IsEmpty() {
		t.Error("empty update should report IsEmpty")
	}

	idOnly := UpdateBillRequest{ID: ptr(uuid.New())}
	if err := idOnly.Validate(); err != nil || !idOnly.IsEmpty() {
		t.Errorf("an id alone should be a valid empty update, got %v", err)
	}

	wide := UpdateBillRequest{Description: ptr(strings.Repeat("家", 500))}
	if err := wide.Validate(); err != nil {
		t.Errorf("500 characters should be accepted, got %v", err)
	}

	tooBig := UpdateBillRequest{Amount: ptr(decimal.RequireFromString("-2000000000"))}
	if err := tooBig.Validate(); err == nil {
		t.Error("expected error for out of range amount")
	}
}

func TestDateUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "calendar date", input: `"2024-01-01"`, want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: `"2024-03-05T10:30:00+02:00"`, want: time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)},
		{name: "local without zone", input: `"2024-03-05T10:30:00"`, want: time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{name: "garbage", input: `"yesterday"`, wantErr: true},
		{name: "number", input: `20240101`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !d.Time.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.input, d.Time, tt.want)
			}
		})
	}
}

func TestNewBillDefaultsDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	userID, txID := uuid.New(), uuid.New()

	bill := NewBill(userID, txID, &CreateBillRequest{Amount: ptr(decimal.RequireFromString("10.005"))}, now)

	if bill.UserID != userID || bill.TransactionID != txID {
		t.Error("bill should be bound to the given user and transaction")
	}
	if !bill.Date.Equal(now) {
		t.Errorf("expected date to default to %v, got %v", now, bill.Date)
	}
	if !bill.Amount.Equal(decimal.RequireFromString("10.01")) {
		t.Errorf("expected amount rounded to cents, got %s", bill.Amount)
	}
}

func TestBillApplyPartialUpdate(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Bill{
		Amount:      decimal.RequireFromString("100.00"),
		Date:        date,
		Description: "rent",
	}

	t.Run("description only", func(t *testing.T) {
		b := base
		changed := b.Apply(&UpdateBillRequest{Description: ptr("updated")})
		if !changed {
			t.Error("expected change")
		}
		if !b.Amount.Equal(base.Amount) || !b.Date.Equal(date) {
			t.Error("amount and date should be untouched")
		}
		if b.Description != "updated" {
			t.Errorf("description = %q, want %q", b.Description, "updated")
		}
	})

	t.Run("amount only", func(t *testing.T) {
		b := base
		b.Apply(&UpdateBillRequest{Amount: ptr(decimal.RequireFromString("-5"))})
		if !b.Amount.Equal(decimal.RequireFromString("-5")) {
			t.Errorf("amount = %s, want -5", b.Amount)
		}
		if b.Description != "rent" || !b.Date.Equal(date) {
			t.Error("description and date should be untouched")
		}
	})

	t.Run("empty description clears it", func(t *testing.T) {
		b := base
		b.Apply(&UpdateBillRequest{Description: ptr("")})
		if b.Description != "" {
			t.Errorf("description = %q, want empty", b.Description)
		}
	})

	t.Run("same values are not a change", func(t *testing.T) {
		b := base
		if b.Apply(&UpdateBillRequest{Amount: ptr(decimal.RequireFromString("100")), Description: ptr("rent")}) {
			t.Error("expected no change")
		}
	})
}

func TestBillDetailsToResponse(t *testing.T) {
	details := BillDetails{
		Bill: Bill{
			ID:          uuid.New(),
			Amount:      decimal.RequireFromString("12.50"),
			Description: "coffee",
			Version:     3,
		},
		User:        User{ID: uuid.New(), Username: "alice"},
		Transaction: Transaction{ID: uuid.New(), Name: "food", Type: TypeExpense},
	}

	resp := details.ToResponse()

	if resp.Type != TypeExpense {
		t.Errorf("type = %q, want %q", resp.Type, TypeExpense)
	}
	if resp.User.Username != "alice" || resp.Transaction.Name != "food" {
		t.Error("relations should be embedded in the view")
	}
	if resp.Version != 3 {
		t.Errorf("version = %d, want 3", resp.Version)
	}
}

func TestBillResponseAmountJSON(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"100", `"amount":"100.00"`},
		{"100.00", `"amount":"100.00"`},
		{"12.5", `"amount":"12.50"`},
		{"-0.1", `"amount":"-0.10"`},
		{"0", `"amount":"0.00"`},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			resp := BillResponse{ID: uuid.New(), Amount: decimal.RequireFromString(tt.amount), Version: 1}

			data, err := json.Marshal(resp)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if !strings.Contains(string(data), tt.expected) {
				t.Errorf("expected %s in %s", tt.expected, data)
			}
			if strings.Count(string(data), `"amount"`) != 1 {
				t.Errorf("amount must appear once, got %s", data)
			}

			var decoded BillResponse
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !decoded.Amount.Equal(resp.Amount) || decoded.ID != resp.ID || decoded.Version != 1 {
				t.Errorf("decoded %+v, want %+v", decoded, resp)
			}
		})
	}
}
