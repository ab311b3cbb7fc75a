package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sefa-b/go-bill-ledger/internal/domain"
	"github.com/sefa-b/go-bill-ledger/internal/repository"
)

func newTestStore(t *testing.T) *repository.Repositories {
	t.Helper()

	store, err := New(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store.Repositories()
}

func seed(t *testing.T, repos *repository.Repositories, username string, txType domain.TransactionType) (*domain.User, *domain.Transaction) {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{Username: username}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	tx := &domain.Transaction{Name: username + "-" + string(txType), Type: txType}
	if err := repos.Transactions.Create(ctx, tx); err != nil {
		t.Fatalf("Create transaction failed: %v", err)
	}

	return user, tx
}

func newBill(user *domain.User, tx *domain.Transaction, amount string, date time.Time) *domain.Bill {
	return &domain.Bill{
		UserID:        user.ID,
		TransactionID: tx.ID,
		Amount:        decimal.RequireFromString(amount),
		Date:          date,
		Description:   "test bill",
	}
}

func TestBillsRepo(t *testing.T) {
	repos := newTestStore(t)
	ctx := context.Background()
	user, salary := seed(t, repos, "alice", domain.TypeIncome)

	t.Run("Create assigns ID and version", func(t *testing.T) {
		bill := newBill(user, salary, "1250.50", time.Now())
		if err := repos.Bills.Create(ctx, bill); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if bill.ID == uuid.Nil {
			t.Error("Expected bill ID to be generated")
		}
		if bill.Version != 1 {
			t.Errorf("Expected version 1, got %d", bill.Version)
		}
	})

	t.Run("GetByID joins user and transaction", func(t *testing.T) {
		date := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
		bill := newBill(user, salary, "42.10", date)
		if err := repos.Bills.Create(ctx, bill); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := repos.Bills.GetByID(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}

		if !got.Bill.Amount.Equal(decimal.RequireFromString("42.10")) {
			t.Errorf("Expected amount 42.10, got %s", got.Bill.Amount)
		}
		if !got.Bill.Date.Equal(date) {
			t.Errorf("Expected date %v, got %v", date, got.Bill.Date)
		}
		if got.User.Username != "alice" {
			t.Errorf("Expected user alice, got %q", got.User.Username)
		}
		if got.Type() != domain.TypeIncome {
			t.Errorf("Expected type income, got %q", got.Type())
		}
	})

	t.Run("GetByID unknown returns ErrNotFound", func(t *testing.T) {
		_, err := repos.Bills.GetByID(ctx, uuid.New())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update bumps version and rejects stale writes", func(t *testing.T) {
		bill := newBill(user, salary, "10.00", time.Now())
		if err := repos.Bills.Create(ctx, bill); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		stale := *bill

		bill.Amount = decimal.RequireFromString("20.00")
		if err := repos.Bills.Update(ctx, bill); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if bill.Version != 2 {
			t.Errorf("Expected version 2, got %d", bill.Version)
		}

		stale.Amount = decimal.RequireFromString("30.00")
		if err := repos.Bills.Update(ctx, &stale); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}

		got, err := repos.Bills.GetByID(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if !got.Bill.Amount.Equal(decimal.RequireFromString("20.00")) {
			t.Errorf("Expected amount 20.00 to survive, got %s", got.Bill.Amount)
		}
		if got.Bill.UserID != user.ID || got.Bill.TransactionID != salary.ID {
			t.Error("Expected owners to be unchanged by update")
		}
	})

	t.Run("Update unknown returns ErrNotFound", func(t *testing.T) {
		bill := newBill(user, salary, "1.00", time.Now())
		bill.ID = uuid.New()
		bill.Version = 1
		if err := repos.Bills.Update(ctx, bill); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete removes bill", func(t *testing.T) {
		bill := newBill(user, salary, "5.00", time.Now())
		if err := repos.Bills.Create(ctx, bill); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if err := repos.Bills.Delete(ctx, bill.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repos.Bills.GetByID(ctx, bill.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := repos.Bills.Delete(ctx, bill.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestBillsRepoList(t *testing.T) {
	repos := newTestStore(t)
	ctx := context.Background()

	alice, salary := seed(t, repos, "alice", domain.TypeIncome)
	_, rent := seed(t, repos, "alice-rent", domain.TypeExpense)
	bob, bobRent := seed(t, repos, "bob", domain.TypeExpense)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, b := range []*domain.Bill{
		newBill(alice, salary, "3000.00", base),
		newBill(alice, rent, "-900.00", base.Add(24*time.Hour)),
		newBill(alice, salary, "3100.00", base.Add(48*time.Hour)),
		newBill(bob, bobRent, "-700.00", base.Add(72*time.Hour)),
	} {
		if err := repos.Bills.Create(ctx, b); err != nil {
			t.Fatalf("Create bill %d failed: %v", i, err)
		}
	}

	income := domain.TypeIncome
	expense := domain.TypeExpense

	tests := []struct {
		name     string
		filter   *domain.BillFilter
		expected int
	}{
		{"all", nil, 4},
		{"by user", &domain.BillFilter{UserID: &alice.ID}, 3},
		{"by user and transaction", &domain.BillFilter{UserID: &alice.ID, TransactionID: &salary.ID}, 2},
		{"income by user", &domain.BillFilter{UserID: &alice.ID, Type: &income}, 2},
		{"expense by user", &domain.BillFilter{UserID: &alice.ID, Type: &expense}, 1},
		{"transaction of another user", &domain.BillFilter{UserID: &bob.ID, TransactionID: &salary.ID}, 0},
		{"income of user without income", &domain.BillFilter{UserID: &bob.ID, Type: &income}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bills, err := repos.Bills.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if bills == nil {
				t.Fatal("Expected non-nil slice")
			}
			if len(bills) != tt.expected {
				t.Fatalf("Expected %d bills, got %d", tt.expected, len(bills))
			}

			for i, d := range bills {
				if tt.filter != nil && tt.filter.UserID != nil && d.Bill.UserID != *tt.filter.UserID {
					t.Errorf("bill %d belongs to %s", i, d.Bill.UserID)
				}
				if tt.filter != nil && tt.filter.Type != nil && d.Type() != *tt.filter.Type {
					t.Errorf("bill %d has type %s", i, d.Type())
				}
				if i > 0 && d.Bill.Date.After(bills[i-1].Bill.Date) {
					t.Errorf("bills not ordered newest first at %d", i)
				}
			}
		})
	}
}

func TestUsersAndTransactionsRepo(t *testing.T) {
	repos := newTestStore(t)
	ctx := context.Background()
	user, tx := seed(t, repos, "carol", domain.TypeExpense)

	gotUser, err := repos.Users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID user failed: %v", err)
	}
	if gotUser.Username != "carol" {
		t.Errorf("Expected carol, got %q", gotUser.Username)
	}

	gotTx, err := repos.Transactions.GetByID(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetByID transaction failed: %v", err)
	}
	if gotTx.Type != domain.TypeExpense {
		t.Errorf("Expected expense, got %q", gotTx.Type)
	}

	if _, err := repos.Users.GetByID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for user, got %v", err)
	}
	if _, err := repos.Transactions.GetByID(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for transaction, got %v", err)
	}
}

func TestAuditRepo(t *testing.T) {
	repos := newTestStore(t)
	ctx := context.Background()
	billID := uuid.New()

	for _, action := range []domain.AuditAction{domain.ActionCreated, domain.ActionUpdated, domain.ActionDeleted} {
		if err := repos.Audit.Log(ctx, domain.EntityBill, billID, action, map[string]string{"action": string(action)}); err != nil {
			t.Fatalf("Log %s failed: %v", action, err)
		}
	}

	logs, err := repos.Audit.ListForEntity(ctx, domain.EntityBill, billID, 0, 0)
	if err != nil {
		t.Fatalf("ListForEntity failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("Expected 3 audit logs, got %d", len(logs))
	}

	page, err := repos.Audit.ListForEntity(ctx, domain.EntityBill, billID, 2, 0)
	if err != nil {
		t.Fatalf("ListForEntity with limit failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("Expected 2 audit logs, got %d", len(page))
	}

	if len(logs[0].Details) == 0 {
		t.Error("Expected audit details to be stored")
	}
}
