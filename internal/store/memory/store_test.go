package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

func seedTransaction(id string, day int, typ domain.TransactionType, amount int64) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: id,
		UserID:        "u1",
		Type:          typ,
		Category:      domain.CategoryNeed,
		Amount:        decimal.NewFromInt(amount),
		Date:          time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		Status:        domain.StatusActive,
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	tx := seedTransaction("t1", 1, domain.TypeExpense, 100)
	if err := st.InsertTransaction(ctx, tx, nil); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}

	// Mutating the inserted value or a read result must not leak into the store.
	tx.Amount = decimal.NewFromInt(999)
	got, err := st.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("store leaked caller mutation: amount = %s", got.Amount)
	}

	got.Description = "mutated"
	again, _ := st.GetTransaction(ctx, "u1", "t1")
	if again.Description != "" {
		t.Error("store leaked read-result mutation")
	}
}

func TestStore_OwnershipAndDeletion(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	tx := seedTransaction("t1", 1, domain.TypeExpense, 100)
	_ = st.InsertTransaction(ctx, tx, nil)

	if _, err := st.GetTransaction(ctx, "someone-else", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign read error = %v, want ErrNotFound", err)
	}

	now := time.Now()
	deleted := tx.Clone()
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	if err := st.UpdateTransaction(ctx, deleted, nil); err != nil {
		t.Fatalf("UpdateTransaction failed: %v", err)
	}
	if _, err := st.GetTransaction(ctx, "u1", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted read error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListTransactionsFilter(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	_ = st.InsertTransaction(ctx, seedTransaction("t1", 1, domain.TypeExpense, 100), nil)
	_ = st.InsertTransaction(ctx, seedTransaction("t2", 5, domain.TypeIncome, 200), nil)
	_ = st.InsertTransaction(ctx, seedTransaction("t3", 9, domain.TypeExpense, 300), nil)

	tests := []struct {
		name   string
		filter store.TransactionFilter
		want   []string
	}{
		{"all newest first", store.TransactionFilter{}, []string{"t3", "t2", "t1"}},
		{"by type", store.TransactionFilter{Type: domain.TypeExpense}, []string{"t3", "t1"}},
		{"date range", store.TransactionFilter{
			From: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC),
		}, []string{"t2"}},
		{"limit", store.TransactionFilter{Limit: 2}, []string{"t3", "t2"}},
		{"offset past end", store.TransactionFilter{Offset: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.ListTransactions(ctx, "u1", tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].TransactionID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].TransactionID, id)
				}
			}
		})
	}
}

func TestStore_SumRefunds(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	_ = st.InsertTransaction(ctx, seedTransaction("t1", 1, domain.TypeExpense, 500), nil)
	r1 := seedTransaction("r1", 2, domain.TypeRefund, 100)
	r1.RefundFor = "t1"
	r2 := seedTransaction("r2", 3, domain.TypeRefund, 150)
	r2.RefundFor = "t1"
	unrelated := seedTransaction("r3", 3, domain.TypeRefund, 999)
	unrelated.RefundFor = "other"
	_ = st.InsertTransaction(ctx, r1, nil)
	_ = st.InsertTransaction(ctx, r2, nil)
	_ = st.InsertTransaction(ctx, unrelated, nil)

	sum, err := st.SumRefunds(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("SumRefunds failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(250)) {
		t.Errorf("sum = %s, want 250", sum)
	}
}

func TestStore_ApplyRefundMissingOriginal(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	refund := seedTransaction("r1", 2, domain.TypeRefund, 100)
	refund.RefundFor = "ghost"
	original := seedTransaction("ghost", 1, domain.TypeExpense, 100)

	if err := st.ApplyRefund(ctx, refund, original, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ApplyRefund error = %v, want ErrNotFound", err)
	}
	// Nothing committed.
	if _, err := st.GetTransaction(ctx, "u1", "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("refund row committed despite missing original")
	}
}

func TestStore_BudgetConfigRoundTrip(t *testing.T) {
	st := NewStore()
	ctx := context.Background()

	cfg := &domain.BudgetConfig{
		ConfigID:      "c1",
		UserID:        "u1",
		Period:        "2025-06",
		MonthlySalary: decimal.NewFromInt(80000),
		NeedPercent:   decimal.NewFromInt(50),
	}
	if err := st.UpsertBudgetConfig(ctx, cfg); err != nil {
		t.Fatalf("UpsertBudgetConfig failed: %v", err)
	}

	got, err := st.GetBudgetConfig(ctx, "u1", "2025-06")
	if err != nil {
		t.Fatalf("GetBudgetConfig failed: %v", err)
	}
	if !got.MonthlySalary.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("salary = %s, want 80000", got.MonthlySalary)
	}

	if _, err := st.GetBudgetConfig(ctx, "u1", "2025-07"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing period error = %v, want ErrNotFound", err)
	}
}
