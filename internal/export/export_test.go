package export

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store/memory"
	"github.com/shopspring/decimal"
)

func TestBuildSnapshot(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()

	tx := &domain.Transaction{
		TransactionID: "t1",
		UserID:        "u1",
		Type:          domain.TypeExpense,
		Category:      domain.CategoryNeed,
		Amount:        decimal.NewFromInt(100),
		Date:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:        domain.StatusActive,
	}
	rec := &domain.HistoryRecord{
		HistoryID:     "h1",
		UserID:        "u1",
		TransactionID: "t1",
		Action:        domain.ActionCreated,
		RecordedAt:    time.Now(),
	}
	if err := st.InsertTransaction(ctx, tx, rec); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	_ = st.InsertPortfolio(ctx, &domain.Portfolio{
		PortfolioID: "p1", UserID: "u1", Name: "Funds", IsActive: true,
	})
	_ = st.UpsertBudgetConfig(ctx, &domain.BudgetConfig{
		ConfigID: "c1", UserID: "u1", Period: "2025-06",
		MonthlySalary: decimal.NewFromInt(50000),
	})

	e := NewExporter(st)
	e.now = func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) }

	snap, err := e.BuildSnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	if len(snap.Transactions) != 1 || len(snap.Portfolios) != 1 || len(snap.History) != 1 {
		t.Errorf("unexpected snapshot contents: %+v", snap)
	}
	if snap.BudgetConfig == nil || snap.BudgetConfig.Period != "2025-06" {
		t.Errorf("budget config for export month missing: %+v", snap.BudgetConfig)
	}
}

func TestObjectName(t *testing.T) {
	ts := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	got := ObjectName("u1", ts)
	want := "exports/u1/2025/06/ledger-20250615-093000.json"
	if got != want {
		t.Errorf("ObjectName = %q, want %q", got, want)
	}
}
