package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func budgetConfig(need, want, savings, investments int64) *domain.BudgetConfig {
	return &domain.BudgetConfig{
		UserID:             testUser,
		Period:             "2025-06",
		MonthlySalary:      decimal.NewFromInt(80000),
		NeedPercent:        decimal.NewFromInt(need),
		WantPercent:        decimal.NewFromInt(want),
		SavingsPercent:     decimal.NewFromInt(savings),
		InvestmentsPercent: decimal.NewFromInt(investments),
	}
}

func TestSaveBudgetConfig_SplitInvariant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     *domain.BudgetConfig
		wantErr bool
	}{
		{"classic 50/30/10/10", budgetConfig(50, 30, 10, 10), false},
		{"under-allocated is fine", budgetConfig(40, 20, 10, 10), false},
		{"sum over 100", budgetConfig(50, 30, 20, 10), true},
		{"single split over 100", budgetConfig(120, 0, 0, 0), true},
		{"negative split", budgetConfig(-10, 50, 30, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveBudgetConfig(ctx, tt.cfg)
			if tt.wantErr && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("SaveBudgetConfig() error = %v, want ErrInvalidArgument", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("SaveBudgetConfig() unexpected error: %v", err)
			}
		})
	}
}

func TestSaveBudgetConfig_ResolvesPercentagePortfolios(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, &domain.Portfolio{
		UserID:          testUser,
		Name:            "Index funds",
		AllocationType:  domain.AllocationPercentage,
		AllocationValue: decimal.NewFromInt(10),
	}, "2025-06")
	if err != nil {
		t.Fatalf("CreatePortfolio failed: %v", err)
	}
	// No budget config yet, so nothing to resolve against.
	if !p.AllocatedAmount.IsZero() {
		t.Errorf("allocated amount before config = %s, want 0", p.AllocatedAmount)
	}

	if _, err := svc.SaveBudgetConfig(ctx, budgetConfig(50, 30, 10, 10)); err != nil {
		t.Fatalf("SaveBudgetConfig failed: %v", err)
	}

	got, _ := st.GetPortfolio(ctx, testUser, p.PortfolioID)
	if !got.AllocatedAmount.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("allocated amount = %s, want 8000 (10%% of 80000)", got.AllocatedAmount)
	}
}

func TestCreatePortfolio_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		p    domain.Portfolio
	}{
		{"missing name", domain.Portfolio{UserID: testUser, AllocationType: domain.AllocationAmount, AllocationValue: decimal.NewFromInt(100)}},
		{"unknown allocation type", domain.Portfolio{UserID: testUser, Name: "x", AllocationType: "ratio", AllocationValue: decimal.NewFromInt(1)}},
		{"zero allocation", domain.Portfolio{UserID: testUser, Name: "x", AllocationType: domain.AllocationAmount, AllocationValue: decimal.Zero}},
		{"percentage over 100", domain.Portfolio{UserID: testUser, Name: "x", AllocationType: domain.AllocationPercentage, AllocationValue: decimal.NewFromInt(150)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePortfolio(ctx, &tt.p, "2025-06")
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("CreatePortfolio() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestClosePortfolio_ExcludedFromListings(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, &domain.Portfolio{
		UserID:          testUser,
		Name:            "Bonds",
		AllocationType:  domain.AllocationAmount,
		AllocationValue: decimal.NewFromInt(500),
	}, "2025-06")
	if err != nil {
		t.Fatalf("CreatePortfolio failed: %v", err)
	}

	if err := svc.ClosePortfolio(ctx, testUser, p.PortfolioID); err != nil {
		t.Fatalf("ClosePortfolio failed: %v", err)
	}

	ps, _ := svc.Portfolios(ctx, testUser)
	if len(ps) != 0 {
		t.Errorf("closed portfolio still listed")
	}
	// Retained in storage, just inactive.
	got, err := svc.store.GetPortfolio(ctx, testUser, p.PortfolioID)
	if err != nil {
		t.Fatalf("closed portfolio should remain readable: %v", err)
	}
	if got.IsActive {
		t.Error("closed portfolio still active")
	}
}

func TestBudgetConfig_AmountFor(t *testing.T) {
	cfg := budgetConfig(50, 30, 10, 10)
	if got := cfg.AmountFor(domain.CategoryNeed); !got.Equal(decimal.NewFromInt(40000)) {
		t.Errorf("AmountFor(need) = %s, want 40000", got)
	}
	if got := cfg.AmountFor(domain.CategoryInvestments); !got.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("AmountFor(investments) = %s, want 8000", got)
	}
}
