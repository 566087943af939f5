package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetConfig holds one user's salary and allocation splits for a period.
// Period is "YYYY-MM".
type BudgetConfig struct {
	ConfigID string `json:"config_id"`
	UserID   string `json:"user_id"`
	Period   string `json:"period"`

	MonthlySalary decimal.Decimal `json:"monthly_salary"`

	NeedPercent        decimal.Decimal `json:"need_percent"`
	WantPercent        decimal.Decimal `json:"want_percent"`
	SavingsPercent     decimal.Decimal `json:"savings_percent"`
	InvestmentsPercent decimal.Decimal `json:"investments_percent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var oneHundred = decimal.NewFromInt(100)

// Validate checks the split invariant: each percentage in [0,100] and the
// four together must not exceed 100.
func (c *BudgetConfig) Validate() error {
	if c.MonthlySalary.IsNegative() {
		return fmt.Errorf("monthly salary must not be negative")
	}
	sum := decimal.Zero
	for _, p := range []struct {
		name string
		val  decimal.Decimal
	}{
		{"need", c.NeedPercent},
		{"want", c.WantPercent},
		{"savings", c.SavingsPercent},
		{"investments", c.InvestmentsPercent},
	} {
		if p.val.IsNegative() || p.val.GreaterThan(oneHundred) {
			return fmt.Errorf("%s percent must be between 0 and 100", p.name)
		}
		sum = sum.Add(p.val)
	}
	if sum.GreaterThan(oneHundred) {
		return fmt.Errorf("allocation percentages sum to %s, must not exceed 100", sum)
	}
	return nil
}

// AmountFor resolves the monetary budget for one allocation category.
func (c *BudgetConfig) AmountFor(cat AllocationCategory) decimal.Decimal {
	var pct decimal.Decimal
	switch cat {
	case CategoryNeed:
		pct = c.NeedPercent
	case CategoryWant:
		pct = c.WantPercent
	case CategorySavings:
		pct = c.SavingsPercent
	case CategoryInvestments:
		pct = c.InvestmentsPercent
	}
	return c.MonthlySalary.Mul(pct).Div(oneHundred)
}
