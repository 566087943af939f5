package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationType says how a portfolio's target allocation is expressed.
type AllocationType string

const (
	// AllocationPercentage interprets AllocationValue as a percentage of
	// the monthly salary from the user's budget config.
	AllocationPercentage AllocationType = "percentage"
	// AllocationAmount interprets AllocationValue as a fixed monetary amount.
	AllocationAmount AllocationType = "amount"
)

// Portfolio is a named bucket for allocating investable funds.
type Portfolio struct {
	PortfolioID string `json:"portfolio_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`

	AllocationType  AllocationType  `json:"allocation_type"`
	AllocationValue decimal.Decimal `json:"allocation_value"`

	// AllocatedAmount is the resolved monetary target; for percentage
	// allocations it is recomputed whenever the monthly salary changes.
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`

	// InvestedAmount tracks capital actually deployed into the portfolio.
	InvestedAmount decimal.Decimal `json:"invested_amount"`

	// IsActive false means logically deleted; inactive portfolios are
	// excluded from listings but retained in storage.
	IsActive bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidAllocationType reports whether t is a known allocation type.
func ValidAllocationType(t AllocationType) bool {
	return t == AllocationPercentage || t == AllocationAmount
}

// ResolveAllocation computes the monetary allocation target given the
// user's monthly salary. Fixed-amount portfolios ignore the salary.
func (p *Portfolio) ResolveAllocation(monthlySalary decimal.Decimal) decimal.Decimal {
	if p.AllocationType == AllocationPercentage {
		return monthlySalary.Mul(p.AllocationValue).Div(decimal.NewFromInt(100))
	}
	return p.AllocationValue
}
