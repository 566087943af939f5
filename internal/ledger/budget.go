package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// SaveBudgetConfig validates and upserts the budget config for one period,
// then re-resolves the allocated amount of percentage-type portfolios
// against the new salary.
func (s *Service) SaveBudgetConfig(ctx context.Context, cfg *domain.BudgetConfig) (*domain.BudgetConfig, error) {
	if cfg.UserID == "" || cfg.Period == "" {
		return nil, fmt.Errorf("%w: user id and period are required", ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	now := s.now()
	c := *cfg
	if c.ConfigID == "" {
		c.ConfigID = s.newID()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if err := s.store.UpsertBudgetConfig(ctx, &c); err != nil {
		return nil, fmt.Errorf("SaveBudgetConfig: %w", err)
	}

	if err := s.resolvePortfolioAllocations(ctx, c.UserID, c.MonthlySalary); err != nil {
		s.log.Warn().Err(err).Str("user_id", c.UserID).
			Msg("Failed to re-resolve portfolio allocations")
	}

	s.log.Info().
		Str("user_id", c.UserID).
		Str("period", c.Period).
		Str("monthly_salary", c.MonthlySalary.String()).
		Msg("Budget config saved")
	return &c, nil
}

// BudgetConfig fetches the config for (user, period).
func (s *Service) BudgetConfig(ctx context.Context, userID, period string) (*domain.BudgetConfig, error) {
	cfg, err := s.store.GetBudgetConfig(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("BudgetConfig: %w", err)
	}
	return cfg, nil
}

// CreatePortfolio validates allocation policy and persists a new active
// portfolio. When a budget config exists for the given period, the
// allocation target is resolved against its salary immediately.
func (s *Service) CreatePortfolio(ctx context.Context, p *domain.Portfolio, period string) (*domain.Portfolio, error) {
	if p.UserID == "" || p.Name == "" {
		return nil, fmt.Errorf("%w: user id and name are required", ErrInvalidArgument)
	}
	if !domain.ValidAllocationType(p.AllocationType) {
		return nil, fmt.Errorf("%w: unknown allocation type %q", ErrInvalidArgument, p.AllocationType)
	}
	if !p.AllocationValue.IsPositive() {
		return nil, fmt.Errorf("%w: allocation value must be positive", ErrInvalidArgument)
	}
	if p.AllocationType == domain.AllocationPercentage && p.AllocationValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percentage allocation must not exceed 100", ErrInvalidArgument)
	}

	now := s.now()
	c := *p
	c.PortfolioID = s.newID()
	c.InvestedAmount = decimal.Zero
	c.IsActive = true
	c.CreatedAt = now
	c.UpdatedAt = now

	c.AllocatedAmount = c.AllocationValue
	if c.AllocationType == domain.AllocationPercentage {
		c.AllocatedAmount = decimal.Zero
		if cfg, err := s.store.GetBudgetConfig(ctx, c.UserID, period); err == nil {
			c.AllocatedAmount = c.ResolveAllocation(cfg.MonthlySalary)
		}
	}

	if err := s.store.InsertPortfolio(ctx, &c); err != nil {
		return nil, fmt.Errorf("CreatePortfolio: %w", err)
	}

	s.log.Info().
		Str("portfolio_id", c.PortfolioID).
		Str("name", c.Name).
		Str("allocation_type", string(c.AllocationType)).
		Msg("Portfolio created")
	return &c, nil
}

// Portfolios lists the user's active portfolios.
func (s *Service) Portfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	ps, err := s.store.ListPortfolios(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Portfolios: %w", err)
	}
	return ps, nil
}

// ClosePortfolio logically deletes a portfolio. Its rows are retained but
// it disappears from listings.
func (s *Service) ClosePortfolio(ctx context.Context, userID, portfolioID string) error {
	if err := s.store.DeactivatePortfolio(ctx, userID, portfolioID); err != nil {
		return fmt.Errorf("ClosePortfolio: %w", err)
	}
	s.log.Info().Str("portfolio_id", portfolioID).Msg("Portfolio closed")
	return nil
}

func (s *Service) resolvePortfolioAllocations(ctx context.Context, userID string, salary decimal.Decimal) error {
	ps, err := s.store.ListPortfolios(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if p.AllocationType != domain.AllocationPercentage {
			continue
		}
		p.AllocatedAmount = p.ResolveAllocation(salary)
		p.UpdatedAt = s.now()
		if err := s.store.UpdatePortfolio(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
