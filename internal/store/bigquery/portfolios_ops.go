package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"google.golang.org/api/iterator"
)

const portfoliosTable = "portfolios"

const portfolioColumns = `
	p.portfolio_id,
	p.user_id,
	p.name,
	p.allocation_type,
	p.allocation_value,
	p.allocated_amount,
	p.invested_amount,
	p.is_active,
	p.created_ts,
	p.updated_ts`

func portfolioParams(p *domain.Portfolio) []bigquery.QueryParameter {
	r := toPortfolioRow(p)
	return []bigquery.QueryParameter{
		{Name: "portfolio_id", Value: r.PortfolioID},
		{Name: "user_id", Value: r.UserID},
		{Name: "name", Value: r.Name},
		{Name: "allocation_type", Value: r.AllocationType},
		{Name: "allocation_value", Value: r.AllocationValue},
		{Name: "allocated_amount", Value: r.AllocatedAmount},
		{Name: "invested_amount", Value: r.InvestedAmount},
		{Name: "is_active", Value: r.IsActive},
		{Name: "created_ts", Value: r.CreatedTS},
		{Name: "updated_ts", Value: r.UpdatedTS},
	}
}

// InsertPortfolioWithClient inserts a new portfolio row.
func InsertPortfolioWithClient(ctx context.Context, client *bigquery.Client, p *domain.Portfolio) error {
	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			portfolio_id, user_id, name, allocation_type, allocation_value,
			allocated_amount, invested_amount, is_active, created_ts, updated_ts
		)
		VALUES (
			@portfolio_id, @user_id, @name, @allocation_type, @allocation_value,
			@allocated_amount, @invested_amount, @is_active, @created_ts, @updated_ts
		)
	`, datasetID, portfoliosTable))
	q.Parameters = portfolioParams(p)

	return runDML(ctx, q, "InsertPortfolio")
}

// GetPortfolioWithClient fetches a portfolio by owner and id, active or not.
func GetPortfolioWithClient(ctx context.Context, client *bigquery.Client, userID, portfolioID string) (*domain.Portfolio, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s p
		WHERE p.portfolio_id = @portfolio_id
		  AND p.user_id = @user_id
	`, portfolioColumns, datasetID, portfoliosTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "portfolio_id", Value: portfolioID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetPortfolio: query read: %w", err)
	}

	var r PortfolioRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPortfolio: iter next: %w", err)
	}
	return r.toDomain(), nil
}

// ListPortfoliosWithClient returns the user's active portfolios by name.
func ListPortfoliosWithClient(ctx context.Context, client *bigquery.Client, userID string) ([]*domain.Portfolio, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s p
		WHERE p.user_id = @user_id
		  AND p.is_active = TRUE
		ORDER BY p.name
	`, portfolioColumns, datasetID, portfoliosTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListPortfolios: query read: %w", err)
	}

	var result []*domain.Portfolio
	for {
		var r PortfolioRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListPortfolios: iter next: %w", err)
		}
		result = append(result, r.toDomain())
	}
	return result, nil
}

// UpdatePortfolioWithClient rewrites a portfolio's mutable columns.
func UpdatePortfolioWithClient(ctx context.Context, client *bigquery.Client, p *domain.Portfolio) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET name = @name,
			allocation_type = @allocation_type,
			allocation_value = @allocation_value,
			allocated_amount = @allocated_amount,
			invested_amount = @invested_amount,
			is_active = @is_active,
			updated_ts = @updated_ts
		WHERE portfolio_id = @portfolio_id
		  AND user_id = @user_id
	`, datasetID, portfoliosTable))
	q.Parameters = portfolioParams(p)

	return runDML(ctx, q, "UpdatePortfolio")
}

// DeactivatePortfolioWithClient performs the logical delete.
func DeactivatePortfolioWithClient(ctx context.Context, client *bigquery.Client, userID, portfolioID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET is_active = FALSE,
			updated_ts = CURRENT_TIMESTAMP()
		WHERE portfolio_id = @portfolio_id
		  AND user_id = @user_id
	`, datasetID, portfoliosTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "portfolio_id", Value: portfolioID},
		{Name: "user_id", Value: userID},
	}

	return runDML(ctx, q, "DeactivatePortfolio")
}
