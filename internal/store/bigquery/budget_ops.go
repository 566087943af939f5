package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"google.golang.org/api/iterator"
)

const budgetConfigsTable = "budget_configs"

// UpsertBudgetConfigWithClient merges the budget config for (user, period).
func UpsertBudgetConfigWithClient(ctx context.Context, client *bigquery.Client, c *domain.BudgetConfig) error {
	q := client.Query(fmt.Sprintf(`
		MERGE %s.%s b
		USING (SELECT @user_id AS user_id, @period AS period) src
		ON b.user_id = src.user_id AND b.period = src.period
		WHEN MATCHED THEN UPDATE SET
			monthly_salary = @monthly_salary,
			need_percent = @need_percent,
			want_percent = @want_percent,
			savings_percent = @savings_percent,
			investments_percent = @investments_percent,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT (
			config_id, user_id, period, monthly_salary,
			need_percent, want_percent, savings_percent, investments_percent,
			created_ts, updated_ts
		)
		VALUES (
			@config_id, @user_id, @period, @monthly_salary,
			@need_percent, @want_percent, @savings_percent, @investments_percent,
			@created_ts, @updated_ts
		)
	`, datasetID, budgetConfigsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "config_id", Value: c.ConfigID},
		{Name: "user_id", Value: c.UserID},
		{Name: "period", Value: c.Period},
		{Name: "monthly_salary", Value: ratFromDecimal(c.MonthlySalary)},
		{Name: "need_percent", Value: ratFromDecimal(c.NeedPercent)},
		{Name: "want_percent", Value: ratFromDecimal(c.WantPercent)},
		{Name: "savings_percent", Value: ratFromDecimal(c.SavingsPercent)},
		{Name: "investments_percent", Value: ratFromDecimal(c.InvestmentsPercent)},
		{Name: "created_ts", Value: c.CreatedAt},
		{Name: "updated_ts", Value: nullTimestamp(&c.UpdatedAt)},
	}

	return runDML(ctx, q, "UpsertBudgetConfig")
}

// GetBudgetConfigWithClient fetches the config for (user, period).
func GetBudgetConfigWithClient(ctx context.Context, client *bigquery.Client, userID, period string) (*domain.BudgetConfig, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			b.config_id,
			b.user_id,
			b.period,
			b.monthly_salary,
			b.need_percent,
			b.want_percent,
			b.savings_percent,
			b.investments_percent,
			b.created_ts,
			b.updated_ts
		FROM %s.%s b
		WHERE b.user_id = @user_id
		  AND b.period = @period
	`, datasetID, budgetConfigsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "period", Value: period},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetBudgetConfig: query read: %w", err)
	}

	var r BudgetConfigRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBudgetConfig: iter next: %w", err)
	}
	return r.toDomain(), nil
}
