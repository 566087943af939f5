package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

const (
	datasetID         = "budget"
	transactionsTable = "transactions"
	historyTable      = "transaction_history"
)

const transactionColumns = `
	t.transaction_id,
	t.user_id,
	t.type,
	t.category,
	t.amount,
	t.transaction_date,
	t.time_of_day,
	t.description,
	t.notes,
	t.tag,
	t.payment_method,
	t.portfolio_id,
	t.refund_for,
	t.refunded_by,
	t.status,
	t.is_deleted,
	t.deleted_at,
	t.created_ts,
	t.updated_ts`

// runDML runs a DML query or script and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}

func transactionParams(t *domain.Transaction) []bigquery.QueryParameter {
	r := toTransactionRow(t)
	return []bigquery.QueryParameter{
		{Name: "transaction_id", Value: r.TransactionID},
		{Name: "user_id", Value: r.UserID},
		{Name: "type", Value: r.Type},
		{Name: "category", Value: r.Category},
		{Name: "amount", Value: r.Amount},
		{Name: "transaction_date", Value: r.TransactionDate},
		{Name: "time_of_day", Value: r.TimeOfDay},
		{Name: "description", Value: r.Description},
		{Name: "notes", Value: r.Notes},
		{Name: "tag", Value: r.Tag},
		{Name: "payment_method", Value: r.PaymentMethod},
		{Name: "portfolio_id", Value: r.PortfolioID},
		{Name: "refund_for", Value: r.RefundFor},
		{Name: "refunded_by", Value: r.RefundedBy},
		{Name: "status", Value: r.Status},
		{Name: "is_deleted", Value: r.IsDeleted},
		{Name: "deleted_at", Value: r.DeletedAt},
		{Name: "created_ts", Value: r.CreatedTS},
		{Name: "updated_ts", Value: r.UpdatedTS},
	}
}

func historyParams(rec *domain.HistoryRecord) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "history_id", Value: rec.HistoryID},
		{Name: "hist_user_id", Value: rec.UserID},
		{Name: "hist_transaction_id", Value: rec.TransactionID},
		{Name: "action", Value: string(rec.Action)},
		{Name: "before", Value: nullString(string(rec.Before))},
		{Name: "after", Value: nullString(string(rec.After))},
		{Name: "hist_description", Value: nullString(rec.Description)},
		{Name: "recorded_ts", Value: rec.RecordedAt},
	}
}

const insertTransactionStmt = `
	INSERT %[1]s.%[2]s (
		transaction_id, user_id, type, category, amount,
		transaction_date, time_of_day, description, notes, tag,
		payment_method, portfolio_id, refund_for, refunded_by,
		status, is_deleted, deleted_at, created_ts, updated_ts
	)
	VALUES (
		@transaction_id, @user_id, @type, @category, @amount,
		@transaction_date, @time_of_day, @description, @notes, @tag,
		@payment_method, @portfolio_id, @refund_for, @refunded_by,
		@status, @is_deleted, @deleted_at, @created_ts, @updated_ts
	);`

const insertHistoryStmt = `
	INSERT %[1]s.%[3]s (
		history_id, user_id, transaction_id, action,
		before, after, description, recorded_ts
	)
	VALUES (
		@history_id, @hist_user_id, @hist_transaction_id, @action,
		PARSE_JSON(@before), PARSE_JSON(@after), @hist_description, @recorded_ts
	);`

// InsertTransactionWithClient inserts a transaction and its creation history
// record in one multi-statement transaction.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, t *domain.Transaction, rec *domain.HistoryRecord) error {
	q := client.Query(fmt.Sprintf(`
		BEGIN TRANSACTION;`+insertTransactionStmt+insertHistoryStmt+`
		COMMIT TRANSACTION;`,
		datasetID, transactionsTable, historyTable))
	q.Parameters = append(transactionParams(t), historyParams(rec)...)

	return runDML(ctx, q, "InsertTransaction")
}

// GetTransactionWithClient fetches one non-deleted transaction owned by the user.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, userID, transactionID string) (*domain.Transaction, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s.%s t
		WHERE t.transaction_id = @transaction_id
		  AND t.user_id = @user_id
		  AND t.is_deleted = FALSE
	`, transactionColumns, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: query read: %w", err)
	}

	var r TransactionRow
	err = it.Next(&r)
	if err == iterator.Done {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: iter next: %w", err)
	}
	return r.toDomain(), nil
}

// ListTransactionsWithClient queries the user's non-deleted transactions,
// newest date first, applying the optional filter.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where  []string
		params = []bigquery.QueryParameter{{Name: "user_id", Value: userID}}
	)
	where = append(where, "t.user_id = @user_id", "t.is_deleted = FALSE")
	if f.Type != "" {
		where = append(where, "t.type = @type")
		params = append(params, bigquery.QueryParameter{Name: "type", Value: string(f.Type)})
	}
	if f.Category != "" {
		where = append(where, "t.category = @category")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: string(f.Category)})
	}
	if f.Status != "" {
		where = append(where, "t.status = @status")
		params = append(params, bigquery.QueryParameter{Name: "status", Value: string(f.Status)})
	}
	if !f.From.IsZero() {
		where = append(where, "t.transaction_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: civil.DateOf(f.From)})
	}
	if !f.To.IsZero() {
		where = append(where, "t.transaction_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: civil.DateOf(f.To)})
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s.%s t
		WHERE %s
		ORDER BY t.transaction_date DESC, t.created_ts DESC
	`, transactionColumns, datasetID, transactionsTable, strings.Join(where, "\n		  AND "))
	if f.Limit > 0 {
		sql += fmt.Sprintf("\n		LIMIT %d", f.Limit)
		if f.Offset > 0 {
			sql += fmt.Sprintf(" OFFSET %d", f.Offset)
		}
	}

	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var result []*domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		result = append(result, r.toDomain())
	}
	return result, nil
}

// SumRefundsWithClient returns the cumulative amount of non-deleted refunds
// pointing at originalID.
func SumRefundsWithClient(ctx context.Context, client *bigquery.Client, userID, originalID string) (decimal.Decimal, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT IFNULL(SUM(t.amount), NUMERIC '0') AS total
		FROM %s.%s t
		WHERE t.user_id = @user_id
		  AND t.type = 'refund'
		  AND t.refund_for = @refund_for
		  AND t.is_deleted = FALSE
	`, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "refund_for", Value: originalID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumRefunds: query read: %w", err)
	}

	var row struct {
		Total *big.Rat `bigquery:"total"`
	}
	if err := it.Next(&row); err != nil {
		return decimal.Zero, fmt.Errorf("SumRefunds: iter next: %w", err)
	}
	return decimalFromRat(row.Total), nil
}

// ApplyRefundWithClient commits the refund insert, the original-row update,
// and the audit record as one multi-statement transaction so the ledger can
// never be observed with a refund but an un-flipped original.
func ApplyRefundWithClient(ctx context.Context, client *bigquery.Client, refund, original *domain.Transaction, rec *domain.HistoryRecord) error {
	q := client.Query(fmt.Sprintf(`
		BEGIN TRANSACTION;`+insertTransactionStmt+`
		UPDATE %[1]s.%[2]s
		SET status = @orig_status,
			refunded_by = @orig_refunded_by,
			updated_ts = @orig_updated_ts
		WHERE transaction_id = @orig_transaction_id
		  AND user_id = @user_id;`+insertHistoryStmt+`
		COMMIT TRANSACTION;`,
		datasetID, transactionsTable, historyTable))

	params := transactionParams(refund)
	params = append(params,
		bigquery.QueryParameter{Name: "orig_transaction_id", Value: original.TransactionID},
		bigquery.QueryParameter{Name: "orig_status", Value: string(original.Status)},
		bigquery.QueryParameter{Name: "orig_refunded_by", Value: nullString(original.RefundedBy)},
		bigquery.QueryParameter{Name: "orig_updated_ts", Value: original.UpdatedAt},
	)
	params = append(params, historyParams(rec)...)
	q.Parameters = params

	return runDML(ctx, q, "ApplyRefund")
}

// UpdateTransactionWithClient rewrites a transaction row and appends the
// audit record in one multi-statement transaction.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, t *domain.Transaction, rec *domain.HistoryRecord) error {
	q := client.Query(fmt.Sprintf(`
		BEGIN TRANSACTION;
		UPDATE %[1]s.%[2]s
		SET amount = @amount,
			category = @category,
			transaction_date = @transaction_date,
			time_of_day = @time_of_day,
			description = @description,
			notes = @notes,
			tag = @tag,
			payment_method = @payment_method,
			portfolio_id = @portfolio_id,
			refunded_by = @refunded_by,
			status = @status,
			is_deleted = @is_deleted,
			deleted_at = @deleted_at,
			updated_ts = @updated_ts
		WHERE transaction_id = @transaction_id
		  AND user_id = @user_id;`+insertHistoryStmt+`
		COMMIT TRANSACTION;`,
		datasetID, transactionsTable, historyTable))
	q.Parameters = append(transactionParams(t), historyParams(rec)...)

	return runDML(ctx, q, "UpdateTransaction")
}

// ListHistoryWithClient returns the audit trail for one transaction, oldest first.
func ListHistoryWithClient(ctx context.Context, client *bigquery.Client, userID, transactionID string) ([]*domain.HistoryRecord, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			h.history_id,
			h.user_id,
			h.transaction_id,
			h.action,
			h.before,
			h.after,
			h.description,
			h.recorded_ts
		FROM %s.%s h
		WHERE h.transaction_id = @transaction_id
		  AND h.user_id = @user_id
		ORDER BY h.recorded_ts
	`, datasetID, historyTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: transactionID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListHistory: query read: %w", err)
	}

	var result []*domain.HistoryRecord
	for {
		var r HistoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListHistory: iter next: %w", err)
		}
		result = append(result, r.toDomain())
	}
	return result, nil
}
