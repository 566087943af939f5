package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// Store is the BigQuery-backed implementation of store.Store. It holds a
// shared client so repeated operations reuse one connection.
type Store struct {
	client *bigquery.Client
}

// NewStore creates a BigQuery store for the given project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewStore: creating client: %w", err)
	}
	return &Store{client: client}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ping issues a trivial query to verify the backend is reachable. The API
// server uses it at startup to decide between this store and the local
// fallback.
func (s *Store) Ping(ctx context.Context) error {
	q := s.client.Query("SELECT 1")
	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("bigquery.Ping: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil {
		return fmt.Errorf("bigquery.Ping: %w", err)
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction, rec *domain.HistoryRecord) error {
	return InsertTransactionWithClient(ctx, s.client, t, rec)
}

func (s *Store) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return GetTransactionWithClient(ctx, s.client, userID, transactionID)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, s.client, userID, f)
}

func (s *Store) SumRefunds(ctx context.Context, userID, originalID string) (decimal.Decimal, error) {
	return SumRefundsWithClient(ctx, s.client, userID, originalID)
}

func (s *Store) ApplyRefund(ctx context.Context, refund, original *domain.Transaction, rec *domain.HistoryRecord) error {
	return ApplyRefundWithClient(ctx, s.client, refund, original, rec)
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction, rec *domain.HistoryRecord) error {
	return UpdateTransactionWithClient(ctx, s.client, t, rec)
}

func (s *Store) ListHistory(ctx context.Context, userID, transactionID string) ([]*domain.HistoryRecord, error) {
	return ListHistoryWithClient(ctx, s.client, userID, transactionID)
}

func (s *Store) InsertPortfolio(ctx context.Context, p *domain.Portfolio) error {
	return InsertPortfolioWithClient(ctx, s.client, p)
}

func (s *Store) GetPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error) {
	return GetPortfolioWithClient(ctx, s.client, userID, portfolioID)
}

func (s *Store) ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	return ListPortfoliosWithClient(ctx, s.client, userID)
}

func (s *Store) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	return UpdatePortfolioWithClient(ctx, s.client, p)
}

func (s *Store) DeactivatePortfolio(ctx context.Context, userID, portfolioID string) error {
	return DeactivatePortfolioWithClient(ctx, s.client, userID, portfolioID)
}

func (s *Store) UpsertBudgetConfig(ctx context.Context, c *domain.BudgetConfig) error {
	return UpsertBudgetConfigWithClient(ctx, s.client, c)
}

func (s *Store) GetBudgetConfig(ctx context.Context, userID, period string) (*domain.BudgetConfig, error) {
	return GetBudgetConfigWithClient(ctx, s.client, userID, period)
}

// Ensure Store implements the full persistence contract.
var _ store.Store = (*Store)(nil)
