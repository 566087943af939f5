package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced entity does not exist, is soft
// deleted, or is not owned by the requesting user. Stores never distinguish
// "absent" from "not yours".
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows ListTransactions results. Zero values mean
// "no constraint". Soft-deleted transactions are always excluded.
type TransactionFilter struct {
	Type     domain.TransactionType
	Category domain.AllocationCategory
	Status   domain.TransactionStatus
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// TransactionStore provides persistence for transactions and their audit
// history. Implementations return defensive copies; callers never observe
// shared mutable state.
type TransactionStore interface {
	// InsertTransaction inserts a new transaction and appends its creation
	// history record in one commit.
	InsertTransaction(ctx context.Context, tx *domain.Transaction, rec *domain.HistoryRecord) error

	// GetTransaction fetches a transaction by owner and id.
	// Returns ErrNotFound for absent, deleted, or foreign rows.
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)

	// ListTransactions returns the user's transactions matching the filter,
	// newest date first.
	ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]*domain.Transaction, error)

	// SumRefunds returns the cumulative amount of non-deleted refund
	// transactions whose RefundFor points at originalID.
	SumRefunds(ctx context.Context, userID, originalID string) (decimal.Decimal, error)

	// ApplyRefund atomically inserts the refund transaction, updates the
	// original transaction, and appends the history record. Either all
	// three writes commit or none do.
	ApplyRefund(ctx context.Context, refund, original *domain.Transaction, rec *domain.HistoryRecord) error

	// UpdateTransaction persists a modified transaction and appends the
	// history record in one commit.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction, rec *domain.HistoryRecord) error

	// ListHistory returns the audit records for one transaction,
	// oldest first.
	ListHistory(ctx context.Context, userID, transactionID string) ([]*domain.HistoryRecord, error)
}

// PortfolioStore provides persistence for investment portfolios.
type PortfolioStore interface {
	InsertPortfolio(ctx context.Context, p *domain.Portfolio) error

	// GetPortfolio fetches a portfolio by owner and id, including inactive
	// ones; callers decide whether inactive is acceptable.
	GetPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error)

	// ListPortfolios returns the user's active portfolios.
	ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error)

	UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error

	// DeactivatePortfolio performs the logical delete (is_active=false).
	DeactivatePortfolio(ctx context.Context, userID, portfolioID string) error
}

// BudgetStore provides persistence for per-period budget configs.
type BudgetStore interface {
	// UpsertBudgetConfig inserts or replaces the config for (user, period).
	UpsertBudgetConfig(ctx context.Context, c *domain.BudgetConfig) error

	// GetBudgetConfig fetches the config for (user, period).
	GetBudgetConfig(ctx context.Context, userID, period string) (*domain.BudgetConfig, error)
}

// Store is the full persistence contract the ledger service works against.
// The BigQuery store backs normal operation; the local SQLite store is the
// fallback selected at startup when the backend is unreachable; the memory
// store backs tests.
type Store interface {
	TransactionStore
	PortfolioStore
	BudgetStore

	// Close releases any underlying clients or connections.
	Close() error
}
