// Package memory is an in-memory implementation of store.Store.
// It stores entities in maps guarded by a RWMutex and hands out copies,
// so callers never share mutable state with the store. Data is lost on
// restart; it backs tests and serves as a last-resort store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	history      map[string][]*domain.HistoryRecord // keyed by transaction id
	portfolios   map[string]*domain.Portfolio
	budgets      map[string]*domain.BudgetConfig // keyed by userID+"/"+period
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*domain.Transaction),
		history:      make(map[string][]*domain.HistoryRecord),
		portfolios:   make(map[string]*domain.Portfolio),
		budgets:      make(map[string]*domain.BudgetConfig),
	}
}

func (s *Store) Close() error { return nil }

// visible reports whether tx exists for the given user under normal reads.
func visible(tx *domain.Transaction, userID string) bool {
	return tx != nil && tx.UserID == userID && !tx.IsDeleted
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction, rec *domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[tx.TransactionID] = tx.Clone()
	s.appendHistoryLocked(rec)
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx := s.transactions[transactionID]
	if !visible(tx, userID) {
		return nil, store.ErrNotFound
	}
	return tx.Clone(), nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.transactions {
		if !visible(tx, userID) {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Category != "" && tx.Category != f.Category {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && tx.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && tx.Date.After(f.To) {
			continue
		}
		result = append(result, tx.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return []*domain.Transaction{}, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result, nil
}

func (s *Store) SumRefunds(ctx context.Context, userID, originalID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, tx := range s.transactions {
		if visible(tx, userID) && tx.Type == domain.TypeRefund && tx.RefundFor == originalID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (s *Store) ApplyRefund(ctx context.Context, refund, original *domain.Transaction, rec *domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.transactions[original.TransactionID]; !visible(cur, original.UserID) {
		return store.ErrNotFound
	}
	s.transactions[refund.TransactionID] = refund.Clone()
	s.transactions[original.TransactionID] = original.Clone()
	s.appendHistoryLocked(rec)
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction, rec *domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.transactions[tx.TransactionID]
	if cur == nil || cur.UserID != tx.UserID {
		return store.ErrNotFound
	}
	s.transactions[tx.TransactionID] = tx.Clone()
	s.appendHistoryLocked(rec)
	return nil
}

func (s *Store) ListHistory(ctx context.Context, userID, transactionID string) ([]*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoryRecord
	for _, rec := range s.history[transactionID] {
		if rec.UserID != userID {
			continue
		}
		c := *rec
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result, nil
}

func (s *Store) appendHistoryLocked(rec *domain.HistoryRecord) {
	if rec == nil {
		return
	}
	c := *rec
	s.history[rec.TransactionID] = append(s.history[rec.TransactionID], &c)
}

func (s *Store) InsertPortfolio(ctx context.Context, p *domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	s.portfolios[p.PortfolioID] = &c
	return nil
}

func (s *Store) GetPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.portfolios[portfolioID]
	if p == nil || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Portfolio
	for _, p := range s.portfolios {
		if p.UserID != userID || !p.IsActive {
			continue
		}
		c := *p
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.portfolios[p.PortfolioID]
	if cur == nil || cur.UserID != p.UserID {
		return store.ErrNotFound
	}
	c := *p
	s.portfolios[p.PortfolioID] = &c
	return nil
}

func (s *Store) DeactivatePortfolio(ctx context.Context, userID, portfolioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.portfolios[portfolioID]
	if p == nil || p.UserID != userID {
		return store.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (s *Store) UpsertBudgetConfig(ctx context.Context, c *domain.BudgetConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.budgets[c.UserID+"/"+c.Period] = &cp
	return nil
}

func (s *Store) GetBudgetConfig(ctx context.Context, userID, period string) (*domain.BudgetConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.budgets[userID+"/"+period]
	if c == nil {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Ensure Store implements the full persistence contract.
var _ store.Store = (*Store)(nil)
