// Package ledger implements the reconciliation model: the rules governing
// transaction status transitions, refund creation, amount reductions, soft
// deletion, and the audit trail they produce. All multi-write effects go
// through the store's atomic operations so a failure never leaves the
// ledger half-updated.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service applies reconciliation rules on top of a storage backend.
// It is storage-agnostic: the same rules run against BigQuery, the local
// SQLite fallback, or the in-memory store.
type Service struct {
	store store.Store
	log   zerolog.Logger

	// injectable for tests
	now   func() time.Time
	newID func() string
}

// NewService creates a ledger service on top of the given store.
func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RecordTransaction validates and persists a new transaction, writing its
// creation audit record. Investment transactions targeting a portfolio also
// advance that portfolio's invested amount.
func (s *Service) RecordTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := validateNew(tx); err != nil {
		return nil, err
	}

	now := s.now()
	t := tx.Clone()
	t.TransactionID = s.newID()
	t.Status = domain.StatusActive
	t.IsDeleted = false
	t.DeletedAt = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	rec := s.historyRecord(t, domain.ActionCreated, nil, t, "transaction created")
	if err := s.store.InsertTransaction(ctx, t, rec); err != nil {
		return nil, fmt.Errorf("RecordTransaction: %w", err)
	}

	if t.Type == domain.TypeInvestment && t.PortfolioID != "" {
		if err := s.advanceInvestment(ctx, t); err != nil {
			// The transaction itself is committed; the portfolio counter is
			// derived data and the caller can re-read it.
			s.log.Warn().Err(err).
				Str("transaction_id", t.TransactionID).
				Str("portfolio_id", t.PortfolioID).
				Msg("Failed to advance portfolio invested amount")
		}
	}

	s.log.Info().
		Str("transaction_id", t.TransactionID).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.String()).
		Msg("Transaction recorded")
	return t, nil
}

// IssueRefund creates a refund transaction against originalID and flips the
// original's status to refunded or partial_refund. Both writes and the audit
// record commit atomically.
func (s *Service) IssueRefund(ctx context.Context, userID, originalID string, amount decimal.Decimal, reason string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrInvalidArgument)
	}

	original, err := s.store.GetTransaction(ctx, userID, originalID)
	if err != nil {
		return nil, fmt.Errorf("IssueRefund: loading original: %w", err)
	}
	if !original.Refundable() {
		return nil, fmt.Errorf("%w: transaction %s is not refundable (status %s)", ErrConflict, originalID, original.Status)
	}

	refunded, err := s.store.SumRefunds(ctx, userID, originalID)
	if err != nil {
		return nil, fmt.Errorf("IssueRefund: summing prior refunds: %w", err)
	}
	remaining := original.Amount.Sub(refunded)
	if amount.GreaterThan(remaining) {
		return nil, fmt.Errorf("%w: refund %s exceeds remaining refundable balance %s", ErrConflict, amount, remaining)
	}

	now := s.now()
	before := original.Clone()

	refund := &domain.Transaction{
		TransactionID: s.newID(),
		UserID:        userID,
		Type:          domain.TypeRefund,
		Category:      original.Category,
		Amount:        amount,
		Date:          now.Truncate(24 * time.Hour),
		Description:   refundDescription(original, reason),
		PaymentMethod: original.PaymentMethod,
		RefundFor:     originalID,
		Status:        domain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if refunded.Add(amount).Equal(original.Amount) {
		original.Status = domain.StatusRefunded
	} else {
		original.Status = domain.StatusPartialRefund
	}
	original.RefundedBy = refund.TransactionID
	original.UpdatedAt = now

	rec := s.historyRecord(original, domain.ActionRefunded, before, original,
		fmt.Sprintf("refund of %s issued: %s", amount, reason))
	if err := s.store.ApplyRefund(ctx, refund, original, rec); err != nil {
		return nil, fmt.Errorf("IssueRefund: %w", err)
	}

	s.log.Info().
		Str("transaction_id", originalID).
		Str("refund_id", refund.TransactionID).
		Str("amount", amount.String()).
		Str("status", string(original.Status)).
		Msg("Refund issued")
	return refund, nil
}

// ReduceAmount decrements a transaction's amount in place, appending the
// note and one amount_reduced audit record capturing before/after amounts.
// The reduction must be strictly less than the current amount.
func (s *Service) ReduceAmount(ctx context.Context, userID, transactionID string, reduction decimal.Decimal, notes string) (*domain.Transaction, error) {
	if !reduction.IsPositive() {
		return nil, fmt.Errorf("%w: reduction must be positive", ErrInvalidArgument)
	}

	tx, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ReduceAmount: loading transaction: %w", err)
	}
	if reduction.GreaterThanOrEqual(tx.Amount) {
		return nil, fmt.Errorf("%w: reduction must be less than original amount", ErrInvalidArgument)
	}

	now := s.now()
	before := tx.Clone()

	tx.Amount = tx.Amount.Sub(reduction)
	tx.Notes = appendNote(tx.Notes, notes)
	tx.UpdatedAt = now

	rec := s.historyRecord(tx, domain.ActionAmountReduced, before, tx,
		fmt.Sprintf("amount reduced from %s to %s", before.Amount, tx.Amount))
	if err := s.store.UpdateTransaction(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("ReduceAmount: %w", err)
	}

	s.log.Info().
		Str("transaction_id", transactionID).
		Str("old_amount", before.Amount.String()).
		Str("new_amount", tx.Amount.String()).
		Msg("Transaction amount reduced")
	return tx, nil
}

// SoftDelete marks a transaction deleted and cancelled. A second call for an
// already-deleted transaction is a no-op success; linked refund records are
// not cascaded.
func (s *Service) SoftDelete(ctx context.Context, userID, transactionID string) error {
	tx, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		// Deleted rows are invisible to GetTransaction, so a repeat delete
		// surfaces as not-found; treat that as the idempotent success case.
		if deleted, derr := s.isDeleted(ctx, userID, transactionID); derr == nil && deleted {
			return nil
		}
		return fmt.Errorf("SoftDelete: loading transaction: %w", err)
	}

	now := s.now()
	before := tx.Clone()

	tx.IsDeleted = true
	tx.DeletedAt = &now
	tx.Status = domain.StatusCancelled
	tx.UpdatedAt = now

	rec := s.historyRecord(tx, domain.ActionDeleted, before, tx, "transaction deleted")
	if err := s.store.UpdateTransaction(ctx, tx, rec); err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}

	s.log.Info().Str("transaction_id", transactionID).Msg("Transaction soft-deleted")
	return nil
}

// UpdateDetails applies descriptive-field changes (description, notes, tag,
// payment method, category) and writes an updated audit record. Amount and
// lifecycle state are only touched by the dedicated operations.
func (s *Service) UpdateDetails(ctx context.Context, userID, transactionID string, apply func(*domain.Transaction)) (*domain.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("UpdateDetails: loading transaction: %w", err)
	}

	before := tx.Clone()
	apply(tx)

	// Descriptive updates must not smuggle in state changes.
	tx.TransactionID = before.TransactionID
	tx.UserID = before.UserID
	tx.Amount = before.Amount
	tx.Status = before.Status
	tx.IsDeleted = before.IsDeleted
	tx.DeletedAt = before.DeletedAt
	tx.RefundFor = before.RefundFor
	tx.RefundedBy = before.RefundedBy
	tx.CreatedAt = before.CreatedAt
	tx.UpdatedAt = s.now()

	if !domain.ValidCategory(tx.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, tx.Category)
	}
	if !domain.ValidPaymentMethod(tx.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, tx.PaymentMethod)
	}

	rec := s.historyRecord(tx, domain.ActionUpdated, before, tx, "transaction details updated")
	if err := s.store.UpdateTransaction(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("UpdateDetails: %w", err)
	}
	return tx, nil
}

// Transaction fetches one visible transaction.
func (s *Service) Transaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("Transaction: %w", err)
	}
	return tx, nil
}

// Transactions lists visible transactions matching the filter, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return txs, nil
}

// History returns the audit trail for one transaction, oldest first.
func (s *Service) History(ctx context.Context, userID, transactionID string) ([]*domain.HistoryRecord, error) {
	recs, err := s.store.ListHistory(ctx, userID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return recs, nil
}

func (s *Service) isDeleted(ctx context.Context, userID, transactionID string) (bool, error) {
	recs, err := s.store.ListHistory(ctx, userID, transactionID)
	if err != nil {
		return false, err
	}
	for _, rec := range recs {
		if rec.Action == domain.ActionDeleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) advanceInvestment(ctx context.Context, tx *domain.Transaction) error {
	p, err := s.store.GetPortfolio(ctx, tx.UserID, tx.PortfolioID)
	if err != nil {
		return err
	}
	p.InvestedAmount = p.InvestedAmount.Add(tx.Amount)
	p.UpdatedAt = s.now()
	return s.store.UpdatePortfolio(ctx, p)
}

func (s *Service) historyRecord(tx *domain.Transaction, action domain.HistoryAction, before, after *domain.Transaction, desc string) *domain.HistoryRecord {
	return &domain.HistoryRecord{
		HistoryID:     s.newID(),
		UserID:        tx.UserID,
		TransactionID: tx.TransactionID,
		Action:        action,
		Before:        domain.Snapshot(before),
		After:         domain.Snapshot(after),
		Description:   desc,
		RecordedAt:    s.now(),
	}
}

func validateNew(tx *domain.Transaction) error {
	if tx.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	if !domain.ValidType(tx.Type) {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidArgument, tx.Type)
	}
	if tx.Type == domain.TypeRefund {
		return fmt.Errorf("%w: refunds are created through the refund operation", ErrInvalidArgument)
	}
	if !domain.ValidCategory(tx.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, tx.Category)
	}
	if !domain.ValidPaymentMethod(tx.PaymentMethod) {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidArgument, tx.PaymentMethod)
	}
	if tx.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	}
	if tx.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidArgument)
	}
	return nil
}

func refundDescription(original *domain.Transaction, reason string) string {
	desc := "Refund"
	if original.Description != "" {
		desc += " for: " + original.Description
	}
	if reason != "" {
		desc += " (" + reason + ")"
	}
	return desc
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
