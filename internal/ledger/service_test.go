package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/dvloznov/budget-ledger/internal/store/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const testUser = "user-1"

func newTestService() (*Service, *memory.Store) {
	st := memory.NewStore()
	svc := NewService(st, zerolog.New(&bytes.Buffer{}))

	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return svc, st
}

func record(t *testing.T, svc *Service, amount int64) *domain.Transaction {
	t.Helper()
	tx, err := svc.RecordTransaction(context.Background(), &domain.Transaction{
		UserID:        testUser,
		Type:          domain.TypeExpense,
		Category:      domain.CategoryNeed,
		Amount:        decimal.NewFromInt(amount),
		Date:          time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		Description:   "groceries",
		PaymentMethod: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}
	return tx
}

func TestRecordTransaction_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	date := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"missing user", domain.Transaction{Type: domain.TypeExpense, Category: domain.CategoryNeed, Amount: decimal.NewFromInt(1), Date: date}},
		{"unknown type", domain.Transaction{UserID: testUser, Type: "loan", Category: domain.CategoryNeed, Amount: decimal.NewFromInt(1), Date: date}},
		{"refund type rejected", domain.Transaction{UserID: testUser, Type: domain.TypeRefund, Category: domain.CategoryNeed, Amount: decimal.NewFromInt(1), Date: date}},
		{"unknown category", domain.Transaction{UserID: testUser, Type: domain.TypeExpense, Category: "misc", Amount: decimal.NewFromInt(1), Date: date}},
		{"unknown payment method", domain.Transaction{UserID: testUser, Type: domain.TypeExpense, Category: domain.CategoryNeed, PaymentMethod: "crypto", Amount: decimal.NewFromInt(1), Date: date}},
		{"negative amount", domain.Transaction{UserID: testUser, Type: domain.TypeExpense, Category: domain.CategoryNeed, Amount: decimal.NewFromInt(-5), Date: date}},
		{"missing date", domain.Transaction{UserID: testUser, Type: domain.TypeExpense, Category: domain.CategoryNeed, Amount: decimal.NewFromInt(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordTransaction(ctx, &tt.tx)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("RecordTransaction() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestRecordTransaction_WritesCreationHistory(t *testing.T) {
	svc, _ := newTestService()
	tx := record(t, svc, 500)

	recs, err := svc.History(context.Background(), testUser, tx.TransactionID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(recs))
	}
	if recs[0].Action != domain.ActionCreated {
		t.Errorf("action = %s, want created", recs[0].Action)
	}
	if len(recs[0].Before) != 0 {
		t.Errorf("created record should have no before snapshot")
	}
}

func TestIssueRefund_FullRefund(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	refund, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(500), "defective")
	if err != nil {
		t.Fatalf("IssueRefund failed: %v", err)
	}

	if refund.Type != domain.TypeRefund {
		t.Errorf("refund type = %s, want refund", refund.Type)
	}
	if refund.RefundFor != tx.TransactionID {
		t.Errorf("refund_for = %s, want %s", refund.RefundFor, tx.TransactionID)
	}
	if !refund.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("refund amount = %s, want 500", refund.Amount)
	}
	if refund.Category != tx.Category {
		t.Errorf("refund category = %s, want inherited %s", refund.Category, tx.Category)
	}
	if refund.PaymentMethod != tx.PaymentMethod {
		t.Errorf("refund payment method = %s, want inherited %s", refund.PaymentMethod, tx.PaymentMethod)
	}

	original, err := svc.store.GetTransaction(ctx, testUser, tx.TransactionID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if original.Status != domain.StatusRefunded {
		t.Errorf("original status = %s, want refunded", original.Status)
	}
	if original.RefundedBy != refund.TransactionID {
		t.Errorf("refunded_by = %s, want %s", original.RefundedBy, refund.TransactionID)
	}
}

func TestIssueRefund_PartialRefund(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(200), "partial"); err != nil {
		t.Fatalf("IssueRefund failed: %v", err)
	}

	original, _ := svc.store.GetTransaction(ctx, testUser, tx.TransactionID)
	if original.Status != domain.StatusPartialRefund {
		t.Errorf("original status = %s, want partial_refund", original.Status)
	}
}

func TestIssueRefund_PartialsAccumulateToFull(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(200), "first"); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(300), "second"); err != nil {
		t.Fatalf("second refund failed: %v", err)
	}

	original, _ := svc.store.GetTransaction(ctx, testUser, tx.TransactionID)
	if original.Status != domain.StatusRefunded {
		t.Errorf("status after exact cumulative refund = %s, want refunded", original.Status)
	}
}

func TestIssueRefund_CumulativeOverRefundRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(400), "first"); err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	_, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(200), "too much")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("over-refund error = %v, want ErrConflict", err)
	}

	// The failed refund must leave the ledger untouched.
	sum, _ := svc.store.SumRefunds(ctx, testUser, tx.TransactionID)
	if !sum.Equal(decimal.NewFromInt(400)) {
		t.Errorf("refund sum after rejected refund = %s, want 400", sum)
	}
}

func TestIssueRefund_TerminalStateRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(500), "full"); err != nil {
		t.Fatalf("IssueRefund failed: %v", err)
	}
	_, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(1), "again")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("refund of refunded transaction error = %v, want ErrConflict", err)
	}
}

func TestIssueRefund_Errors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	tests := []struct {
		name    string
		user    string
		id      string
		amount  decimal.Decimal
		wantErr error
	}{
		{"unknown transaction", testUser, "missing", decimal.NewFromInt(10), ErrNotFound},
		{"foreign transaction", "intruder", tx.TransactionID, decimal.NewFromInt(10), ErrNotFound},
		{"zero amount", testUser, tx.TransactionID, decimal.Zero, ErrInvalidArgument},
		{"negative amount", testUser, tx.TransactionID, decimal.NewFromInt(-10), ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.IssueRefund(ctx, tt.user, tt.id, tt.amount, "r")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("IssueRefund() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssueRefund_WritesRefundedHistory(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	if _, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(500), "defective"); err != nil {
		t.Fatalf("IssueRefund failed: %v", err)
	}

	recs, _ := svc.History(ctx, testUser, tx.TransactionID)
	if len(recs) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(recs))
	}
	if recs[1].Action != domain.ActionRefunded {
		t.Errorf("latest action = %s, want refunded", recs[1].Action)
	}
}

func TestReduceAmount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 300)

	got, err := svc.ReduceAmount(ctx, testUser, tx.TransactionID, decimal.NewFromInt(100), "overcharged")
	if err != nil {
		t.Fatalf("ReduceAmount failed: %v", err)
	}
	if !got.Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("amount = %s, want 200", got.Amount)
	}
	if got.Notes != "overcharged" {
		t.Errorf("notes = %q, want note appended", got.Notes)
	}

	recs, _ := svc.History(ctx, testUser, tx.TransactionID)
	var reduced []*domain.HistoryRecord
	for _, rec := range recs {
		if rec.Action == domain.ActionAmountReduced {
			reduced = append(reduced, rec)
		}
	}
	if len(reduced) != 1 {
		t.Fatalf("expected exactly 1 amount_reduced record, got %d", len(reduced))
	}
	if reduced[0].Before == nil || reduced[0].After == nil {
		t.Error("amount_reduced record must capture before and after snapshots")
	}
}

func TestReduceAmount_RejectsFullReduction(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 300)

	tests := []struct {
		name      string
		reduction decimal.Decimal
	}{
		{"equal to amount", decimal.NewFromInt(300)},
		{"greater than amount", decimal.NewFromInt(400)},
		{"zero", decimal.Zero},
		{"negative", decimal.NewFromInt(-10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ReduceAmount(ctx, testUser, tx.TransactionID, tt.reduction, "")
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ReduceAmount() error = %v, want ErrInvalidArgument", err)
			}
		})
	}

	// Rejected reductions leave the transaction unchanged.
	cur, _ := svc.store.GetTransaction(ctx, testUser, tx.TransactionID)
	if !cur.Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("amount after rejected reductions = %s, want 300", cur.Amount)
	}
}

func TestSoftDelete(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 100)

	if err := svc.SoftDelete(ctx, testUser, tx.TransactionID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// Deleted transactions are excluded from all reads.
	if _, err := st.GetTransaction(ctx, testUser, tx.TransactionID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTransaction after delete error = %v, want ErrNotFound", err)
	}
	list, _ := st.ListTransactions(ctx, testUser, store.TransactionFilter{})
	if len(list) != 0 {
		t.Errorf("deleted transaction still listed")
	}
}

func TestSoftDelete_Idempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 100)

	if err := svc.SoftDelete(ctx, testUser, tx.TransactionID); err != nil {
		t.Fatalf("first SoftDelete failed: %v", err)
	}
	if err := svc.SoftDelete(ctx, testUser, tx.TransactionID); err != nil {
		t.Fatalf("second SoftDelete should be a no-op success, got: %v", err)
	}

	recs, _ := svc.History(ctx, testUser, tx.TransactionID)
	var deleted int
	for _, rec := range recs {
		if rec.Action == domain.ActionDeleted {
			deleted++
		}
	}
	if deleted != 1 {
		t.Errorf("expected exactly 1 deleted record, got %d", deleted)
	}
}

func TestSoftDelete_UnknownTransaction(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.SoftDelete(context.Background(), testUser, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SoftDelete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSoftDelete_DoesNotCascadeToRefunds(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 500)

	refund, err := svc.IssueRefund(ctx, testUser, tx.TransactionID, decimal.NewFromInt(200), "partial")
	if err != nil {
		t.Fatalf("IssueRefund failed: %v", err)
	}
	if err := svc.SoftDelete(ctx, testUser, tx.TransactionID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	got, err := st.GetTransaction(ctx, testUser, refund.TransactionID)
	if err != nil {
		t.Fatalf("linked refund should survive the delete: %v", err)
	}
	if got.Status != domain.StatusActive {
		t.Errorf("refund status = %s, want active", got.Status)
	}
}

func TestUpdateDetails(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tx := record(t, svc, 100)

	got, err := svc.UpdateDetails(ctx, testUser, tx.TransactionID, func(t *domain.Transaction) {
		t.Description = "weekly groceries"
		t.Tag = "food"
		t.Amount = decimal.NewFromInt(9999) // must be ignored
	})
	if err != nil {
		t.Fatalf("UpdateDetails failed: %v", err)
	}
	if got.Description != "weekly groceries" || got.Tag != "food" {
		t.Errorf("descriptive fields not applied: %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amount changed through UpdateDetails: %s", got.Amount)
	}

	recs, _ := svc.History(ctx, testUser, tx.TransactionID)
	if recs[len(recs)-1].Action != domain.ActionUpdated {
		t.Errorf("latest action = %s, want updated", recs[len(recs)-1].Action)
	}
}

func TestRecordTransaction_AdvancesPortfolio(t *testing.T) {
	svc, st := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, &domain.Portfolio{
		UserID:          testUser,
		Name:            "Index funds",
		AllocationType:  domain.AllocationAmount,
		AllocationValue: decimal.NewFromInt(1000),
	}, "2025-06")
	if err != nil {
		t.Fatalf("CreatePortfolio failed: %v", err)
	}

	_, err = svc.RecordTransaction(ctx, &domain.Transaction{
		UserID:      testUser,
		Type:        domain.TypeInvestment,
		Category:    domain.CategoryInvestments,
		Amount:      decimal.NewFromInt(250),
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PortfolioID: p.PortfolioID,
	})
	if err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}

	got, _ := st.GetPortfolio(ctx, testUser, p.PortfolioID)
	if !got.InvestedAmount.Equal(decimal.NewFromInt(250)) {
		t.Errorf("invested amount = %s, want 250", got.InvestedAmount)
	}
}
