// Package bigquery implements store.Store against the hosted BigQuery
// backend. Row structs mirror the budget dataset's table schemas; every
// operation has a ...WithClient variant so callers can share one client.
package bigquery

import (
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the scale used when converting NUMERIC values back into
// decimals. BigQuery NUMERIC carries nine fractional digits.
const numericScale = 9

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	Type     string `bigquery:"type"`     // REQUIRED
	Category string `bigquery:"category"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	TransactionDate civil.Date          `bigquery:"transaction_date"` // REQUIRED
	TimeOfDay       bigquery.NullString `bigquery:"time_of_day"`      // NULLABLE

	Description   bigquery.NullString `bigquery:"description"`    // NULLABLE
	Notes         bigquery.NullString `bigquery:"notes"`          // NULLABLE
	Tag           bigquery.NullString `bigquery:"tag"`            // NULLABLE
	PaymentMethod bigquery.NullString `bigquery:"payment_method"` // NULLABLE

	PortfolioID bigquery.NullString `bigquery:"portfolio_id"` // NULLABLE
	RefundFor   bigquery.NullString `bigquery:"refund_for"`   // NULLABLE
	RefundedBy  bigquery.NullString `bigquery:"refunded_by"`  // NULLABLE

	Status string `bigquery:"status"` // REQUIRED

	IsDeleted bool                   `bigquery:"is_deleted"` // REQUIRED (default false)
	DeletedAt bigquery.NullTimestamp `bigquery:"deleted_at"` // NULLABLE

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type PortfolioRow struct {
	PortfolioID string `bigquery:"portfolio_id"` // REQUIRED
	UserID      string `bigquery:"user_id"`      // REQUIRED
	Name        string `bigquery:"name"`         // REQUIRED

	AllocationType  string   `bigquery:"allocation_type"`  // REQUIRED
	AllocationValue *big.Rat `bigquery:"allocation_value"` // REQUIRED NUMERIC
	AllocatedAmount *big.Rat `bigquery:"allocated_amount"` // REQUIRED NUMERIC
	InvestedAmount  *big.Rat `bigquery:"invested_amount"`  // REQUIRED NUMERIC

	IsActive bool `bigquery:"is_active"` // REQUIRED (default true)

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type BudgetConfigRow struct {
	ConfigID string `bigquery:"config_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED
	Period   string `bigquery:"period"`    // REQUIRED "YYYY-MM"

	MonthlySalary *big.Rat `bigquery:"monthly_salary"` // REQUIRED NUMERIC

	NeedPercent        *big.Rat `bigquery:"need_percent"`        // REQUIRED NUMERIC
	WantPercent        *big.Rat `bigquery:"want_percent"`        // REQUIRED NUMERIC
	SavingsPercent     *big.Rat `bigquery:"savings_percent"`     // REQUIRED NUMERIC
	InvestmentsPercent *big.Rat `bigquery:"investments_percent"` // REQUIRED NUMERIC

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

type HistoryRow struct {
	HistoryID     string `bigquery:"history_id"`     // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	Action        string `bigquery:"action"`         // REQUIRED

	Before bigquery.NullJSON `bigquery:"before"` // NULLABLE JSON
	After  bigquery.NullJSON `bigquery:"after"`  // NULLABLE JSON

	Description bigquery.NullString `bigquery:"description"` // NULLABLE
	RecordedTS  time.Time           `bigquery:"recorded_ts"` // REQUIRED
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullTimestamp(t *time.Time) bigquery.NullTimestamp {
	if t == nil || t.IsZero() {
		return bigquery.NullTimestamp{}
	}
	return bigquery.NullTimestamp{Timestamp: *t, Valid: true}
}

func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

func toTransactionRow(t *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   t.TransactionID,
		UserID:          t.UserID,
		Type:            string(t.Type),
		Category:        string(t.Category),
		Amount:          ratFromDecimal(t.Amount),
		TransactionDate: civil.DateOf(t.Date),
		TimeOfDay:       nullString(t.TimeOfDay),
		Description:     nullString(t.Description),
		Notes:           nullString(t.Notes),
		Tag:             nullString(t.Tag),
		PaymentMethod:   nullString(string(t.PaymentMethod)),
		PortfolioID:     nullString(t.PortfolioID),
		RefundFor:       nullString(t.RefundFor),
		RefundedBy:      nullString(t.RefundedBy),
		Status:          string(t.Status),
		IsDeleted:       t.IsDeleted,
		DeletedAt:       nullTimestamp(t.DeletedAt),
		CreatedTS:       t.CreatedAt,
		UpdatedTS:       nullTimestamp(&t.UpdatedAt),
	}
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	t := &domain.Transaction{
		TransactionID: r.TransactionID,
		UserID:        r.UserID,
		Type:          domain.TransactionType(r.Type),
		Category:      domain.AllocationCategory(r.Category),
		Amount:        decimalFromRat(r.Amount),
		Date:          r.TransactionDate.In(time.UTC),
		TimeOfDay:     r.TimeOfDay.StringVal,
		Description:   r.Description.StringVal,
		Notes:         r.Notes.StringVal,
		Tag:           r.Tag.StringVal,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod.StringVal),
		PortfolioID:   r.PortfolioID.StringVal,
		RefundFor:     r.RefundFor.StringVal,
		RefundedBy:    r.RefundedBy.StringVal,
		Status:        domain.TransactionStatus(r.Status),
		IsDeleted:     r.IsDeleted,
		CreatedAt:     r.CreatedTS,
	}
	if r.DeletedAt.Valid {
		d := r.DeletedAt.Timestamp
		t.DeletedAt = &d
	}
	if r.UpdatedTS.Valid {
		t.UpdatedAt = r.UpdatedTS.Timestamp
	} else {
		t.UpdatedAt = r.CreatedTS
	}
	return t
}

func toPortfolioRow(p *domain.Portfolio) *PortfolioRow {
	return &PortfolioRow{
		PortfolioID:     p.PortfolioID,
		UserID:          p.UserID,
		Name:            p.Name,
		AllocationType:  string(p.AllocationType),
		AllocationValue: ratFromDecimal(p.AllocationValue),
		AllocatedAmount: ratFromDecimal(p.AllocatedAmount),
		InvestedAmount:  ratFromDecimal(p.InvestedAmount),
		IsActive:        p.IsActive,
		CreatedTS:       p.CreatedAt,
		UpdatedTS:       nullTimestamp(&p.UpdatedAt),
	}
}

func (r *PortfolioRow) toDomain() *domain.Portfolio {
	p := &domain.Portfolio{
		PortfolioID:     r.PortfolioID,
		UserID:          r.UserID,
		Name:            r.Name,
		AllocationType:  domain.AllocationType(r.AllocationType),
		AllocationValue: decimalFromRat(r.AllocationValue),
		AllocatedAmount: decimalFromRat(r.AllocatedAmount),
		InvestedAmount:  decimalFromRat(r.InvestedAmount),
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedTS,
	}
	if r.UpdatedTS.Valid {
		p.UpdatedAt = r.UpdatedTS.Timestamp
	} else {
		p.UpdatedAt = r.CreatedTS
	}
	return p
}

func (r *BudgetConfigRow) toDomain() *domain.BudgetConfig {
	c := &domain.BudgetConfig{
		ConfigID:           r.ConfigID,
		UserID:             r.UserID,
		Period:             r.Period,
		MonthlySalary:      decimalFromRat(r.MonthlySalary),
		NeedPercent:        decimalFromRat(r.NeedPercent),
		WantPercent:        decimalFromRat(r.WantPercent),
		SavingsPercent:     decimalFromRat(r.SavingsPercent),
		InvestmentsPercent: decimalFromRat(r.InvestmentsPercent),
		CreatedAt:          r.CreatedTS,
	}
	if r.UpdatedTS.Valid {
		c.UpdatedAt = r.UpdatedTS.Timestamp
	} else {
		c.UpdatedAt = r.CreatedTS
	}
	return c
}

func (r *HistoryRow) toDomain() *domain.HistoryRecord {
	rec := &domain.HistoryRecord{
		HistoryID:     r.HistoryID,
		UserID:        r.UserID,
		TransactionID: r.TransactionID,
		Action:        domain.HistoryAction(r.Action),
		Description:   r.Description.StringVal,
		RecordedAt:    r.RecordedTS,
	}
	rec.Before = rawJSON(r.Before)
	rec.After = rawJSON(r.After)
	return rec
}

func rawJSON(v bigquery.NullJSON) json.RawMessage {
	if !v.Valid {
		return nil
	}
	if s, ok := v.JSONVal.(string); ok {
		return json.RawMessage(s)
	}
	b, err := json.Marshal(v.JSONVal)
	if err != nil {
		return nil
	}
	return b
}
