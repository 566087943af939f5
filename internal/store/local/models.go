package local

import (
	"encoding/json"
	"time"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// transactionModel is the GORM mapping of domain.Transaction for the local
// SQLite fallback database.
type transactionModel struct {
	TransactionID string `gorm:"primaryKey"`
	UserID        string `gorm:"index;not null"`

	Type     string `gorm:"not null"`
	Category string `gorm:"not null"`

	Amount decimal.Decimal `gorm:"type:decimal(20,8);not null"`

	Date      time.Time `gorm:"not null"`
	TimeOfDay string

	Description   string
	Notes         string
	Tag           string
	PaymentMethod string

	PortfolioID string
	RefundFor   string `gorm:"index"`
	RefundedBy  string

	Status string `gorm:"not null"`

	IsDeleted bool `gorm:"not null;default:false"`
	DeletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (transactionModel) TableName() string { return "transactions" }

type portfolioModel struct {
	PortfolioID string `gorm:"primaryKey"`
	UserID      string `gorm:"index;not null"`
	Name        string `gorm:"not null"`

	AllocationType  string          `gorm:"not null"`
	AllocationValue decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	InvestedAmount  decimal.Decimal `gorm:"type:decimal(20,8);not null"`

	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (portfolioModel) TableName() string { return "portfolios" }

type budgetConfigModel struct {
	ConfigID string `gorm:"primaryKey"`
	UserID   string `gorm:"uniqueIndex:idx_user_period;not null"`
	Period   string `gorm:"uniqueIndex:idx_user_period;not null"`

	MonthlySalary decimal.Decimal `gorm:"type:decimal(20,8);not null"`

	NeedPercent        decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	WantPercent        decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	SavingsPercent     decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	InvestmentsPercent decimal.Decimal `gorm:"type:decimal(20,8);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (budgetConfigModel) TableName() string { return "budget_configs" }

type historyModel struct {
	HistoryID     string `gorm:"primaryKey"`
	UserID        string `gorm:"index;not null"`
	TransactionID string `gorm:"index;not null"`
	Action        string `gorm:"not null"`

	Before string
	After  string

	Description string
	RecordedAt  time.Time `gorm:"not null"`
}

func (historyModel) TableName() string { return "transaction_history" }

func toTransactionModel(t *domain.Transaction) *transactionModel {
	return &transactionModel{
		TransactionID: t.TransactionID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Category:      string(t.Category),
		Amount:        t.Amount,
		Date:          t.Date,
		TimeOfDay:     t.TimeOfDay,
		Description:   t.Description,
		Notes:         t.Notes,
		Tag:           t.Tag,
		PaymentMethod: string(t.PaymentMethod),
		PortfolioID:   t.PortfolioID,
		RefundFor:     t.RefundFor,
		RefundedBy:    t.RefundedBy,
		Status:        string(t.Status),
		IsDeleted:     t.IsDeleted,
		DeletedAt:     t.DeletedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (m *transactionModel) toDomain() *domain.Transaction {
	t := &domain.Transaction{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Type:          domain.TransactionType(m.Type),
		Category:      domain.AllocationCategory(m.Category),
		Amount:        m.Amount,
		Date:          m.Date,
		TimeOfDay:     m.TimeOfDay,
		Description:   m.Description,
		Notes:         m.Notes,
		Tag:           m.Tag,
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		PortfolioID:   m.PortfolioID,
		RefundFor:     m.RefundFor,
		RefundedBy:    m.RefundedBy,
		Status:        domain.TransactionStatus(m.Status),
		IsDeleted:     m.IsDeleted,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.DeletedAt != nil {
		d := *m.DeletedAt
		t.DeletedAt = &d
	}
	return t
}

func toPortfolioModel(p *domain.Portfolio) *portfolioModel {
	return &portfolioModel{
		PortfolioID:     p.PortfolioID,
		UserID:          p.UserID,
		Name:            p.Name,
		AllocationType:  string(p.AllocationType),
		AllocationValue: p.AllocationValue,
		AllocatedAmount: p.AllocatedAmount,
		InvestedAmount:  p.InvestedAmount,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (m *portfolioModel) toDomain() *domain.Portfolio {
	return &domain.Portfolio{
		PortfolioID:     m.PortfolioID,
		UserID:          m.UserID,
		Name:            m.Name,
		AllocationType:  domain.AllocationType(m.AllocationType),
		AllocationValue: m.AllocationValue,
		AllocatedAmount: m.AllocatedAmount,
		InvestedAmount:  m.InvestedAmount,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toBudgetConfigModel(c *domain.BudgetConfig) *budgetConfigModel {
	return &budgetConfigModel{
		ConfigID:           c.ConfigID,
		UserID:             c.UserID,
		Period:             c.Period,
		MonthlySalary:      c.MonthlySalary,
		NeedPercent:        c.NeedPercent,
		WantPercent:        c.WantPercent,
		SavingsPercent:     c.SavingsPercent,
		InvestmentsPercent: c.InvestmentsPercent,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func (m *budgetConfigModel) toDomain() *domain.BudgetConfig {
	return &domain.BudgetConfig{
		ConfigID:           m.ConfigID,
		UserID:             m.UserID,
		Period:             m.Period,
		MonthlySalary:      m.MonthlySalary,
		NeedPercent:        m.NeedPercent,
		WantPercent:        m.WantPercent,
		SavingsPercent:     m.SavingsPercent,
		InvestmentsPercent: m.InvestmentsPercent,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toHistoryModel(rec *domain.HistoryRecord) *historyModel {
	return &historyModel{
		HistoryID:     rec.HistoryID,
		UserID:        rec.UserID,
		TransactionID: rec.TransactionID,
		Action:        string(rec.Action),
		Before:        string(rec.Before),
		After:         string(rec.After),
		Description:   rec.Description,
		RecordedAt:    rec.RecordedAt,
	}
}

func (m *historyModel) toDomain() *domain.HistoryRecord {
	rec := &domain.HistoryRecord{
		HistoryID:     m.HistoryID,
		UserID:        m.UserID,
		TransactionID: m.TransactionID,
		Action:        domain.HistoryAction(m.Action),
		Description:   m.Description,
		RecordedAt:    m.RecordedAt,
	}
	if m.Before != "" {
		rec.Before = json.RawMessage(m.Before)
	}
	if m.After != "" {
		rec.After = json.RawMessage(m.After)
	}
	return rec
}
