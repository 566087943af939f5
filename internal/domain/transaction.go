package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies what kind of financial event a transaction records.
type TransactionType string

const (
	TypeExpense    TransactionType = "expense"
	TypeIncome     TransactionType = "income"
	TypeRefund     TransactionType = "refund"
	TypeInvestment TransactionType = "investment"
	TypeSavings    TransactionType = "savings"
	TypeTransfer   TransactionType = "transfer"
)

// AllocationCategory is the budget bucket a transaction counts against.
type AllocationCategory string

const (
	CategoryNeed        AllocationCategory = "need"
	CategoryWant        AllocationCategory = "want"
	CategorySavings     AllocationCategory = "savings"
	CategoryInvestments AllocationCategory = "investments"
)

// PaymentMethod records how a transaction was settled.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetbanking PaymentMethod = "netbanking"
	PaymentCheque     PaymentMethod = "cheque"
	PaymentOther      PaymentMethod = "other"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusActive        TransactionStatus = "active"
	StatusCancelled     TransactionStatus = "cancelled"
	StatusRefunded      TransactionStatus = "refunded"
	StatusPartialRefund TransactionStatus = "partial_refund"
)

// Transaction represents one financial event belonging to a user.
// Amounts are always non-negative; direction is carried by Type.
type Transaction struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`

	Type     TransactionType    `json:"type"`
	Category AllocationCategory `json:"category"`

	Amount decimal.Decimal `json:"amount"`

	Date      time.Time `json:"date"`
	TimeOfDay string    `json:"time_of_day,omitempty"` // "15:04", optional

	Description   string        `json:"description,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Tag           string        `json:"tag,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`

	PortfolioID string `json:"portfolio_id,omitempty"`

	// RefundFor links a refund transaction back to the transaction it
	// reverses. RefundedBy is the reverse link: the id of the most recent
	// refund record created against this transaction.
	RefundFor  string `json:"refund_for,omitempty"`
	RefundedBy string `json:"refunded_by,omitempty"`

	Status TransactionStatus `json:"status"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidType reports whether t is one of the known transaction types.
func ValidType(t TransactionType) bool {
	switch t {
	case TypeExpense, TypeIncome, TypeRefund, TypeInvestment, TypeSavings, TypeTransfer:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the known allocation categories.
func ValidCategory(c AllocationCategory) bool {
	switch c {
	case CategoryNeed, CategoryWant, CategorySavings, CategoryInvestments:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a known payment method.
// The empty string is allowed; payment method is optional.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case "", PaymentCash, PaymentCard, PaymentUPI, PaymentNetbanking, PaymentCheque, PaymentOther:
		return true
	}
	return false
}

// FullyRefunded reports whether the transaction is in its terminal refund state.
func (t *Transaction) FullyRefunded() bool {
	return t.Status == StatusRefunded
}

// Refundable reports whether a refund may still be issued against the transaction.
func (t *Transaction) Refundable() bool {
	return !t.IsDeleted && t.Status != StatusCancelled && t.Status != StatusRefunded && t.Type != TypeRefund
}

// Clone returns a deep copy. DeletedAt is the only pointer field.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}
