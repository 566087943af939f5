package domain

import (
	"encoding/json"
	"time"
)

// HistoryAction identifies what happened to a transaction.
type HistoryAction string

const (
	ActionCreated       HistoryAction = "created"
	ActionUpdated       HistoryAction = "updated"
	ActionDeleted       HistoryAction = "deleted"
	ActionRefunded      HistoryAction = "refunded"
	ActionAmountReduced HistoryAction = "amount_reduced"
)

// HistoryRecord is an immutable audit entry for one transaction mutation.
// Before and After are snapshots of the transaction as it was around the
// mutation; Before is empty for ActionCreated.
type HistoryRecord struct {
	HistoryID     string        `json:"history_id"`
	UserID        string        `json:"user_id"`
	TransactionID string        `json:"transaction_id"`
	Action        HistoryAction `json:"action"`

	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`

	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Snapshot serializes a transaction for use in a history record. Failures
// cannot realistically happen for this struct; they yield a nil snapshot.
func Snapshot(t *Transaction) json.RawMessage {
	if t == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	return b
}
