// Package export builds full-ledger snapshots and writes them to Google
// Cloud Storage. Assumes Application Default Credentials are configured.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
)

// Snapshot is the exported document: everything the ledger holds for one
// user at the time of export.
type Snapshot struct {
	UserID     string `json:"user_id"`
	ExportedAt string `json:"exported_at"`

	Transactions []*domain.Transaction   `json:"transactions"`
	Portfolios   []*domain.Portfolio     `json:"portfolios"`
	BudgetConfig *domain.BudgetConfig    `json:"budget_config,omitempty"`
	History      []*domain.HistoryRecord `json:"history"`
}

// Exporter writes ledger snapshots to a GCS bucket.
type Exporter struct {
	store store.Store
	now   func() time.Time
}

// NewExporter creates an exporter reading from the given store.
func NewExporter(st store.Store) *Exporter {
	return &Exporter{store: st, now: time.Now}
}

// BuildSnapshot gathers one user's full ledger. The budget config is taken
// for the export month; a missing config is not an error.
func (e *Exporter) BuildSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	now := e.now().UTC()

	txs, err := e.store.ListTransactions(ctx, userID, store.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("BuildSnapshot: listing transactions: %w", err)
	}
	portfolios, err := e.store.ListPortfolios(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("BuildSnapshot: listing portfolios: %w", err)
	}

	snap := &Snapshot{
		UserID:       userID,
		ExportedAt:   now.Format(time.RFC3339),
		Transactions: txs,
		Portfolios:   portfolios,
	}

	if cfg, err := e.store.GetBudgetConfig(ctx, userID, now.Format("2006-01")); err == nil {
		snap.BudgetConfig = cfg
	}

	for _, tx := range txs {
		recs, err := e.store.ListHistory(ctx, userID, tx.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("BuildSnapshot: listing history for %s: %w", tx.TransactionID, err)
		}
		snap.History = append(snap.History, recs...)
	}
	return snap, nil
}

// Export builds the snapshot and uploads it to the bucket, returning the
// gs:// URI of the written object.
func (e *Exporter) Export(ctx context.Context, bucket, userID string) (string, error) {
	snap, err := e.BuildSnapshot(ctx, userID)
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Export: marshaling snapshot: %w", err)
	}

	objectName := ObjectName(userID, e.now().UTC())

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Export: creating storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Export: writing snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Export: finalizing upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, objectName), nil
}

// ObjectName derives the snapshot object path for a user and timestamp.
func ObjectName(userID string, ts time.Time) string {
	return fmt.Sprintf("exports/%s/%s/ledger-%s.json",
		userID, ts.Format("2006/01"), ts.Format("20060102-150405"))
}
