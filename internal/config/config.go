// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Backend selects the storage strategy at startup.
type Backend string

const (
	BackendBigQuery Backend = "bigquery"
	BackendLocal    Backend = "local"
)

type Config struct {
	Port string

	// Backend is the preferred store. When it is BackendBigQuery and the
	// backend is unreachable at startup, the server falls back to the
	// local store.
	Backend Backend

	// ProjectID is the GCP project holding the budget dataset.
	ProjectID string

	// LocalDBPath is the SQLite file used by the local fallback store.
	LocalDBPath string

	// ExportBucket is the GCS bucket for ledger snapshot exports; empty
	// disables exports.
	ExportBucket string
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		Backend:      Backend(getenv("STORE_BACKEND", string(BackendBigQuery))),
		ProjectID:    os.Getenv("GCP_PROJECT_ID"),
		LocalDBPath:  getenv("LOCAL_DB_PATH", "budget-ledger.db"),
		ExportBucket: os.Getenv("EXPORT_BUCKET"),
	}

	switch cfg.Backend {
	case BackendBigQuery, BackendLocal:
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.Backend)
	}
	if cfg.Backend == BackendBigQuery && cfg.ProjectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT_ID is required for the bigquery backend")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
