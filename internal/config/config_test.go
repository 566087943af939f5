package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "local")
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("PORT", "")
	t.Setenv("LOCAL_DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Port)
	}
	if cfg.LocalDBPath != "budget-ledger.db" {
		t.Errorf("db path = %s, want default", cfg.LocalDBPath)
	}
}

func TestLoad_BigQueryRequiresProject(t *testing.T) {
	t.Setenv("STORE_BACKEND", "bigquery")
	t.Setenv("GCP_PROJECT_ID", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when GCP_PROJECT_ID is unset for bigquery backend")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "dynamo")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown backend")
	}
}
