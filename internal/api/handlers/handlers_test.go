package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/budget-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/dvloznov/budget-ledger/internal/store/memory"
	"github.com/dvloznov/budget-ledger/internal/suggest"
	"github.com/rs/zerolog"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	st := memory.NewStore()
	log := zerolog.Nop()
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { _ = queue.Close() })

	return NewRouter(RouterConfig{
		Ledger:       ledger.NewService(st, log),
		Suggester:    suggest.NewSuggester(),
		Publisher:    queue,
		JobStore:     jobStore,
		ExportBucket: "test-bucket",
		Log:          log,
	})
}

func doRequest(t *testing.T, router http.Handler, method, path, user, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	resp := rr.Result()
	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, raw, err)
		}
	}
	return resp, decoded
}

func createTransaction(t *testing.T, router http.Handler, user, body string) string {
	t.Helper()

	resp, decoded := doRequest(t, router, http.MethodPost, "/api/transactions", user, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction: status = %d, body = %v", resp.StatusCode, decoded)
	}
	id, _ := decoded["transaction_id"].(string)
	if id == "" {
		t.Fatalf("create transaction: no transaction_id in %v", decoded)
	}
	return id
}

const sampleExpense = `{
	"type": "expense",
	"category": "want",
	"amount": "499.99",
	"date": "2025-06-10",
	"description": "Concert tickets",
	"payment_method": "card"
}`

func TestMissingUserHeaderRejected(t *testing.T) {
	router := newTestRouter(t)

	resp, _ := doRequest(t, router, http.MethodGet, "/api/transactions", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// /health stays open for probes.
	resp, _ = doRequest(t, router, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	id := createTransaction(t, router, "u1", sampleExpense)

	resp, decoded := doRequest(t, router, http.MethodGet, "/api/transactions/"+id, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}
	if decoded["status"] != "active" {
		t.Errorf("status = %v, want active", decoded["status"])
	}

	// Another user must not see it.
	resp, _ = doRequest(t, router, http.MethodGet, "/api/transactions/"+id, "u2", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user get: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/transactions", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if count, _ := decoded["count"].(float64); count != 1 {
		t.Errorf("list count = %v, want 1", decoded["count"])
	}

	resp, _ = doRequest(t, router, http.MethodDelete, "/api/transactions/"+id, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}

	// Repeat delete is the idempotent success case.
	resp, _ = doRequest(t, router, http.MethodDelete, "/api/transactions/"+id, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat delete: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp, _ = doRequest(t, router, http.MethodGet, "/api/transactions/"+id, "u1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestValidationMapsTo400(t *testing.T) {
	router := newTestRouter(t)

	resp, _ := doRequest(t, router, http.MethodPost, "/api/transactions", "u1",
		`{"type": "bribe", "category": "want", "amount": "10", "date": "2025-06-10"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown type: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRefundEndpoint(t *testing.T) {
	router := newTestRouter(t)

	id := createTransaction(t, router, "u1", sampleExpense)

	resp, decoded := doRequest(t, router, http.MethodPost, "/api/transactions/"+id+"/refund", "u1",
		`{"amount": "499.99", "reason": "event cancelled"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("refund: status = %d, body = %v", resp.StatusCode, decoded)
	}
	if decoded["type"] != "refund" || decoded["refund_for"] != id {
		t.Errorf("refund payload = %v", decoded)
	}

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/transactions/"+id, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get original: status = %d", resp.StatusCode)
	}
	if decoded["status"] != "refunded" {
		t.Errorf("original status = %v, want refunded", decoded["status"])
	}

	// A second refund against a fully refunded transaction is a conflict.
	resp, _ = doRequest(t, router, http.MethodPost, "/api/transactions/"+id+"/refund", "u1",
		`{"amount": "1", "reason": "again"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second refund: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestReduceEndpoint(t *testing.T) {
	router := newTestRouter(t)

	id := createTransaction(t, router, "u1", sampleExpense)

	resp, decoded := doRequest(t, router, http.MethodPost, "/api/transactions/"+id+"/reduce", "u1",
		`{"reduction": "99.99", "notes": "partial return"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reduce: status = %d, body = %v", resp.StatusCode, decoded)
	}
	if decoded["amount"] != "400" {
		t.Errorf("amount = %v, want 400", decoded["amount"])
	}

	// Reducing by the full amount is a validation failure.
	resp, _ = doRequest(t, router, http.MethodPost, "/api/transactions/"+id+"/reduce", "u1",
		`{"reduction": "400"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("full reduction: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	router := newTestRouter(t)

	id := createTransaction(t, router, "u1", sampleExpense)
	doRequest(t, router, http.MethodPost, "/api/transactions/"+id+"/reduce", "u1",
		`{"reduction": "100"}`)

	resp, decoded := doRequest(t, router, http.MethodGet, "/api/transactions/"+id+"/history", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status = %d", resp.StatusCode)
	}
	if count, _ := decoded["count"].(float64); count != 2 {
		t.Errorf("history count = %v, want 2", decoded["count"])
	}
}

func TestBudgetEndpoints(t *testing.T) {
	router := newTestRouter(t)

	resp, decoded := doRequest(t, router, http.MethodPut, "/api/budget", "u1",
		`{"period": "2025-06", "monthly_salary": "80000", "need_percent": "50", "want_percent": "30", "savings_percent": "10", "investments_percent": "10"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save budget: status = %d, body = %v", resp.StatusCode, decoded)
	}

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/budget?period=2025-06", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get budget: status = %d", resp.StatusCode)
	}
	if decoded["period"] != "2025-06" {
		t.Errorf("period = %v, want 2025-06", decoded["period"])
	}

	// Splits over 100 are rejected.
	resp, _ = doRequest(t, router, http.MethodPut, "/api/budget", "u1",
		`{"period": "2025-07", "monthly_salary": "80000", "need_percent": "60", "want_percent": "60"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized splits: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestPortfolioEndpoints(t *testing.T) {
	router := newTestRouter(t)

	resp, decoded := doRequest(t, router, http.MethodPost, "/api/portfolios", "u1",
		`{"name": "Index funds", "allocation_type": "amount", "allocation_value": "5000"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create portfolio: status = %d, body = %v", resp.StatusCode, decoded)
	}
	portfolioID, _ := decoded["portfolio_id"].(string)

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/portfolios", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list portfolios: status = %d", resp.StatusCode)
	}
	if count, _ := decoded["count"].(float64); count != 1 {
		t.Errorf("portfolio count = %v, want 1", decoded["count"])
	}

	resp, _ = doRequest(t, router, http.MethodDelete, "/api/portfolios/"+portfolioID, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close portfolio: status = %d", resp.StatusCode)
	}

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/portfolios", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list after close: status = %d", resp.StatusCode)
	}
	if count, _ := decoded["count"].(float64); count != 0 {
		t.Errorf("portfolio count after close = %v, want 0", decoded["count"])
	}
}

func TestExportEnqueueAndJobStatus(t *testing.T) {
	router := newTestRouter(t)

	resp, decoded := doRequest(t, router, http.MethodPost, "/api/export", "u1", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("export: status = %d, body = %v", resp.StatusCode, decoded)
	}
	jobID, _ := decoded["job_id"].(string)
	if jobID == "" {
		t.Fatalf("export: no job_id in %v", decoded)
	}

	resp, decoded = doRequest(t, router, http.MethodGet, "/api/jobs/"+jobID, "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get job: status = %d", resp.StatusCode)
	}
	if decoded["user_id"] != "u1" {
		t.Errorf("job user = %v, want u1", decoded["user_id"])
	}

	// Jobs are not visible to other users.
	resp, _ = doRequest(t, router, http.MethodGet, "/api/jobs/"+jobID, "u2", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user job get: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/transactions"},
		{http.MethodPost, "/api/budget"},
		{http.MethodGet, "/api/export"},
	} {
		resp, _ := doRequest(t, router, tc.method, tc.path, "u1", "")
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, resp.StatusCode, http.StatusMethodNotAllowed)
		}
	}
}

func TestUnknownTransactionIs404(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/transactions/nope",
		fmt.Sprintf("/api/transactions/%s/history", "nope"),
	} {
		resp, _ := doRequest(t, router, http.MethodGet, path, "u1", "")
		want := http.StatusNotFound
		if strings.HasSuffix(path, "/history") {
			// History of an unknown transaction is simply empty.
			want = http.StatusOK
		}
		if resp.StatusCode != want {
			t.Errorf("GET %s: status = %d, want %d", path, resp.StatusCode, want)
		}
	}
}
