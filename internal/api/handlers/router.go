package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/jobs"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/dvloznov/budget-ledger/internal/suggest"
	"github.com/rs/zerolog"
)

// RouterConfig carries the dependencies for NewRouter.
type RouterConfig struct {
	Ledger    *ledger.Service
	Suggester *suggest.Suggester
	Publisher jobs.Publisher
	JobStore  jobs.Store

	// ExportBucket is the GCS bucket snapshots are written to. Empty
	// disables the export endpoint.
	ExportBucket string

	Log zerolog.Logger
}

// NewRouter builds the API route table. Every /api route requires the
// X-User-ID header; the gateway in front of this service sets it.
func NewRouter(cfg RouterConfig) http.Handler {
	transactionsHandler := NewTransactionsHandler(cfg.Ledger, cfg.Log)
	portfoliosHandler := NewPortfoliosHandler(cfg.Ledger, cfg.Log)
	budgetHandler := NewBudgetHandler(cfg.Ledger, cfg.Log)
	exportHandler := NewExportHandler(cfg.Publisher, cfg.ExportBucket, cfg.Log)
	jobsHandler := NewJobsHandler(cfg.JobStore, cfg.Log)
	categoriesHandler := NewCategoriesHandler(cfg.Suggester, cfg.Log)

	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.List(w, r)
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		transactionID, action, _ := strings.Cut(rest, "/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}

		switch action {
		case "":
			switch r.Method {
			case http.MethodGet:
				transactionsHandler.Get(w, r, transactionID)
			case http.MethodPut:
				transactionsHandler.Update(w, r, transactionID)
			case http.MethodDelete:
				transactionsHandler.Delete(w, r, transactionID)
			default:
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		case "refund":
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			transactionsHandler.Refund(w, r, transactionID)
		case "reduce":
			if r.Method != http.MethodPost {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			transactionsHandler.Reduce(w, r, transactionID)
		case "history":
			if r.Method != http.MethodGet {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			transactionsHandler.History(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Portfolios endpoints
	mux.HandleFunc("/api/portfolios", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			portfoliosHandler.List(w, r)
		case http.MethodPost:
			portfoliosHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/portfolios/", func(w http.ResponseWriter, r *http.Request) {
		portfolioID := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
		if portfolioID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Portfolio ID is required")
			return
		}
		if r.Method != http.MethodDelete {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		portfoliosHandler.Close(w, r, portfolioID)
	})

	// Budget endpoints
	mux.HandleFunc("/api/budget", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			budgetHandler.Get(w, r)
		case http.MethodPut:
			budgetHandler.Save(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Category suggestion endpoint
	mux.HandleFunc("/api/categories/suggest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		categoriesHandler.Suggest(w, r)
	})

	// Export and jobs endpoints
	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		exportHandler.Enqueue(w, r)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobsHandler.List(w, r)
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobsHandler.Get(w, r, jobID)
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return requireUser(mux)
}

// requireUser rejects /api requests that arrive without a caller identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && userID(r) == "" {
			middleware.WriteError(w, http.StatusUnauthorized, "X-User-ID header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
