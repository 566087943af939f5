package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BudgetHandler handles monthly budget config endpoints.
type BudgetHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(svc *ledger.Service, log zerolog.Logger) *BudgetHandler {
	return &BudgetHandler{svc: svc, log: log}
}

// Save handles PUT /api/budget
func (h *BudgetHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period             string          `json:"period"`
		MonthlySalary      decimal.Decimal `json:"monthly_salary"`
		NeedPercent        decimal.Decimal `json:"need_percent"`
		WantPercent        decimal.Decimal `json:"want_percent"`
		SavingsPercent     decimal.Decimal `json:"savings_percent"`
		InvestmentsPercent decimal.Decimal `json:"investments_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg := &domain.BudgetConfig{
		UserID:             userID(r),
		Period:             req.Period,
		MonthlySalary:      req.MonthlySalary,
		NeedPercent:        req.NeedPercent,
		WantPercent:        req.WantPercent,
		SavingsPercent:     req.SavingsPercent,
		InvestmentsPercent: req.InvestmentsPercent,
	}

	saved, err := h.svc.SaveBudgetConfig(r.Context(), cfg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to save budget config")
		writeServiceError(w, err, "Failed to save budget config")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, saved)
}

// Get handles GET /api/budget?period=YYYY-MM
func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		middleware.WriteError(w, http.StatusBadRequest, "period is required")
		return
	}

	cfg, err := h.svc.BudgetConfig(r.Context(), userID(r), period)
	if err != nil {
		writeServiceError(w, err, "Failed to load budget config")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cfg)
}
