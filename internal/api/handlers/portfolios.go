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

// PortfoliosHandler handles investment portfolio endpoints.
type PortfoliosHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewPortfoliosHandler creates a new portfolios handler.
func NewPortfoliosHandler(svc *ledger.Service, log zerolog.Logger) *PortfoliosHandler {
	return &PortfoliosHandler{svc: svc, log: log}
}

// Create handles POST /api/portfolios
func (h *PortfoliosHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string          `json:"name"`
		AllocationType  string          `json:"allocation_type"`
		AllocationValue decimal.Decimal `json:"allocation_value"`
		Period          string          `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p := &domain.Portfolio{
		UserID:          userID(r),
		Name:            req.Name,
		AllocationType:  domain.AllocationType(req.AllocationType),
		AllocationValue: req.AllocationValue,
	}

	created, err := h.svc.CreatePortfolio(r.Context(), p, req.Period)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		writeServiceError(w, err, "Failed to create portfolio")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// List handles GET /api/portfolios
func (h *PortfoliosHandler) List(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Portfolios(r.Context(), userID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list portfolios")
		writeServiceError(w, err, "Failed to list portfolios")
		return
	}
	if ps == nil {
		ps = []*domain.Portfolio{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": ps,
		"count":      len(ps),
	})
}

// Close handles DELETE /api/portfolios/{id}
func (h *PortfoliosHandler) Close(w http.ResponseWriter, r *http.Request, portfolioID string) {
	if err := h.svc.ClosePortfolio(r.Context(), userID(r), portfolioID); err != nil {
		writeServiceError(w, err, "Failed to close portfolio")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"portfolio_id": portfolioID,
		"status":       "closed",
	})
}
