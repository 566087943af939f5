package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/ledger"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc *ledger.Service
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

type transactionRequest struct {
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	TimeOfDay     string          `json:"time_of_day"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes"`
	Tag           string          `json:"tag"`
	PaymentMethod string          `json:"payment_method"`
	PortfolioID   string          `json:"portfolio_id"`
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
	}

	tx := &domain.Transaction{
		UserID:        userID(r),
		Type:          domain.TransactionType(req.Type),
		Category:      domain.AllocationCategory(req.Category),
		Amount:        req.Amount,
		Date:          date,
		TimeOfDay:     req.TimeOfDay,
		Description:   req.Description,
		Notes:         req.Notes,
		Tag:           req.Tag,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PortfolioID:   req.PortfolioID,
	}

	created, err := h.svc.RecordTransaction(r.Context(), tx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to record transaction")
		writeServiceError(w, err, "Failed to record transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := store.TransactionFilter{
		Type:     domain.TransactionType(query.Get("type")),
		Category: domain.AllocationCategory(query.Get("category")),
		Status:   domain.TransactionStatus(query.Get("status")),
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"start_date", &filter.From},
		{"end_date", &filter.To},
	} {
		if raw := query.Get(p.name); raw != "" {
			ts, err := time.Parse("2006-01-02", raw)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid "+p.name+" format, expected YYYY-MM-DD")
				return
			}
			*p.dst = ts
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	txs, err := h.svc.Transactions(r.Context(), userID(r), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		writeServiceError(w, err, "Failed to list transactions")
		return
	}

	if txs == nil {
		txs = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request, transactionID string) {
	tx, err := h.svc.Transaction(r.Context(), userID(r), transactionID)
	if err != nil {
		writeServiceError(w, err, "Failed to load transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, transactionID string) {
	var req struct {
		Category      *string `json:"category"`
		TimeOfDay     *string `json:"time_of_day"`
		Description   *string `json:"description"`
		Notes         *string `json:"notes"`
		Tag           *string `json:"tag"`
		PaymentMethod *string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.UpdateDetails(r.Context(), userID(r), transactionID, func(t *domain.Transaction) {
		if req.Category != nil {
			t.Category = domain.AllocationCategory(*req.Category)
		}
		if req.TimeOfDay != nil {
			t.TimeOfDay = *req.TimeOfDay
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Notes != nil {
			t.Notes = *req.Notes
		}
		if req.Tag != nil {
			t.Tag = *req.Tag
		}
		if req.PaymentMethod != nil {
			t.PaymentMethod = domain.PaymentMethod(*req.PaymentMethod)
		}
	})
	if err != nil {
		writeServiceError(w, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, transactionID string) {
	if err := h.svc.SoftDelete(r.Context(), userID(r), transactionID); err != nil {
		writeServiceError(w, err, "Failed to delete transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": transactionID,
		"status":         "deleted",
	})
}

// Refund handles POST /api/transactions/{id}/refund
func (h *TransactionsHandler) Refund(w http.ResponseWriter, r *http.Request, transactionID string) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Reason string          `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	refund, err := h.svc.IssueRefund(r.Context(), userID(r), transactionID, req.Amount, req.Reason)
	if err != nil {
		writeServiceError(w, err, "Failed to issue refund")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, refund)
}

// Reduce handles POST /api/transactions/{id}/reduce
func (h *TransactionsHandler) Reduce(w http.ResponseWriter, r *http.Request, transactionID string) {
	var req struct {
		Reduction decimal.Decimal `json:"reduction"`
		Notes     string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.ReduceAmount(r.Context(), userID(r), transactionID, req.Reduction, req.Notes)
	if err != nil {
		writeServiceError(w, err, "Failed to reduce transaction amount")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// History handles GET /api/transactions/{id}/history
func (h *TransactionsHandler) History(w http.ResponseWriter, r *http.Request, transactionID string) {
	recs, err := h.svc.History(r.Context(), userID(r), transactionID)
	if err != nil {
		writeServiceError(w, err, "Failed to load transaction history")
		return
	}
	if recs == nil {
		recs = []*domain.HistoryRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": recs,
		"count":   len(recs),
	})
}
