// Package handlers exposes the ledger over HTTP. Authentication happens
// upstream; handlers trust the X-User-ID header set by the gateway.
package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/budget-ledger/internal/api/middleware"
	"github.com/dvloznov/budget-ledger/internal/ledger"
)

// userID extracts the caller identity from the request.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// writeServiceError maps ledger errors onto HTTP statuses. Not-found is 404,
// validation failures are 400, reconciliation rule violations are 409,
// everything else is a 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidArgument):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
