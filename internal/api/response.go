package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kmoroz/splithaus/internal/auth"
	"github.com/kmoroz/splithaus/internal/calculator"
	"github.com/kmoroz/splithaus/internal/service"
	"github.com/kmoroz/splithaus/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// writeError maps domain errors onto HTTP statuses. Validation failures
// and permission problems carry their message to the client; anything
// unexpected is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var verr *calculator.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.Is(err, auth.ErrWeakPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrExpenseLocked),
		errors.Is(err, storage.ErrAlreadyPaid),
		errors.Is(err, storage.ErrNotPaid):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return calculator.NewValidationError("invalid request body: %v", err)
	}
	return nil
}
