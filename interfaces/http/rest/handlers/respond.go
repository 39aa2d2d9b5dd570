package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "trackd-backend/pkg/errors"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps domain error types onto HTTP status codes. Unclassified
// errors are logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case pkgerrors.IsValidation(err):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case pkgerrors.IsNotFound(err):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case pkgerrors.IsConflict(err):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case pkgerrors.IsCapacityExceeded(err):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
