package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/playerbank/internal/adapter/http/dto"
	"github.com/iho/playerbank/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownLane):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSamePlayer):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCompensationFailed):
		// The one state an operator must look at; 500 is deliberate.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
