// Package handler provides the HTTP and WebSocket handlers of the dog list
// API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// responder writes JSON envelopes and maps domain errors to status codes.
type responder struct {
	logger *zap.Logger
}

// writeJSON writes a JSON response with the given status code.
func (h responder) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h responder) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}

// handleError maps a service error to an HTTP response.
func (h responder) handleError(w http.ResponseWriter, err error, operation string) {
	var validationErr *model.ValidationError

	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, dogs.ErrDuplicateName):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dogs.ErrFetch):
		h.logger.Warn("photo fetch failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "photo service unavailable")
	case errors.Is(err, dogs.ErrNotFound), errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "dog not found")
	case errors.Is(err, dogs.ErrFlowNotFound):
		h.writeError(w, http.StatusNotFound, "photo flow not found")
	case errors.Is(err, dogs.ErrNotRetryable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, "invalid dog ID")
	default:
		h.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseID parses a dog ID path variable.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, store.ErrInvalidID
	}
	return id, nil
}
