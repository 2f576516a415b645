package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crosspostme/crosspost-agent/internal/domain"
	"github.com/crosspostme/crosspost-agent/internal/logger"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse defines the response structure for validation errors
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent, nothing left but to log
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// mapServiceErrorToStatus maps domain errors to HTTP status codes and
// user-facing messages. Internal error details never reach the response body.
func mapServiceErrorToStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownPlatform):
		return http.StatusNotFound, ErrMsgUnknownPlatform
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, ErrMsgListPlatformsFailed
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return http.StatusConflict, ErrMsgAlreadyConnecting
	case errors.Is(err, domain.ErrNoActiveAttempt):
		return http.StatusNotFound, ErrMsgNoSuchAttempt
	case errors.Is(err, domain.ErrInvalidPhase):
		return http.StatusConflict, ErrMsgWrongPhase
	case errors.Is(err, domain.ErrMissingFields):
		return http.StatusBadRequest, ErrMsgMissingCredentials
	case errors.Is(err, domain.ErrRejectedByBackend):
		return http.StatusUnprocessableEntity, ErrMsgCredentialsRejected
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, ErrMsgBackendTimeout
	case errors.Is(err, domain.ErrInitiationFailed):
		return http.StatusBadGateway, ErrMsgConnectFailed
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, ErrMsgBackendUnavailable
	case errors.Is(err, domain.ErrDisconnectFailed):
		return http.StatusBadGateway, ErrMsgDisconnectFailedHTTP
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusNotFound, ErrMsgNotConnectedHTTP
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// respondServiceError logs the error and writes the mapped response. The
// handler should return immediately after calling it.
func respondServiceError(w http.ResponseWriter, r *http.Request, opName string, err error) {
	log := logger.FromContext(r.Context())

	status, userMsg := mapServiceErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error(opName+" failed", "error", err)
	} else {
		log.Warn(opName+" rejected", "error", err)
	}
	respondError(w, status, userMsg)
}
