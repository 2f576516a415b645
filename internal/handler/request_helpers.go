package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crosspostme/crosspost-agent/internal/logger"
)

// DecodeAndValidateRequest decodes a JSON request body, validates it, and
// returns appropriate errors. If it returns an error, the HTTP response has
// already been written and the handler should return.
//
// Example usage:
//
//	var req ConnectRequest
//	if err := DecodeAndValidateRequest(r, w, &req, "Connect platform"); err != nil {
//	    return
//	}
func DecodeAndValidateRequest(r *http.Request, w http.ResponseWriter, req interface{}, actionName string) error {
	log := logger.FromContext(r.Context())

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Error(fmt.Sprintf("Failed to decode %s request", actionName), "error", err)
		http.Error(w, ErrMsgInvalidRequest, http.StatusBadRequest)
		return err
	}

	log.Debug(fmt.Sprintf("%s request decoded", actionName))

	if err := GetValidator().ValidateStruct(req); err != nil {
		validationErrs := FormatValidationError(err)
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  ErrMsgInvalidRequestSummary,
			Fields: validationErrs,
		})
		return err
	}

	return nil
}

// GetPlatformParam retrieves the platform URL parameter and checks its shape
// before the value reaches the catalog or the backend. If validation fails
// the error response is already written and ok is false.
func GetPlatformParam(r *http.Request, w http.ResponseWriter) (string, bool) {
	platformID := chi.URLParam(r, "platform")
	if err := GetValidator().ValidateVar(platformID, "required,platform_id"); err != nil {
		logger.FromContext(r.Context()).Warn("Rejected malformed platform identifier")
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  ErrMsgInvalidRequestSummary,
			Fields: map[string]string{"platform": "Invalid platform identifier"},
		})
		return "", false
	}
	return platformID, true
}

// GetOptionalQueryParam retrieves an optional query parameter, returning
// defaultValue when absent.
func GetOptionalQueryParam(r *http.Request, paramName string, defaultValue string) string {
	value := r.URL.Query().Get(paramName)
	if value == "" {
		return defaultValue
	}
	return value
}
