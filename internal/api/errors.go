package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/fund-engine/internal/errors"
	"github.com/fund-engine/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondEngineError maps a fund engine error onto an HTTP response.
func respondEngineError(w http.ResponseWriter, err error) {
	catErr := apperrors.Categorize(err)
	message := catErr.Message
	if apperrors.IsSystemError(err) {
		// Never leak internals to the client
		message = "An internal error occurred"
	}
	respondError(w, catErr.StatusCode, catErr.Code, message, catErr.Details)
}

// callerPrincipal resolves the caller identity from the X-Principal header.
func callerPrincipal(r *http.Request) (types.Principal, *apperrors.CategorizedError) {
	raw := r.Header.Get("X-Principal")
	if raw == "" {
		return types.ZeroPrincipal, apperrors.NewInvalidParameterError("X-Principal", "header is required")
	}
	p, err := types.ParsePrincipal(raw)
	if err != nil {
		return types.ZeroPrincipal, apperrors.NewInvalidPrincipalError(raw)
	}
	return p, nil
}
