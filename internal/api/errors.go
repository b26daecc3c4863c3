package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/lucra-chat/internal/errors"
	"github.com/lucra-chat/internal/logging"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the failure envelope shared by every JSON endpoint
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondSuccess wraps value under key in a {success: true} envelope
func respondSuccess(w http.ResponseWriter, statusCode int, key string, value interface{}) {
	body := map[string]interface{}{"success": true}
	if key != "" {
		body[key] = value
	}
	respondJSON(w, statusCode, body)
}

// respondErrorMessage sends a failure envelope with an explicit status
func respondErrorMessage(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{Success: false, Error: message, Code: code})
}

// respondError maps err to a status code and failure envelope. Server-side
// errors are logged with their cause; clients only see a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	if catErr.StatusCode >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"code":   catErr.Code,
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	respondErrorMessage(w, catErr.StatusCode, catErr.Code, apperrors.PublicMessage(err))
}

// parseJSONBody parses a JSON request body, rejecting unknown fields.
func parseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.NewInvalidParameterError("body", "must be a valid JSON object")
	}
	return nil
}
