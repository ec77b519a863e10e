package server

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"` // User-friendly suggestion
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a structured error response
func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, ErrorResponse{
		Error:      message,
		Code:       code,
		Suggestion: getErrorSuggestion(code),
	})
}

// getErrorSuggestion returns a user-friendly suggestion based on error code
func getErrorSuggestion(code string) string {
	suggestions := map[string]string{
		"connection_failed":   "Check that the service is running and the URL is correct. Verify network connectivity.",
		"validation_failed":   "Review the submitted fields and ensure all required information is provided.",
		"service_not_found":   "The service may have been removed. Refresh the service list.",
		"unsupported_kind":    "The requested service kind is not recognized. Valid kinds: sonarr, radarr, qbittorrent.",
		"parse_error":         "The submitted data could not be parsed. Check the request body and try again.",
		"save_failed":         "The configuration could not be saved. Check the application logs for details.",
		"delete_failed":       "The service could not be removed. Check the application logs for details.",
		"aggregation_failed":  "The health overview could not be computed. Check the application logs for details.",
		"rate_limit_exceeded": "Too many requests. Slow down and try again.",
	}

	if suggestion, ok := suggestions[code]; ok {
		return suggestion
	}

	return "If the problem persists, check the application logs for more details."
}
