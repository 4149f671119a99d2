package logging

import (
	"encoding/json"
	"net/http"
)

// HTTPErrorResponse is the standard JSON error body
type HTTPErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSONError writes a JSON error response and logs it with context.
// The message must never contain raw upstream-controlled strings.
func WriteJSONError(w http.ResponseWriter, logger *Logger, message string, statusCode int, context map[string]interface{}) {
	fields := make(map[string]interface{}, len(context)+2)
	for k, v := range context {
		fields[k] = v
	}
	fields["status_code"] = statusCode
	fields["message"] = message

	if logger != nil {
		logger.Error("HTTP error response", fields)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(HTTPErrorResponse{Error: message}); err != nil && logger != nil {
		logger.Warn("Failed to encode error response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// WriteJSONSuccess writes data as a JSON response
func WriteJSONSuccess(w http.ResponseWriter, logger *Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Warn("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
