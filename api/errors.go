package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes that are not upstream error kinds
const (
	CodeInvalidRequest   = "invalid_request"
	CodeInternal         = "internal_error"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeNotFound         = "not_found"
)

func sendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, statusCode int, errorText, message, code string) {
	sendJSON(w, statusCode, ErrorResponse{
		Error:   errorText,
		Message: message,
		Code:    code,
	})
}

// MethodNotAllowed answers requests for a known path with an unsupported method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendError(w, http.StatusMethodNotAllowed, "Method not allowed",
		r.Method+" is not supported for "+r.URL.Path, CodeMethodNotAllowed)
}

// NotFound answers unknown paths on listeners that do not proxy
func NotFound(w http.ResponseWriter, r *http.Request) {
	sendError(w, http.StatusNotFound, "Not found", r.URL.Path+" does not exist", CodeNotFound)
}
