// Package response holds the helpers every handler uses to write JSON
// bodies and structured errors.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error body returned by every endpoint. Details is
// optional context, usually the underlying error string.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON body with the given status. A nil
// data writes the status alone, which is how 204 responses are sent.
// Encoding failures are logged; the status line has already gone out.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode JSON response: %v", err)
		}
	}
}

// RespondError writes an ErrorResponse with the given status. The message
// is the user-facing description; details may be an error string or nil.
func RespondError(w http.ResponseWriter, status int, message string, details interface{}) {
	RespondJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
