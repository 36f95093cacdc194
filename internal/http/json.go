package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veduta/accounts-api/internal/service"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteError writes the error envelope {status, error:{message}} used across
// the API.
func WriteError(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, map[string]any{
		"status": "error",
		"error":  map[string]string{"message": message},
	})
}

// devMode exposes fault detail in error responses. Off in production.
var devMode bool

// SetDevMode toggles fault detail in 500 responses. Called once at router
// construction.
func SetDevMode(enabled bool) {
	devMode = enabled
}

// WriteServiceError renders a service failure: policy rejections keep their
// status and message, anything else becomes a 500 that is opaque in
// production and carries the fault detail in dev mode.
func WriteServiceError(w http.ResponseWriter, err error) {
	var rejection *service.Rejection
	if errors.As(err, &rejection) {
		WriteError(w, rejection.Status, rejection.Message)
		return
	}
	if devMode && err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "error",
			"error": map[string]string{
				"message": "Internal Server Error",
				"detail":  err.Error(),
			},
		})
		return
	}
	WriteError(w, http.StatusInternalServerError, "Internal Server Error")
}
