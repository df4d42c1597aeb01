// Package response writes the JSON envelope shared by every v1 endpoint.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/ledger/pkg/apperr"
)

// KindForbidden is returned when the acting role may not call an endpoint.
const KindForbidden = "forbidden"

// Envelope wraps every response body.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the machine-readable part of a failed response.
type ErrorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, r, status, Envelope{Success: true, Data: data})
}

// Error maps err to a status and writes it. Storage and internal details never leave the service.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := &ErrorBody{
		Kind:    string(apperr.KindOf(err)),
		Message: apperr.PublicMessage(err),
	}
	if ae, ok := apperr.As(err); ok && ae.Kind == apperr.Validation {
		body.Fields = ae.Fields
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	write(w, r, status, Envelope{Error: body})
}

// Fail writes an error that does not come from the service layer.
func Fail(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	write(w, r, status, Envelope{Error: &ErrorBody{Kind: kind, Message: message}})
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response", "error", err)
	}
}
