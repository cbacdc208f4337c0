package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/2moomoo/llmgateway/internal/apperr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, err string, message string) {
	Respond(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// RespondAppError is the single funnel mapping a taxonomy error (internal/apperr)
// to its wire representation. Every non-2xx handler path should end here.
func RespondAppError(w http.ResponseWriter, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		RespondError(w, http.StatusInternalServerError, string(apperr.CodeInternal), "internal error")
		return
	}

	if ae.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfterSeconds))
	}

	RespondError(w, ae.Status(), string(ae.Code), ae.Message)
}
