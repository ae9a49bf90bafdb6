package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jacentio/storefront/commerce"
)

const successMessage = "Successful"

// envelope is the body of every API response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Status  int    `json:"status"`
	Error   bool   `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Message: successMessage, Data: data, Status: status})
}

// statusOf maps an error kind to its HTTP status.
func statusOf(kind commerce.Kind) int {
	switch kind {
	case commerce.KindNotFound:
		return http.StatusNotFound
	case commerce.KindBadRequest:
		return http.StatusBadRequest
	case commerce.KindUnauthorized:
		return http.StatusUnauthorized
	case commerce.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope. Only the public message is sent;
// the cause is logged. data, when not nil, is included, as for a store
// deletion whose blob cleanup failed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := statusOf(commerce.KindOf(err))

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	)

	writeJSON(w, status, envelope{Message: commerce.Message(err), Data: data, Status: status, Error: true})
}
