// Package api exposes the tutoring service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abhinavg/jeetutor/internal/app"
	"github.com/abhinavg/jeetutor/internal/store"
)

// Handler serves the tutoring API.
type Handler struct {
	app    *app.App
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(a *app.App, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{app: a, logger: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// serveError maps service errors onto HTTP statuses.
func (h *Handler) serveError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error("request failed", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
