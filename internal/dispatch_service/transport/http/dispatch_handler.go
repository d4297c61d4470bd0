package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/pairlink/dispatch/internal/dispatch_service/app"
	"github.com/pairlink/dispatch/internal/dispatch_service/domain"
)

// DispatchHandler exposes the dispatch router over HTTP for client-triggered
// events (sent message, thinking-of-you tap).
type DispatchHandler struct {
	router *app.Router
	logger *slog.Logger
}

func NewDispatchHandler(router *app.Router, logger *slog.Logger) *DispatchHandler {
	return &DispatchHandler{router: router, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// maxDispatchBodyBytes bounds the dispatch request body; the largest legal
// event is a message with 120-some runes of text plus UUIDs.
const maxDispatchBodyBytes = 64 << 10

// Dispatch handles POST /v1/dispatch. The body is the tagged event union:
// {"type":"message"|"thinking"|"reminder", ...kind fields}.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDispatchBodyBytes))
	if err != nil || len(body) == 0 {
		h.logger.WarnContext(ctx, "Empty, unreadable or oversized dispatch body", "error", err)
		writeError(w, http.StatusBadRequest, "request body required and must not exceed 64KiB")
		return
	}

	event, err := domain.DecodeEvent(body)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to decode dispatch event", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.router.Dispatch(ctx, event)
	if err != nil {
		h.respondDispatchError(ctx, w, event, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true, Skipped: outcome.Skipped})
}

// respondDispatchError maps router errors onto the response taxonomy:
// validation -> 400, missing references -> 404, everything else -> 500.
// The router always answers; it never lets an error escape the boundary.
func (h *DispatchHandler) respondDispatchError(ctx context.Context, w http.ResponseWriter, event domain.Event, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, domain.ErrUnknownEventKind), errors.As(err, &validationErrs):
		h.logger.WarnContext(ctx, "Dispatch rejected invalid event", "error", err, "kind", event.Kind())
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.logger.WarnContext(ctx, "Dispatch referenced missing resource", "error", err, "kind", event.Kind())
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.ErrorContext(ctx, "Dispatch failed", "error", err, "kind", event.Kind())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
