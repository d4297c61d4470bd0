package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	scannerdomain "github.com/pairlink/dispatch/internal/scanner_service/domain"
)

// SchedulerHandler manages scheduled messages and reminders: the user-facing
// create/inspect/cancel surface over the rows the scanner consumes.
type SchedulerHandler struct {
	scheduled scannerdomain.ScheduledMessageRepository
	reminders scannerdomain.ReminderRepository
	logger    *slog.Logger
	validate  *validator.Validate
}

func NewSchedulerHandler(
	scheduled scannerdomain.ScheduledMessageRepository,
	reminders scannerdomain.ReminderRepository,
	logger *slog.Logger,
	validate *validator.Validate,
) *SchedulerHandler {
	return &SchedulerHandler{
		scheduled: scheduled,
		reminders: reminders,
		logger:    logger,
		validate:  validate,
	}
}

// CreateScheduledMessage handles POST /v1/scheduled-messages.
func (h *SchedulerHandler) CreateScheduledMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO CreateScheduledMessageRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode CreateScheduledMessage body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for CreateScheduledMessage", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation error: %s", err))
		return
	}
	if reqDTO.ScheduledAt.Before(time.Now().Add(10 * time.Second)) {
		writeError(w, http.StatusBadRequest, "scheduledAt must be at least 10 seconds in the future")
		return
	}

	msg := &scannerdomain.ScheduledMessage{
		ID:          uuid.New(),
		PairID:      reqDTO.PairID,
		SenderID:    reqDTO.SenderID,
		Text:        reqDTO.Text,
		MediaType:   reqDTO.MediaType,
		ScheduledAt: reqDTO.ScheduledAt.UTC(),
		Status:      scannerdomain.ScheduledStatusPending,
	}
	if err := h.scheduled.Create(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "Failed to create scheduled message", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toScheduledMessageDTO(msg))
}

// GetScheduledMessage handles GET /v1/scheduled-messages/{id}.
func (h *SchedulerHandler) GetScheduledMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	msg, err := h.scheduled.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scannerdomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "scheduled message not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load scheduled message", "error", err, "scheduled_message_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toScheduledMessageDTO(msg))
}

// DeleteScheduledMessage handles DELETE /v1/scheduled-messages/{id}.
// Deletion is allowed only while the message is still pending.
func (h *SchedulerHandler) DeleteScheduledMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.scheduled.DeleteIfPending(ctx, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	case errors.Is(err, scannerdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, "scheduled message not found")
	case errors.Is(err, scannerdomain.ErrNotPending):
		writeError(w, http.StatusConflict, "scheduled message already dispatched")
	default:
		h.logger.ErrorContext(ctx, "Failed to delete scheduled message", "error", err, "scheduled_message_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// CreateReminder handles POST /v1/reminders.
func (h *SchedulerHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO CreateReminderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode CreateReminder body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		h.logger.WarnContext(ctx, "Validation failed for CreateReminder", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation error: %s", err))
		return
	}
	if !reqDTO.NotifySelf && !reqDTO.NotifyPartner {
		writeError(w, http.StatusBadRequest, "at least one of notifySelf/notifyPartner must be set")
		return
	}

	reminder := &scannerdomain.Reminder{
		ID:            uuid.New(),
		PairID:        reqDTO.PairID,
		CreatorID:     reqDTO.CreatorID,
		Title:         reqDTO.Title,
		ScheduleKind:  scannerdomain.ScheduleKind(reqDTO.ScheduleKind),
		NextTriggerAt: reqDTO.NextTriggerAt.UTC(),
		Active:        true,
		NotifySelf:    reqDTO.NotifySelf,
		NotifyPartner: reqDTO.NotifyPartner,
	}
	if err := h.reminders.Create(ctx, reminder); err != nil {
		h.logger.ErrorContext(ctx, "Failed to create reminder", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toReminderDTO(reminder))
}

// GetReminder handles GET /v1/reminders/{id}.
func (h *SchedulerHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	reminder, err := h.reminders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scannerdomain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load reminder", "error", err, "reminder_id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toReminderDTO(reminder))
}

func toScheduledMessageDTO(msg *scannerdomain.ScheduledMessage) ScheduledMessageDTO {
	return ScheduledMessageDTO{
		ID:          msg.ID,
		PairID:      msg.PairID,
		SenderID:    msg.SenderID,
		Text:        msg.Text,
		MediaType:   msg.MediaType,
		ScheduledAt: msg.ScheduledAt,
		Status:      string(msg.Status),
		SentAt:      msg.SentAt,
		CreatedAt:   msg.CreatedAt,
	}
}

func toReminderDTO(reminder *scannerdomain.Reminder) ReminderDTO {
	return ReminderDTO{
		ID:            reminder.ID,
		PairID:        reminder.PairID,
		CreatorID:     reminder.CreatorID,
		Title:         reminder.Title,
		ScheduleKind:  string(reminder.ScheduleKind),
		NextTriggerAt: reminder.NextTriggerAt,
		Active:        reminder.Active,
		NotifySelf:    reminder.NotifySelf,
		NotifyPartner: reminder.NotifyPartner,
		CreatedAt:     reminder.CreatedAt,
	}
}
