package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/nudge/internal/http/dto"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/store"
)

// ReminderCanceller is the part of the scheduler the admin API drives.
type ReminderCanceller interface {
	Cancel(ctx context.Context, id string) (bool, error)
	Armed() int
	Stats() model.ReconcileStats
}

type AdminHandler struct {
	reminders store.ReminderStore
	scheduler ReminderCanceller
}

func NewAdminHandler(reminders store.ReminderStore, scheduler ReminderCanceller) *AdminHandler {
	return &AdminHandler{reminders: reminders, scheduler: scheduler}
}

func (h *AdminHandler) ListByOwner(c *gin.Context) {
	ctx := c.Request.Context()
	owner := c.Param("owner")

	owned, err := h.reminders.ListByOwner(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders", "error", err, "owner", owner)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reminders"})
		return
	}

	resp := dto.ListRemindersResponse{Reminders: make([]dto.ReminderResponse, 0, len(owned))}
	for _, r := range owned {
		resp.Reminders = append(resp.Reminders, dto.ToReminderResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel is idempotent: unknown ids also answer 204.
func (h *AdminHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	removed, err := h.scheduler.Cancel(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to cancel reminder", "error", err, "reminder_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel reminder"})
		return
	}

	if removed {
		slog.InfoContext(ctx, "reminder cancelled via admin API", "reminder_id", id)
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToSchedulerStatus(h.scheduler.Armed(), h.scheduler.Stats()))
}
