package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/http/dto"
	"basegraph.app/nudge/internal/service"
)

type MessageHandler struct {
	reminders service.ReminderService
}

func NewMessageHandler(reminders service.ReminderService) *MessageHandler {
	return &MessageHandler{reminders: reminders}
}

// Handle runs one chat message through the reminder service and returns the
// reply, if any, for the caller to send.
func (h *MessageHandler) Handle(c *gin.Context) {
	var req dto.IncomingMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: owner and text are required"})
		return
	}
	if strings.TrimSpace(req.Owner) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: owner and text are required"})
		return
	}

	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Owner: logger.Ptr(req.Owner)})
	c.Request = c.Request.WithContext(ctx)

	action := h.reminders.HandleIncomingText(ctx, req.Owner, req.Text)

	c.JSON(http.StatusOK, dto.IncomingMessageResponse{
		Action: string(action.Kind),
		Text:   action.Text,
	})
}
