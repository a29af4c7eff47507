package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/nudge/internal/delivery"
)

type DeliveryStreamHandler struct {
	hub *delivery.Hub
}

func NewDeliveryStreamHandler(hub *delivery.Hub) *DeliveryStreamHandler {
	return &DeliveryStreamHandler{hub: hub}
}

// Subscribe upgrades to a websocket that receives the owner's deliveries.
func (h *DeliveryStreamHandler) Subscribe(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing owner"})
		return
	}

	if err := h.hub.ServeWS(c.Writer, c.Request, owner); err != nil {
		// the upgrader has already written the HTTP error
		slog.WarnContext(c.Request.Context(), "websocket subscribe failed", "error", err, "owner", owner)
	}
}
