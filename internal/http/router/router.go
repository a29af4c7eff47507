package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"basegraph.app/nudge/internal/delivery"
	"basegraph.app/nudge/internal/http/handler"
	"basegraph.app/nudge/internal/http/middleware"
	"basegraph.app/nudge/internal/service"
	"basegraph.app/nudge/internal/store"
)

type RouterConfig struct {
	AdminAPIKey string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Deps struct {
	Reminders store.ReminderStore
	Service   service.ReminderService
	Scheduler handler.ReminderCanceller
	// Hub is nil unless websocket delivery is enabled.
	Hub *delivery.Hub
}

func SetupRoutes(router *gin.Engine, deps Deps, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.Hub != nil {
		router.GET("/ws/deliveries", handler.NewDeliveryStreamHandler(deps.Hub).Subscribe)
	}

	v1 := router.Group("/api/v1")
	{
		MessageRouter(v1.Group("/messages"), handler.NewMessageHandler(deps.Service))

		admin := v1.Group("")
		admin.Use(middleware.RequireAdminAPIKey(cfg.AdminAPIKey))
		AdminRouter(admin, handler.NewAdminHandler(deps.Reminders, deps.Scheduler))
	}
}

func MessageRouter(rg *gin.RouterGroup, h *handler.MessageHandler) {
	rg.POST("", h.Handle)
}

func AdminRouter(rg *gin.RouterGroup, h *handler.AdminHandler) {
	rg.GET("/owners/:owner/reminders", h.ListByOwner)
	rg.DELETE("/reminders/:id", h.Cancel)
	rg.GET("/scheduler", h.SchedulerStatus)
}
