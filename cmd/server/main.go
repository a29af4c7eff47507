package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/nudge/common/id"
	"basegraph.app/nudge/common/llm"
	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/common/otel"
	"basegraph.app/nudge/core/config"
	"basegraph.app/nudge/core/db"
	"basegraph.app/nudge/internal/delivery"
	"basegraph.app/nudge/internal/http/middleware"
	httprouter "basegraph.app/nudge/internal/http/router"
	"basegraph.app/nudge/internal/intent"
	"basegraph.app/nudge/internal/queue"
	"basegraph.app/nudge/internal/scheduler"
	"basegraph.app/nudge/internal/service"
	"basegraph.app/nudge/internal/store"
	"basegraph.app/nudge/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger fans out to the OTel log provider)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "nudge starting",
		"env", cfg.Env,
		"store", cfg.Store.Backend,
		"delivery", cfg.Delivery.Mode,
		"timezone", cfg.Scheduler.Timezone)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		slog.InfoContext(ctx, "redis connected")
	}

	var database *db.DB
	if cfg.Store.Backend == config.StoreBackendPostgres {
		database, err = db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		slog.InfoContext(ctx, "database connected")
	}

	collection, err := store.OpenCollection(ctx, cfg.Store, redisCmdable(redisClient), database)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open reminder store", "error", err)
		os.Exit(1)
	}
	reminders := store.NewReminderStore(collection, nil)

	loc := cfg.Location()
	parser := intent.NewParser(intent.NewResolver(loc, nil))

	var textClient llm.Client
	if cfg.TextLLM.Enabled() {
		textClient, err = llm.New(llm.Config{
			Provider:  cfg.TextLLM.Provider,
			APIKey:    cfg.TextLLM.APIKey,
			BaseURL:   cfg.TextLLM.BaseURL,
			Model:     cfg.TextLLM.Model,
			MaxTokens: cfg.TextLLM.MaxTokens,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create text llm client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "text generation enabled", "provider", cfg.TextLLM.Provider, "model", textClient.Model())
	}
	texts := service.NewTextGenerator(textClient, loc)

	var hub *delivery.Hub
	if cfg.Delivery.Mode == config.DeliveryModeWebsocket {
		hub = delivery.NewHub()
	}
	deliverer, err := delivery.New(cfg.Delivery, redisCmdable(redisClient), hub)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create deliverer", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := scheduler.MustNewMetrics(registry)

	sched := scheduler.New(reminders, deliverer, texts, metrics, scheduler.Config{
		Grace:           cfg.Scheduler.GraceInterval,
		DeliveryTimeout: cfg.Delivery.Timeout,
	})

	// Reconcile before accepting traffic; Schedule blocks until this returns.
	if _, err := sched.ReconcileOnStart(ctx); err != nil {
		slog.ErrorContext(ctx, "startup reconciliation failed", "error", err)
		os.Exit(1)
	}

	reminderService := service.NewReminderService(reminders, sched, parser, texts, metrics, loc)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	var (
		inboundWorker *worker.Worker
		reclaimer     *worker.RedisReclaimer
		workerDone    chan struct{}
	)
	if cfg.Inbound.Enabled {
		consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
			Stream:    cfg.Inbound.Stream,
			Group:     cfg.Inbound.Group,
			Consumer:  cfg.Inbound.Consumer,
			DLQStream: cfg.Inbound.DLQStream,
			BatchSize: 10,
			Block:     5 * time.Second,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create inbound consumer", "error", err)
			os.Exit(1)
		}

		inboundWorker = worker.New(consumer, reminderService, deliverer, worker.Config{MaxAttempts: 3})
		reclaimer = worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
			Stream:        cfg.Inbound.Stream,
			Group:         cfg.Inbound.Group,
			Consumer:      cfg.Inbound.Consumer,
			MinIdle:       cfg.Inbound.ReclaimMinIdle,
			Interval:      cfg.Inbound.ReclaimInterval,
			BatchSize:     10,
			MaxDeliveries: 3,
		}, consumer, inboundWorker.ProcessMessage)

		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := inboundWorker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "inbound worker exited", "error", err)
			}
		}()
		go reclaimer.Run(runCtx)

		slog.InfoContext(ctx, "inbound worker started", "stream", cfg.Inbound.Stream, "group", cfg.Inbound.Group)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Deps{
		Reminders: reminders,
		Service:   reminderService,
		Scheduler: sched,
		Hub:       hub,
	}, registry)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	stopRun()
	if workerDone != nil {
		<-workerDone
	}

	if err := sched.Stop(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "scheduler shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, deps httprouter.Deps, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → request id joins log fields → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, deps, httprouter.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
		Gatherer:    registry,
	})

	return router
}

// redisCmdable avoids handing a typed nil *redis.Client to code that checks
// for a nil interface.
func redisCmdable(c *redis.Client) redis.Cmdable {
	if c == nil {
		return nil
	}
	return c
}

const banner = `
███╗   ██╗██╗   ██╗██████╗  ██████╗ ███████╗
████╗  ██║██║   ██║██╔══██╗██╔════╝ ██╔════╝
██╔██╗ ██║██║   ██║██║  ██║██║  ███╗█████╗
██║╚██╗██║██║   ██║██║  ██║██║   ██║██╔══╝
██║ ╚████║╚██████╔╝██████╔╝╚██████╔╝███████╗
╚═╝  ╚═══╝ ╚═════╝ ╚═════╝  ╚═════╝ ╚══════╝
`
