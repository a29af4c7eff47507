package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/http/middleware"
	"basegraph.app/nudge/internal/http/router"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/scheduler"
	"basegraph.app/nudge/internal/service"
	"basegraph.app/nudge/internal/store"
)

var _ = Describe("HTTP API", func() {
	const adminKey = "test-admin-key"

	var (
		engine    *gin.Engine
		svc       *mockReminderService
		canceller *mockCanceller
		reminders store.ReminderStore
		registry  *prometheus.Registry
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		engine.Use(middleware.Recovery())
		engine.Use(middleware.RequestID())

		svc = &mockReminderService{}
		canceller = &mockCanceller{}
		reminders = store.NewReminderStore(&memoryCollection{}, nil)
		registry = prometheus.NewRegistry()

		router.SetupRoutes(engine, router.Deps{
			Reminders: reminders,
			Service:   svc,
			Scheduler: canceller,
		}, router.RouterConfig{AdminAPIKey: adminKey, Gatherer: registry})
	})

	do := func(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	admin := map[string]string{"X-Admin-API-Key": adminKey}

	Describe("POST /api/v1/messages", func() {
		It("returns the service reply", func() {
			svc.handleFn = func(_ context.Context, owner, text string) service.Action {
				Expect(owner).To(Equal("ana"))
				Expect(text).To(Equal("meus lembretes"))
				return service.Action{Kind: service.ActionReply, Text: "🙌 Você não tem lembretes ativos."}
			}

			w := do(http.MethodPost, "/api/v1/messages", map[string]string{"owner": "ana", "text": "meus lembretes"}, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(Equal(map[string]any{"action": "reply", "text": "🙌 Você não tem lembretes ativos."}))
			Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
		})

		It("reports messages that need no reply", func() {
			w := do(http.MethodPost, "/api/v1/messages", map[string]string{"owner": "ana", "text": "bom dia"}, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"action":"none","text":""}`))
		})

		It("rejects requests without an owner", func() {
			w := do(http.MethodPost, "/api/v1/messages", map[string]string{"text": "oi"}, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("turns a panic into a 500 that names the request", func() {
			var logs bytes.Buffer
			previous := slog.Default()
			slog.SetDefault(slog.New(logger.NewTraceHandler(slog.NewJSONHandler(&logs, nil))))
			DeferCleanup(func() { slog.SetDefault(previous) })

			svc.handleFn = func(context.Context, string, string) service.Action { panic("boom") }

			w := do(http.MethodPost, "/api/v1/messages", map[string]string{"owner": "ana", "text": "oi"},
				map[string]string{middleware.RequestIDHeader: "req-500"})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error","request_id":"req-500"}`))

			var line map[string]any
			Expect(json.Unmarshal(logs.Bytes(), &line)).To(Succeed())
			Expect(line).To(HaveKeyWithValue("msg", "panic recovered in request handler"))
			Expect(line).To(HaveKeyWithValue("request_id", "req-500"))
			Expect(line).To(HaveKeyWithValue("owner", "ana"))
			Expect(line).To(HaveKeyWithValue("route", "/api/v1/messages"))
		})

		It("keeps a caller supplied request id", func() {
			w := do(http.MethodPost, "/api/v1/messages", map[string]string{"owner": "ana", "text": "oi"},
				map[string]string{middleware.RequestIDHeader: "req-123"})
			Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("req-123"))
		})
	})

	Describe("admin API", func() {
		It("requires the admin key", func() {
			w := do(http.MethodGet, "/api/v1/scheduler", nil, nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))

			w = do(http.MethodGet, "/api/v1/scheduler", nil, map[string]string{"X-Admin-API-Key": "wrong"})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("accepts a bearer token", func() {
			w := do(http.MethodGet, "/api/v1/scheduler", nil, map[string]string{"Authorization": "Bearer " + adminKey})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("lists an owner's reminders", func() {
			due := time.Date(2026, time.March, 11, 14, 0, 0, 0, time.UTC)
			_, err := reminders.Create(context.Background(), "ana", due, "pagar boleto")
			Expect(err).NotTo(HaveOccurred())
			_, err = reminders.Create(context.Background(), "bia", due, "reunião")
			Expect(err).NotTo(HaveOccurred())

			w := do(http.MethodGet, "/api/v1/owners/ana/reminders", nil, admin)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Reminders []map[string]any `json:"reminders"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Reminders).To(HaveLen(1))
			Expect(resp.Reminders[0]["payload"]).To(Equal("pagar boleto"))
			Expect(resp.Reminders[0]["due_at"]).To(Equal("2026-03-11T14:00:00Z"))
		})

		It("returns an empty list for unknown owners", func() {
			w := do(http.MethodGet, "/api/v1/owners/nobody/reminders", nil, admin)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"reminders":[]}`))
		})

		It("cancels idempotently", func() {
			var got string
			canceller.cancelFn = func(_ context.Context, id string) (bool, error) {
				got = id
				return false, nil
			}

			w := do(http.MethodDelete, "/api/v1/reminders/123", nil, admin)
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(got).To(Equal("123"))
		})

		It("reports cancel failures", func() {
			canceller.cancelFn = func(context.Context, string) (bool, error) {
				return false, errors.New("disk full")
			}

			w := do(http.MethodDelete, "/api/v1/reminders/123", nil, admin)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})

		It("shows scheduler status", func() {
			canceller.armed = 4
			canceller.stats = model.ReconcileStats{Loaded: 6, Armed: 5, Reaped: 1, At: time.Date(2026, time.March, 10, 13, 0, 0, 0, time.UTC)}

			w := do(http.MethodGet, "/api/v1/scheduler", nil, admin)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{
				"armed": 4,
				"loaded": 6,
				"armed_at_start": 5,
				"reaped": 1,
				"reconciled_at": "2026-03-10T13:00:00Z"
			}`))
		})
	})

	It("disables the admin API without a key", func() {
		bare := gin.New()
		router.SetupRoutes(bare, router.Deps{Reminders: reminders, Service: svc, Scheduler: canceller}, router.RouterConfig{Gatherer: registry})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler", nil)
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("exposes health and metrics", func() {
		metrics := scheduler.MustNewMetrics(registry)
		metrics.ObserveParse("scheduled")

		w := do(http.MethodGet, "/health", nil, nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodGet, "/metrics", nil, nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`nudge_parse_outcomes_total{outcome="scheduled"} 1`))
	})
})
