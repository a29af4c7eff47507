package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/nudge/core/config"
)

func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	It("applies defaults", func() {
		setEnv("NUDGE_ENV", "test")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Store.Backend).To(Equal(config.StoreBackendFile))
		Expect(cfg.Store.Path).To(Equal("data/reminders.json"))
		Expect(cfg.Scheduler.GraceInterval).To(Equal(time.Minute))
		Expect(cfg.Scheduler.Timezone).To(Equal("America/Sao_Paulo"))
		Expect(cfg.Delivery.Mode).To(Equal(config.DeliveryModeLog))
		Expect(cfg.TextLLM.Enabled()).To(BeFalse())
		Expect(cfg.NeedsRedis()).To(BeFalse())
	})

	It("reads durations and booleans", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("GRACE_INTERVAL", "90s")
		setEnv("INBOUND_ENABLED", "true")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Scheduler.GraceInterval).To(Equal(90 * time.Second))
		Expect(cfg.Inbound.Enabled).To(BeTrue())
		Expect(cfg.NeedsRedis()).To(BeTrue())
	})

	It("rejects an unknown store backend", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("STORE_BACKEND", "mongo")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("STORE_BACKEND")))
	})

	It("requires a webhook url in webhook mode", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("DELIVERY_MODE", "webhook")
		setEnv("DELIVERY_WEBHOOK_URL", "")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("DELIVERY_WEBHOOK_URL")))
	})

	It("requires a database url for the postgres store", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("STORE_BACKEND", "postgres")
		setEnv("DATABASE_URL", "")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("DATABASE_URL")))
	})

	It("rejects an unknown timezone", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("TIMEZONE", "Mars/Olympus")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("TIMEZONE")))
	})

	It("rejects a sample ratio outside 0..1", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("OTEL_TRACES_SAMPLE_RATIO", "1.5")

		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("OTEL_TRACES_SAMPLE_RATIO")))
	})

	It("tags telemetry with the environment", func() {
		setEnv("NUDGE_ENV", "test")
		setEnv("OTEL_TRACES_SAMPLE_RATIO", "0.25")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OTel.Environment).To(Equal("test"))
		Expect(cfg.OTel.SampleRatio).To(Equal(0.25))
	})
})
