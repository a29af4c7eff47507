package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/scheduler"
	"basegraph.app/nudge/internal/store"
)

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []model.Delivery
	err        error
}

func (d *recordingDeliverer) Deliver(_ context.Context, del model.Delivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, del)
	return d.err
}

func (d *recordingDeliverer) Delivered() []model.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Delivery(nil), d.deliveries...)
}

type plainText struct{}

func (plainText) Notification(_ context.Context, r model.Reminder) string {
	return "⏰ Lembrete: *" + r.Payload + "*"
}

var _ = Describe("Scheduler", func() {
	var (
		ctx        context.Context
		collection *store.FileCollection
		rs         store.ReminderStore
		deliverer  *recordingDeliverer
		registry   *prometheus.Registry
		metrics    *scheduler.Metrics
		sched      *scheduler.Scheduler
	)

	newScheduler := func() *scheduler.Scheduler {
		return scheduler.New(rs, deliverer, plainText{}, metrics, scheduler.Config{
			Grace:           50 * time.Millisecond,
			DeliveryTimeout: time.Second,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		collection, err = store.NewFileCollection(filepath.Join(GinkgoT().TempDir(), "reminders.json"))
		Expect(err).NotTo(HaveOccurred())
		rs = store.NewReminderStore(collection, nil)

		deliverer = &recordingDeliverer{}
		registry = prometheus.NewRegistry()
		metrics = scheduler.MustNewMetrics(registry)
		sched = newScheduler()
	})

	AfterEach(func() {
		Expect(sched.Stop(ctx)).To(Succeed())
	})

	Describe("ReconcileOnStart", func() {
		It("arms future reminders and reaps past ones without delivering", func() {
			now := time.Now()
			Expect(collection.Save(ctx, []model.Reminder{
				{ID: "future-1", Owner: "ana", DueAt: now.Add(time.Hour), Payload: "pagar boleto"},
				{ID: "future-2", Owner: "ana", DueAt: now.Add(2 * time.Hour), Payload: "ligar pro banco"},
				{ID: "past-1", Owner: "bia", DueAt: now.Add(-time.Hour), Payload: "reunião"},
			})).To(Succeed())

			stats, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Loaded).To(Equal(3))
			Expect(stats.Armed).To(Equal(2))
			Expect(stats.Reaped).To(Equal(1))

			Expect(sched.Armed()).To(Equal(2))
			Expect(sched.IsArmed("future-1")).To(BeTrue())
			Expect(sched.IsArmed("past-1")).To(BeFalse())

			remaining, err := rs.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))

			Consistently(deliverer.Delivered, 100*time.Millisecond).Should(BeEmpty())
			Expect(counterValue(registry, "nudge_reminders_reaped_total")).To(Equal(1.0))
		})

		It("opens the creation gate even when loading fails", func() {
			failing := scheduler.New(store.NewReminderStore(brokenCollection{}, nil), deliverer, plainText{}, nil, scheduler.Config{})

			_, err := failing.ReconcileOnStart(ctx)
			Expect(err).To(HaveOccurred())
			Eventually(failing.Ready()).Should(BeClosed())
			Expect(failing.Stop(ctx)).To(Succeed())
		})
	})

	Describe("Schedule", func() {
		It("waits for reconciliation before creating", func() {
			done := make(chan error, 1)
			go func() {
				_, err := sched.Schedule(ctx, "ana", time.Now().Add(time.Hour), "pagar boleto")
				done <- err
			}()

			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())

			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())
			Eventually(done).Should(Receive(BeNil()))
			Expect(sched.Armed()).To(Equal(1))
		})

		It("gives up when the context ends before reconciliation", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := sched.Schedule(cctx, "ana", time.Now().Add(time.Hour), "pagar boleto")
			Expect(err).To(MatchError(context.Canceled))
		})

		It("delivers once and removes the record when the timer fires", func() {
			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())

			r, err := sched.Schedule(ctx, "ana", time.Now().Add(30*time.Millisecond), "tomar remédio")
			Expect(err).NotTo(HaveOccurred())

			Eventually(deliverer.Delivered).Should(HaveLen(1))
			Consistently(deliverer.Delivered, 100*time.Millisecond).Should(HaveLen(1))

			d := deliverer.Delivered()[0]
			Expect(d.Owner).To(Equal("ana"))
			Expect(d.ReminderID).To(Equal(r.ID))
			Expect(d.Text).To(Equal("⏰ Lembrete: *tomar remédio*"))

			Eventually(func() error {
				_, err := rs.Get(ctx, r.ID)
				return err
			}).Should(MatchError(store.ErrNotFound))
			Expect(sched.IsArmed(r.ID)).To(BeFalse())
		})

		It("moves a due time that is not in the future to now plus grace", func() {
			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())

			before := time.Now()
			r, err := sched.Schedule(ctx, "ana", before.Add(-time.Hour), "beber água")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.DueAt).To(BeTemporally(">=", before.Add(50*time.Millisecond)))

			Eventually(deliverer.Delivered).Should(HaveLen(1))
		})

		It("deletes the record even when delivery fails", func() {
			deliverer.err = errors.New("transport down")
			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())

			r, err := sched.Schedule(ctx, "ana", time.Now().Add(20*time.Millisecond), "pagar aluguel")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() error {
				_, err := rs.Get(ctx, r.ID)
				return err
			}).Should(MatchError(store.ErrNotFound))
			Expect(deliverer.Delivered()).To(HaveLen(1))
			Expect(counterValue(registry, "nudge_delivery_failures_total")).To(Equal(1.0))
		})

		It("arms nothing when the store rejects the write", func() {
			failing := &saveFailingCollection{Collection: collection}
			s := scheduler.New(store.NewReminderStore(failing, nil), deliverer, plainText{}, nil, scheduler.Config{})
			DeferCleanup(func() { Expect(s.Stop(ctx)).To(Succeed()) })

			_, err := s.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())

			failing.fail = true
			_, err = s.Schedule(ctx, "ana", time.Now().Add(time.Hour), "pagar boleto")
			Expect(err).To(MatchError(ContainSubstring("creating reminder")))
			Expect(s.Armed()).To(Equal(0))

			remaining, err := collection.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})

		It("refuses new reminders after Stop", func() {
			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sched.Stop(ctx)).To(Succeed())

			_, err = sched.Schedule(ctx, "ana", time.Now().Add(time.Hour), "pagar boleto")
			Expect(err).To(MatchError(scheduler.ErrStopped))
		})
	})

	Describe("cancellation", func() {
		BeforeEach(func() {
			_, err := sched.ReconcileOnStart(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("prevents a cancelled reminder from firing", func() {
			r, err := sched.Schedule(ctx, "ana", time.Now().Add(80*time.Millisecond), "ligar pra mãe")
			Expect(err).NotTo(HaveOccurred())

			removed, err := sched.Cancel(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			Expect(sched.IsArmed(r.ID)).To(BeFalse())

			Consistently(deliverer.Delivered, 200*time.Millisecond).Should(BeEmpty())
		})

		It("reports unknown ids without failing", func() {
			removed, err := sched.Cancel(ctx, "nope")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})

		It("cancels by payload match", func() {
			_, err := sched.Schedule(ctx, "ana", time.Now().Add(time.Hour), "Ligar pra mãe")
			Expect(err).NotTo(HaveOccurred())
			keep, err := sched.Schedule(ctx, "ana", time.Now().Add(time.Hour), "pagar boleto")
			Expect(err).NotTo(HaveOccurred())

			cancelled, err := sched.CancelMatching(ctx, "ana", "ligar pra mae")
			Expect(err).NotTo(HaveOccurred())
			Expect(cancelled.Payload).To(Equal("Ligar pra mãe"))
			Expect(sched.Armed()).To(Equal(1))
			Expect(sched.IsArmed(keep.ID)).To(BeTrue())

			_, err = sched.CancelMatching(ctx, "ana", "ligar")
			Expect(err).To(MatchError(store.ErrNotFound))
		})

		It("clears only the owner's reminders", func() {
			for _, p := range []string{"um", "dois"} {
				_, err := sched.Schedule(ctx, "ana", time.Now().Add(time.Hour), p)
				Expect(err).NotTo(HaveOccurred())
			}
			other, err := sched.Schedule(ctx, "bia", time.Now().Add(time.Hour), "três")
			Expect(err).NotTo(HaveOccurred())

			removed, err := sched.ClearOwner(ctx, "ana")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(HaveLen(2))
			Expect(sched.Armed()).To(Equal(1))
			Expect(sched.IsArmed(other.ID)).To(BeTrue())
			Expect(counterValue(registry, "nudge_reminders_cancelled_total")).To(Equal(2.0))
		})
	})
})

type brokenCollection struct{}

func (brokenCollection) Load(context.Context) ([]model.Reminder, error) {
	return nil, errors.New("disk on fire")
}

func (brokenCollection) Save(context.Context, []model.Reminder) error {
	return errors.New("disk on fire")
}

// saveFailingCollection loads normally and fails every Save once fail is set.
type saveFailingCollection struct {
	store.Collection
	fail bool
}

func (c *saveFailingCollection) Save(ctx context.Context, reminders []model.Reminder) error {
	if c.fail {
		return errors.New("disk full")
	}
	return c.Collection.Save(ctx, reminders)
}

// counterValue reads a single-series counter straight from the registry.
func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	Expect(err).NotTo(HaveOccurred())
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) == 1 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
