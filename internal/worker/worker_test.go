package worker_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/queue"
	"basegraph.app/nudge/internal/service"
	"basegraph.app/nudge/internal/worker"
)

var _ = Describe("Worker", func() {
	var (
		ctx      context.Context
		consumer *mockConsumer
		handler  *mockHandler
		replier  *mockReplier
		w        *worker.Worker
	)

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &mockConsumer{}
		handler = &mockHandler{handleFn: func(_ context.Context, _, text string) service.Action {
			return service.Action{Kind: service.ActionReply, Text: "ok: " + text}
		}}
		replier = &mockReplier{}
		w = worker.New(consumer, handler, replier, worker.Config{MaxAttempts: 3})
	})

	Describe("ProcessMessage", func() {
		It("replies to the owner and acks", func() {
			msg := queue.Message{ID: "1-0", Owner: "ana", Text: "me lembre em 5 minutos de beber água", Attempt: 1}

			Expect(w.ProcessMessage(ctx, msg)).To(Succeed())
			Expect(replier.replies).To(Equal([]model.Delivery{{Owner: "ana", Text: "ok: me lembre em 5 minutos de beber água"}}))
			Expect(consumer.Acked()).To(Equal([]string{"1-0"}))
		})

		It("carries the inbound trace id on the reply", func() {
			msg := queue.Message{
				ID:      "4-0",
				Owner:   "ana",
				Text:    "meus lembretes",
				TraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
			}

			Expect(w.ProcessMessage(ctx, msg)).To(Succeed())
			Expect(replier.replies).To(HaveLen(1))
			Expect(replier.replies[0].TraceID).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		})

		It("acks without replying when the service has nothing to say", func() {
			handler.handleFn = func(context.Context, string, string) service.Action {
				return service.Action{Kind: service.ActionNone}
			}

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "2-0", Owner: "ana", Text: "bom dia"})).To(Succeed())
			Expect(replier.replies).To(BeEmpty())
			Expect(consumer.Acked()).To(Equal([]string{"2-0"}))
		})

		It("skips blank text", func() {
			handler.handleFn = func(context.Context, string, string) service.Action {
				Fail("blank text should not reach the service")
				return service.Action{}
			}

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "3-0", Owner: "ana", Text: "   "})).To(Succeed())
			Expect(consumer.Acked()).To(Equal([]string{"3-0"}))
		})

		It("still acks when the reply cannot be delivered", func() {
			replier.err = errors.New("gateway down")

			Expect(w.ProcessMessage(ctx, queue.Message{ID: "4-0", Owner: "ana", Text: "meus lembretes"})).To(Succeed())
			Expect(consumer.Acked()).To(Equal([]string{"4-0"}))
		})

		It("turns a panic into an error without acking", func() {
			handler.handleFn = func(context.Context, string, string) service.Action {
				panic("boom")
			}

			err := w.ProcessMessage(ctx, queue.Message{ID: "5-0", Owner: "ana", Text: "oi"})
			Expect(err).To(MatchError(ContainSubstring("panic: boom")))
			Expect(consumer.Acked()).To(BeEmpty())
		})
	})

	Describe("Run", func() {
		It("requeues failures and sends exhausted messages to the DLQ", func() {
			handler.handleFn = func(context.Context, string, string) service.Action {
				panic("boom")
			}
			consumer.batches = [][]queue.Message{{
				{ID: "1-0", Owner: "ana", Text: "oi", Attempt: 1},
				{ID: "2-0", Owner: "ana", Text: "oi", Attempt: 3},
			}}

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- w.Run(runCtx) }()

			Eventually(func() []string {
				consumer.mu.Lock()
				defer consumer.mu.Unlock()
				return append(append([]string(nil), consumer.requeued...), consumer.dlq...)
			}).Should(Equal([]string{"1-0", "2-0"}))

			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
