package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/nudge/common/llm"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/service"
)

var _ = Describe("TextGenerator", func() {
	var (
		ctx context.Context
		loc *time.Location
		r   model.Reminder
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		loc, err = time.LoadLocation("America/Sao_Paulo")
		Expect(err).NotTo(HaveOccurred())
		r = model.Reminder{
			ID:      "1",
			Owner:   "ana",
			DueAt:   time.Date(2026, time.March, 11, 17, 0, 0, 0, time.UTC),
			Payload: "pagar boleto",
		}
	})

	Context("without a model", func() {
		It("uses the templates in the configured timezone", func() {
			g := service.NewTextGenerator(nil, loc)
			Expect(g.Confirmation(ctx, r)).To(Equal("✅ Lembrete criado! Vou te lembrar de *pagar boleto* em 11/03/2026 às 14:00."))
			Expect(g.Notification(ctx, r)).To(Equal("⏰ Lembrete: *pagar boleto*"))
		})
	})

	Context("with a model", func() {
		It("returns the generated message", func() {
			client := &mockLLM{generateFn: func(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
				Expect(req.UserPrompt).To(ContainSubstring("pagar boleto"))
				Expect(req.Schema).NotTo(BeNil())
				return &llm.Response{}, json.Unmarshal([]byte(`{"message":"  Oi! Não esquece de pagar o boleto 💸 "}`), result)
			}}
			g := service.NewTextGenerator(client, loc)

			Expect(g.Notification(ctx, r)).To(Equal("Oi! Não esquece de pagar o boleto 💸"))
		})

		It("falls back to the template when the call fails", func() {
			client := &mockLLM{generateFn: func(context.Context, llm.Request, any) (*llm.Response, error) {
				return nil, errors.New("rate limited")
			}}
			g := service.NewTextGenerator(client, loc)

			Expect(g.Notification(ctx, r)).To(Equal("⏰ Lembrete: *pagar boleto*"))
			Expect(client.calls).To(Equal(1))
		})

		It("falls back to the template when the model returns nothing", func() {
			client := &mockLLM{generateFn: func(context.Context, llm.Request, any) (*llm.Response, error) {
				return &llm.Response{}, nil
			}}
			g := service.NewTextGenerator(client, loc)

			Expect(g.Confirmation(ctx, r)).To(HavePrefix("✅ Lembrete criado!"))
		})
	})
})
