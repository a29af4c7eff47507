package intent_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/nudge/internal/intent"
)

var _ = Describe("ExtractPayload", func() {
	DescribeTable("isolates the reminder subject",
		func(text, expected string) {
			payload, err := intent.ExtractPayload(text)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal(expected))
		},
		Entry("relative minutes", "Me lembre daqui a 10 minutos de ligar pra mãe", "ligar pra mãe"),
		Entry("tomorrow with time", "Me avise amanhã às 14h de entregar o relatório", "entregar o relatório"),
		Entry("calendar date after subject", "me lembre de pagar a conta dia 5 de setembro às 9h", "pagar a conta"),
		Entry("numeric date and connective", "Não me deixe esquecer que 05/09/2025 às 11h tenho dentista", "tenho dentista"),
		Entry("punctuation between parts", "Me lembre, amanhã, de comprar pão!", "comprar pão!"),
		Entry("digit hour and minutes", "me lembre às 9 e 22 de tomar remédio", "tomar remédio"),
		Entry("noon idiom", "me lembre ao meio-dia de almoçar", "almoçar"),
		Entry("spelled time with period", "me avise às três da tarde de buscar as crianças", "buscar as crianças"),
		Entry("keeps original casing", "Me lembre em 5 minutos de ligar para o João", "ligar para o João"),
		Entry("weekday and clock", "me lembre na sexta às 10h de ligar pro banco", "ligar pro banco"),
		Entry("weekday que vem", "me lembre segunda que vem às 9h de levar o carro", "levar o carro"),
		Entry("ordinal stays in the subject", "me lembre às 11h de pagar a segunda parcela", "pagar a segunda parcela"),
		Entry("article before a spelled count", "me lembre amanhã de comprar as duas passagens", "comprar as duas passagens"),
		Entry("article before a digit count", "me lembre amanhã de lavar as 3 camisas", "lavar as 3 camisas"),
		Entry("relative hours and a half", "me lembre daqui a 2 horas e meia de sair", "sair"),
		Entry("compact relative hours", "me lembre em 2h30 de sair", "sair"),
		Entry("relative weeks", "me lembre em 2 semanas de renovar o seguro", "renovar o seguro"),
	)

	DescribeTable("rejects an empty subject",
		func(text string) {
			_, err := intent.ExtractPayload(text)
			Expect(errors.Is(err, intent.ErrEmptyPayload)).To(BeTrue())

			var perr *intent.ParseError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Message).To(Equal(intent.MsgEmptyPayload))
		},
		Entry("trigger only", "me lembre"),
		Entry("trigger and time only", "me lembre amanhã às 10h"),
		Entry("trigger and relative time", "me avise em 10 minutos."),
	)
})

var _ = Describe("ParseCommand", func() {
	DescribeTable("recognizes management commands",
		func(text string, kind intent.CommandKind, query string) {
			cmd := intent.ParseCommand(text)
			Expect(cmd.Kind).To(Equal(kind))
			Expect(cmd.Query).To(Equal(query))
		},
		Entry("list", "meus lembretes", intent.CommandList, ""),
		Entry("list in a question", "Quais são os meus lembretes?", intent.CommandList, ""),
		Entry("list verb", "listar lembretes", intent.CommandList, ""),
		Entry("clear all", "apagar todos os lembretes", intent.CommandClear, ""),
		Entry("clear all before list", "Cancelar todos os meus lembretes", intent.CommandClear, ""),
		Entry("clear verb", "limpar lembretes", intent.CommandClear, ""),
		Entry("cancel with query", "cancelar lembrete de pagar a conta", intent.CommandCancel, "pagar a conta"),
		Entry("cancel keeps casing", "Cancelar lembrete: Ligar pra Mãe", intent.CommandCancel, "Ligar pra Mãe"),
		Entry("cancel without query", "cancelar lembrete", intent.CommandCancel, ""),
		Entry("not a command", "bom dia", intent.CommandNone, ""),
	)
})

var _ = Describe("Parser", func() {
	var (
		now    time.Time
		parser *intent.Parser
	)

	BeforeEach(func() {
		loc, err := time.LoadLocation("America/Sao_Paulo")
		Expect(err).NotTo(HaveOccurred())
		now = time.Date(2026, time.March, 10, 10, 0, 0, 0, loc)
		parser = intent.NewParser(intent.NewResolver(loc, func() time.Time { return now }))
	})

	It("parses time and payload together", func() {
		in, err := parser.Parse("me lembre em 10 minutos de ligar pra mãe")
		Expect(err).NotTo(HaveOccurred())
		Expect(in.DueAt).To(BeTemporally("==", now.Add(10*time.Minute)))
		Expect(in.Payload).To(Equal("ligar pra mãe"))
		Expect(in.Strategy).To(Equal("relative_minutes"))
	})

	It("parses tomorrow at an hour", func() {
		in, err := parser.Parse("me lembre amanhã às 14h de enviar o relatório")
		Expect(err).NotTo(HaveOccurred())
		Expect(in.DueAt).To(BeTemporally("==", time.Date(2026, time.March, 11, 14, 0, 0, 0, now.Location())))
		Expect(in.Payload).To(Equal("enviar o relatório"))
	})

	It("reports a missing time before a missing payload", func() {
		_, err := parser.Parse("me lembre de relaxar")
		Expect(errors.Is(err, intent.ErrNoTime)).To(BeTrue())
	})

	It("reports an empty payload when only a time is given", func() {
		_, err := parser.Parse("me lembre amanhã às 10h")
		Expect(errors.Is(err, intent.ErrEmptyPayload)).To(BeTrue())
	})
})
