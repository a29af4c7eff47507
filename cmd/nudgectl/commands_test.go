package main

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/nudge/internal/model"
)

var _ = Describe("parse command", func() {
	run := func(args ...string) string {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"parse", "--now", "2026-03-10T10:00:00-03:00"}, args...))
		Expect(root.Execute()).To(Succeed())
		return out.String()
	}

	It("prints the resolved reminder", func() {
		out := run("me lembre amanhã às 14h de enviar o relatório")
		Expect(out).To(ContainSubstring("trigger:    yes"))
		Expect(out).To(ContainSubstring("11/03/2026 14:00"))
		Expect(out).To(ContainSubstring("strategy:   clock"))
		Expect(out).To(ContainSubstring("payload:    enviar o relatório"))
	})

	It("prints the user-facing reply on a parse failure", func() {
		out := run("me lembre de relaxar")
		Expect(out).To(ContainSubstring("error:      no date or time found"))
		Expect(out).To(ContainSubstring("Não consegui entender a data/hora"))
	})

	It("reports messages without a trigger", func() {
		Expect(run("bom dia")).To(ContainSubstring("trigger:    no"))
	})

	It("recognizes management commands", func() {
		out := run("cancelar lembrete pagar a conta")
		Expect(out).To(ContainSubstring("command:    cancel"))
		Expect(out).To(ContainSubstring("query:      pagar a conta"))
	})

	It("rejects a malformed --now", func() {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"parse", "--now", "amanhã", "me lembre às 10h de algo"})
		Expect(root.Execute()).To(MatchError(ContainSubstring("invalid --now")))
	})
})

var _ = Describe("renderReminders", func() {
	It("renders a table with a total", func() {
		now := time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)
		var out bytes.Buffer
		renderReminders(&out, []model.Reminder{
			{ID: "1", Owner: "5511999990000", DueAt: now.Add(90 * time.Minute), Payload: "tomar remédio"},
			{ID: "2", Owner: "5511999990000", DueAt: now.Add(-time.Minute), Payload: "ligar pro banco"},
		}, time.UTC, now)

		Expect(out.String()).To(ContainSubstring("tomar remédio"))
		Expect(out.String()).To(ContainSubstring("1h30m0s"))
		Expect(out.String()).To(ContainSubstring("overdue"))
		Expect(out.String()).To(ContainSubstring("10/03/2026 11:30"))
	})

	It("says so when there is nothing stored", func() {
		var out bytes.Buffer
		renderReminders(&out, nil, time.UTC, time.Now())
		Expect(out.String()).To(Equal("no reminders\n"))
	})
})
