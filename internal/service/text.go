package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/nudge/common/llm"
	"basegraph.app/nudge/internal/model"
)

const (
	textSystemPrompt = "Você é um assistente de WhatsApp simpático e amigável. Sempre responda em português do Brasil, de forma natural, breve e acolhedora."

	confirmationPrompt = `Crie uma mensagem curta e acolhedora confirmando que o lembrete foi salvo.
O lembrete é: "%s" em %s.`

	notificationPrompt = `Agora é hora de lembrar o usuário sobre: "%s".
Crie uma mensagem curta, amigável e humanizada para enviar.`
)

type generatedText struct {
	Message string `json:"message" jsonschema:"required,description=Mensagem curta para o usuário"`
}

// TextGenerator writes the confirmation sent after scheduling and the
// notification sent when a reminder fires. With no LLM client, or when a call
// fails, it falls back to fixed templates.
type TextGenerator struct {
	client  llm.Client
	loc     *time.Location
	timeout time.Duration
	schema  any
}

func NewTextGenerator(client llm.Client, loc *time.Location) *TextGenerator {
	if loc == nil {
		loc = time.Local
	}
	return &TextGenerator{
		client:  client,
		loc:     loc,
		timeout: 8 * time.Second,
		schema:  llm.GenerateSchema[generatedText](),
	}
}

func (g *TextGenerator) Confirmation(ctx context.Context, r model.Reminder) string {
	due := r.DueAt.In(g.loc)
	fallback := fmt.Sprintf("✅ Lembrete criado! Vou te lembrar de *%s* em %s às %s.",
		r.Payload, due.Format("02/01/2006"), due.Format("15:04"))

	prompt := fmt.Sprintf(confirmationPrompt, r.Payload, due.Format("02/01/2006 15:04"))
	return g.generate(ctx, "reminder_confirmation", prompt, fallback)
}

func (g *TextGenerator) Notification(ctx context.Context, r model.Reminder) string {
	fallback := fmt.Sprintf("⏰ Lembrete: *%s*", r.Payload)
	return g.generate(ctx, "reminder_notification", fmt.Sprintf(notificationPrompt, r.Payload), fallback)
}

func (g *TextGenerator) generate(ctx context.Context, name, prompt, fallback string) string {
	if g.client == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var out generatedText
	_, err := g.client.Generate(ctx, llm.Request{
		SystemPrompt: textSystemPrompt,
		UserPrompt:   prompt,
		SchemaName:   name,
		Schema:       g.schema,
		Temperature:  llm.Temp(0.7),
	}, &out)
	if err != nil {
		slog.WarnContext(ctx, "text generation failed, using template",
			"error", err,
			"kind", name,
			"model", g.client.Model())
		return fallback
	}

	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		return fallback
	}
	return msg
}
