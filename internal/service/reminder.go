package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/nudge/common/logger"
	"basegraph.app/nudge/internal/intent"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/store"
)

const (
	msgNoReminders        = "🙌 Você não tem lembretes ativos."
	msgNothingToClear     = "🙌 Você não tem lembretes para apagar."
	msgCancelNotFound     = "⚠️ Não encontrei nenhum lembrete correspondente ao que você quer cancelar."
	msgCancelUsage        = "✏️ Diga qual lembrete cancelar. Ex: 'cancelar lembrete pagar a conta'."
	msgScheduleFailed     = "⚠️ Não consegui salvar seu lembrete agora. Tente novamente em instantes."
	msgCommandFailed      = "⚠️ Ocorreu um erro ao processar sua mensagem. Tente novamente mais tarde."
	listHeader            = "📅 Seus lembretes:\n\n"
	listDateLayout        = "02/01/2006 15:04"
	parseOutcomeScheduled = "scheduled"
)

type ActionKind string

const (
	ActionNone  ActionKind = "none"
	ActionReply ActionKind = "reply"
)

// Action tells the transport what to send back. ActionNone means the message
// was not for this subsystem.
type Action struct {
	Kind ActionKind
	Text string
}

func reply(text string) Action {
	return Action{Kind: ActionReply, Text: text}
}

type Scheduler interface {
	Schedule(ctx context.Context, owner string, dueAt time.Time, payload string) (model.Reminder, error)
	CancelMatching(ctx context.Context, owner, query string) (model.Reminder, error)
	ClearOwner(ctx context.Context, owner string) ([]model.Reminder, error)
}

// ParseObserver counts parse outcomes. *scheduler.Metrics satisfies it.
type ParseObserver interface {
	ObserveParse(outcome string)
}

type Confirmer interface {
	Confirmation(ctx context.Context, r model.Reminder) string
}

type ReminderService interface {
	HandleIncomingText(ctx context.Context, owner, text string) Action
}

type reminderService struct {
	reminders store.ReminderStore
	scheduler Scheduler
	parser    *intent.Parser
	texts     Confirmer
	observer  ParseObserver
	loc       *time.Location
}

func NewReminderService(
	reminders store.ReminderStore,
	scheduler Scheduler,
	parser *intent.Parser,
	texts Confirmer,
	observer ParseObserver,
	loc *time.Location,
) ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &reminderService{
		reminders: reminders,
		scheduler: scheduler,
		parser:    parser,
		texts:     texts,
		observer:  observer,
		loc:       loc,
	}
}

// HandleIncomingText checks for list, cancel and clear commands, then for a
// reminder trigger. Anything else is left alone.
func (s *reminderService) HandleIncomingText(ctx context.Context, owner, text string) Action {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Owner:     logger.Ptr(owner),
		Component: "nudge.service",
	})

	switch cmd := intent.ParseCommand(text); cmd.Kind {
	case intent.CommandClear:
		return s.clear(ctx, owner)
	case intent.CommandList:
		return s.list(ctx, owner)
	case intent.CommandCancel:
		return s.cancel(ctx, owner, cmd.Query)
	}

	if !intent.IsReminderRequest(text) {
		return Action{Kind: ActionNone}
	}

	return s.schedule(ctx, owner, text)
}

func (s *reminderService) schedule(ctx context.Context, owner, text string) Action {
	in, err := s.parser.Parse(text)
	if err != nil {
		var perr *intent.ParseError
		if errors.As(err, &perr) {
			s.observe(parseOutcome(perr.Kind))
			slog.InfoContext(ctx, "reminder request not understood",
				"reason", perr.Kind.Error(),
				"text", logger.Truncate(text, 120))
			return reply(perr.Message)
		}
		slog.ErrorContext(ctx, "unexpected parse failure", "error", err)
		return reply(msgCommandFailed)
	}

	r, err := s.scheduler.Schedule(ctx, owner, in.DueAt, in.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to schedule reminder", "error", err)
		return reply(msgScheduleFailed)
	}
	s.observe(parseOutcomeScheduled)

	slog.InfoContext(ctx, "reminder request handled",
		"reminder_id", r.ID,
		"strategy", in.Strategy,
		"due_at", r.DueAt)

	return reply(s.texts.Confirmation(ctx, r))
}

func (s *reminderService) list(ctx context.Context, owner string) Action {
	owned, err := s.reminders.ListByOwner(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders", "error", err)
		return reply(msgCommandFailed)
	}
	if len(owned) == 0 {
		return reply(msgNoReminders)
	}
	return reply(FormatList(owned, s.loc))
}

func (s *reminderService) cancel(ctx context.Context, owner, query string) Action {
	if strings.TrimSpace(query) == "" {
		return reply(msgCancelUsage)
	}

	owned, err := s.reminders.ListByOwner(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders", "error", err)
		return reply(msgCommandFailed)
	}
	if len(owned) == 0 {
		return reply(msgNoReminders)
	}

	r, err := s.scheduler.CancelMatching(ctx, owner, query)
	if errors.Is(err, store.ErrNotFound) {
		return reply(msgCancelNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to cancel reminder", "error", err)
		return reply(msgCommandFailed)
	}

	slog.InfoContext(ctx, "reminder cancelled by owner", "reminder_id", r.ID)
	return reply(fmt.Sprintf("❌ Lembrete cancelado: *%s*", r.Payload))
}

func (s *reminderService) clear(ctx context.Context, owner string) Action {
	removed, err := s.scheduler.ClearOwner(ctx, owner)
	if err != nil {
		slog.ErrorContext(ctx, "failed to clear reminders", "error", err)
		return reply(msgCommandFailed)
	}
	if len(removed) == 0 {
		return reply(msgNothingToClear)
	}

	slog.InfoContext(ctx, "reminders cleared by owner", "count", len(removed))
	return reply(fmt.Sprintf("🗑️ Todos os seus %d agendamentos foram apagados.", len(removed)))
}

func (s *reminderService) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveParse(outcome)
	}
}

func parseOutcome(kind error) string {
	switch {
	case errors.Is(kind, intent.ErrInvalidDate):
		return "invalid_date"
	case errors.Is(kind, intent.ErrEmptyPayload):
		return "empty_payload"
	default:
		return "no_time"
	}
}

// FormatList renders reminders in store order as a numbered list.
func FormatList(reminders []model.Reminder, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(listHeader)
	for i, r := range reminders {
		fmt.Fprintf(&b, "%d. *%s* → %s\n", i+1, r.Payload, r.DueAt.In(loc).Format(listDateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}
