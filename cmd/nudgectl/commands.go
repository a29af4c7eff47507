package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"basegraph.app/nudge/internal/intent"
	"basegraph.app/nudge/internal/model"
	"basegraph.app/nudge/internal/queue"
	"basegraph.app/nudge/internal/store"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

const defaultTimezone = "America/Sao_Paulo"

func parseCmd() *cobra.Command {
	var (
		nowFlag string
		tz      string
	)

	cmd := &cobra.Command{
		Use:   "parse <texto>",
		Short: "Show how a message would be understood",
		Long: `Runs a message through trigger detection, normalization, time
resolution and payload extraction without touching the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", tz, err)
			}

			now := time.Now().In(loc)
			if nowFlag != "" {
				now, err = time.ParseInLocation(time.RFC3339, nowFlag, loc)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
			}

			parser := intent.NewParser(intent.NewResolver(loc, func() time.Time { return now }))
			renderParse(cmd.OutOrStdout(), parser, args[0], loc)
			return nil
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "reference time in RFC3339 (defaults to the current time)")
	cmd.Flags().StringVar(&tz, "tz", defaultTimezone, "IANA timezone used to resolve times")
	return cmd
}

func renderParse(w io.Writer, parser *intent.Parser, text string, loc *time.Location) {
	if c := intent.ParseCommand(text); c.Kind != intent.CommandNone {
		fmt.Fprintf(w, "command:    %s\n", green(c.Kind.String()))
		if c.Query != "" {
			fmt.Fprintf(w, "query:      %s\n", c.Query)
		}
		return
	}

	if !intent.IsReminderRequest(text) {
		fmt.Fprintf(w, "trigger:    %s\n", yellow("no"))
		return
	}
	fmt.Fprintf(w, "trigger:    %s\n", green("yes"))

	in, err := parser.Parse(text)
	if err != nil {
		var perr *intent.ParseError
		if errors.As(err, &perr) {
			fmt.Fprintf(w, "error:      %s\n", red(perr.Kind.Error()))
			fmt.Fprintf(w, "reply:      %s\n", perr.Message)
			return
		}
		fmt.Fprintf(w, "error:      %s\n", red(err.Error()))
		return
	}

	fmt.Fprintf(w, "normalized: %s\n", faint(in.Normalized))
	fmt.Fprintf(w, "due:        %s\n", in.DueAt.In(loc).Format("02/01/2006 15:04 MST"))
	fmt.Fprintf(w, "strategy:   %s\n", in.Strategy)
	fmt.Fprintf(w, "payload:    %s\n", green(in.Payload))
}

func listCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			var reminders []model.Reminder
			if owner != "" {
				reminders, err = b.reminders.ListByOwner(ctx, owner)
			} else {
				reminders, err = b.reminders.List(ctx)
			}
			if err != nil {
				return fmt.Errorf("listing reminders: %w", err)
			}

			renderReminders(cmd.OutOrStdout(), reminders, b.cfg.Location(), time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only show reminders for this owner")
	return cmd
}

func renderReminders(w io.Writer, reminders []model.Reminder, loc *time.Location, now time.Time) {
	if len(reminders) == 0 {
		fmt.Fprintln(w, "no reminders")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Owner", "Due", "In", "Payload"})
	for _, r := range reminders {
		in := r.DueAt.Sub(now).Round(time.Minute).String()
		if !r.DueAt.After(now) {
			in = "overdue"
		}
		tw.AppendRow(table.Row{r.ID, r.Owner, r.DueAt.In(loc).Format("02/01/2006 15:04"), in, r.Payload})
	}
	tw.AppendFooter(table.Row{"", "", "", "Total", len(reminders)})
	tw.Render()
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Delete one reminder by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			removed, err := b.reminders.Delete(ctx, args[0])
			if err != nil {
				return fmt.Errorf("deleting reminder: %w", err)
			}
			if !removed {
				return fmt.Errorf("reminder %s: %w", args[0], store.ErrNotFound)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s cancelled reminder %s\n", green("✓"), args[0])
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every reminder of one owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			removed, err := b.reminders.DeleteByOwner(ctx, owner)
			if err != nil {
				return fmt.Errorf("clearing reminders: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d reminder(s) for %s\n", green("✓"), len(removed), owner)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner whose reminders are removed")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func sendCmd() *cobra.Command {
	var (
		owner  string
		stream string
	)

	cmd := &cobra.Command{
		Use:   "send <texto>",
		Short: "Publish a message on the inbound stream",
		Long:  `Publishes a message the way a chat gateway would, for the server's inbound worker to pick up.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			rdb := b.redis
			if rdb == nil {
				rdb, err = connectRedis(ctx, b.cfg.RedisURL)
				if err != nil {
					return err
				}
				defer rdb.Close()
			}
			if stream == "" {
				stream = b.cfg.Inbound.Stream
			}

			entryID, err := queue.NewRedisProducer(rdb, stream).Enqueue(ctx, queue.InboundMessage{
				Owner: owner,
				Text:  args[0],
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s queued %s on %s\n", green("✓"), entryID, stream)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "conversation the message belongs to")
	cmd.Flags().StringVar(&stream, "stream", "", "inbound stream (defaults to INBOUND_STREAM)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
