package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/neuronotes/internal/recurrence"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
	}
	cmd.AddCommand(
		newEventListCmd(a),
		newEventExpandCmd(a),
		newEventAddCmd(a),
		newEventRmCmd(a),
	)
	return cmd
}

func newEventListCmd(a *app) *cobra.Command {
	var workspace, date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events of a workspace, or the events anchored on --date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var events []types.CalendarEvent
			var err error
			if date != "" {
				if !types.ValidDate(date) {
					return usageErrorf("invalid date %q (want YYYY-MM-DD)", date)
				}
				events, err = a.store.GetCalendarEventsByDate(ctx, date)
			} else {
				var ws string
				if ws, err = a.workspace(ctx, workspace); err == nil {
					events, err = a.store.GetAllCalendarEvents(ctx, ws)
				}
			}
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), events)
			}
			t := newTable("ID", "DATE", "TIME", "TITLE", "REPEAT")
			for _, e := range events {
				t.add(e.ID, e.Date, e.Time, truncate(e.Title, 40), e.Repeat)
			}
			t.print(cmd.OutOrStdout(), "event", "No events found.")
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (default: active workspace)")
	cmd.Flags().StringVar(&date, "date", "", "only events anchored on this date")
	return cmd
}

// occurrence is one dated instance of an event.
type occurrence struct {
	Date    string `json:"date"`
	Time    string `json:"time,omitempty"`
	Title   string `json:"title"`
	EventID string `json:"eventId"`
}

func newEventExpandCmd(a *app) *cobra.Command {
	var workspace, from, to string
	cmd := &cobra.Command{
		Use:     "expand",
		Aliases: []string{"agenda"},
		Short:   "List every occurrence between --from and --to, repeats expanded",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !types.ValidDate(from) || !types.ValidDate(to) {
				return usageErrorf("--from and --to must be YYYY-MM-DD dates")
			}
			ws, err := a.workspace(ctx, workspace)
			if err != nil {
				return err
			}
			events, err := a.store.GetAllCalendarEvents(ctx, ws)
			if err != nil {
				return err
			}

			var all []occurrence
			for i := range events {
				e := &events[i]
				dates, err := recurrence.Occurrences(e, from, to)
				if err != nil {
					a.log.Warn().Err(err).Str("event", e.ID).Msg("skipping unexpandable event")
					continue
				}
				for _, d := range dates {
					all = append(all, occurrence{Date: d, Time: e.Time, Title: e.Title, EventID: e.ID})
				}
			}
			slices.SortStableFunc(all, func(x, y occurrence) int {
				if c := strings.Compare(x.Date, y.Date); c != 0 {
					return c
				}
				return strings.Compare(x.Time, y.Time)
			})

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), all)
			}
			t := newTable("DATE", "TIME", "TITLE", "EVENT")
			for _, o := range all {
				t.add(o.Date, o.Time, truncate(o.Title, 40), o.EventID)
			}
			t.print(cmd.OutOrStdout(), "occurrence", "Nothing scheduled.")
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (default: active workspace)")
	cmd.Flags().StringVar(&from, "from", "", "first date, inclusive (required)")
	cmd.Flags().StringVar(&to, "to", "", "last date, inclusive (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newEventAddCmd(a *app) *cobra.Command {
	var e types.CalendarEvent
	var workspace string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a calendar event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := a.workspace(ctx, workspace)
			if err != nil {
				return err
			}
			e.WorkspaceID = ws
			err = a.store.PutCalendarEvent(ctx, &e)
			switch {
			case errors.Is(err, types.ErrInvalidDate):
				return usageErrorf("invalid date: %v", err)
			case errors.Is(err, types.ErrInvalidRepeat):
				return usageErrorf("invalid repeat rule: %v", err)
			case err != nil:
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&e.Date, "date", "", "anchor date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&e.Title, "title", "", "event title (required)")
	cmd.Flags().StringVar(&e.Time, "time", "", "time of day, HH:MM")
	cmd.Flags().StringVar(&e.Repeat, "repeat", types.RepeatNone, "none, daily, weekly, monthly, yearly or custom")
	cmd.Flags().IntSliceVar(&e.RepeatOn, "repeat-on", nil, "ISO weekdays for custom repeats (1=Mon..7=Sun)")
	cmd.Flags().StringVar(&e.RepeatEnd, "until", "", "last date of the series, inclusive")
	cmd.Flags().StringVar(&e.Color, "color", "", "display color")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id (default: active workspace)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEventRmCmd(a *app) *cobra.Command {
	var on string
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an event, or with --on a single occurrence of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if on == "" {
				if err := a.store.DeleteCalendarEvent(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted event %s\n", args[0])
				return nil
			}

			if !types.ValidDate(on) {
				return usageErrorf("invalid date %q (want YYYY-MM-DD)", on)
			}
			e, err := a.store.GetCalendarEventByID(ctx, args[0])
			if errors.Is(err, types.ErrNotFound) {
				return usageErrorf("event %s not found", args[0])
			}
			if err != nil {
				return err
			}
			if !slices.Contains(e.Exceptions, on) {
				e.Exceptions = append(e.Exceptions, on)
				slices.Sort(e.Exceptions)
			}
			if err := a.store.PutCalendarEvent(ctx, e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s of event %s\n", on, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&on, "on", "", "delete only the occurrence on this date")
	return cmd
}
