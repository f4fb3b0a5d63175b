package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
	"github.com/jtomassoni/monaghans-sub000/internal/timeparse"
)

func newEventsCmd(opts *globalOptions) *cobra.Command {
	events := &cobra.Command{Use: "events", Short: "Event definitions"}

	var listFrom, listTo, listQuery string
	var listLimit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List event definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.list")
			if err != nil {
				return err
			}
			defer st.Close()
			f := store.Filter{Query: listQuery, Limit: listLimit}
			if listFrom != "" {
				if f.From, err = timeparse.ParseDate(listFrom, clock(), ro.Location); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --from: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
				}
			}
			if listTo != "" {
				if f.To, err = timeparse.ParseDate(listTo, clock(), ro.Location); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --to: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
				}
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			items, err := timed(ctx, "store.list", func() ([]store.Record, error) { return st.List(ctx, f) })
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}
			return successWithMeta(ctx, p, ro, toEvents(items), map[string]any{"count": len(items)}, nil)
		},
	}
	list.Flags().StringVar(&listFrom, "from", "", "Only series active on or after this date")
	list.Flags().StringVar(&listTo, "to", "", "Only series starting on or before this date")
	list.Flags().StringVar(&listQuery, "query", "", "Match title or notes")
	list.Flags().IntVar(&listLimit, "limit", 0, "Limit results")

	var showNext int
	show := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.show")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			item, err := timed(ctx, "store.get", func() (*store.Record, error) { return st.Get(ctx, args[0]) })
			if err != nil {
				return fail(p, err, "Check ID with `monaghans events list --fields id,title,start`")
			}
			meta := map[string]any{"count": 1}
			if showNext > 0 {
				now := clock()
				meta["next"] = toOccurrences(nextOccurrences(item.Series(), civil.Today(now, ro.Location), ro.HorizonDays, showNext), ro.Location, now)
			}
			return successWithMeta(ctx, p, ro, toEvent(*item), meta, nil)
		},
	}
	show.Flags().IntVar(&showNext, "next", 0, "Include the next N occurrences")

	var addTitle, addStart, addEnd, addNotes, addWeekly, addUntil string
	var addMonthly int
	var addExcept []string
	var addAllDay, addDryRun bool
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an event definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.add")
			if err != nil {
				return err
			}
			defer st.Close()
			if strings.TrimSpace(addTitle) == "" || strings.TrimSpace(addStart) == "" {
				err = errors.New("--title and --start are required")
				return failWithHint(p, contract.ErrInvalidUsage, err, "Provide required fields", 2)
			}
			if addWeekly != "" && flagValueChanged(cmd, "monthly") {
				err = errors.New("--weekly and --monthly are mutually exclusive")
				return failWithHint(p, contract.ErrInvalidUsage, err, "Choose one recurrence pattern", 2)
			}
			spec := eventSpec{
				Title:   addTitle,
				Notes:   addNotes,
				Start:   addStart,
				End:     addEnd,
				AllDay:  addAllDay,
				Weekly:  addWeekly,
				Until:   addUntil,
				Except:  addExcept,
			}
			if flagValueChanged(cmd, "monthly") {
				spec.Monthly = &addMonthly
			}
			in, err := spec.build(ro)
			if err != nil {
				return fail(p, err, "Use YYYY-MM-DDTHH:mm times and --weekly mon,wed or --monthly 1-31")
			}
			if addDryRun {
				rec := store.Record{Title: in.Title, Notes: in.Notes, Start: in.Start, End: in.End, AllDay: in.AllDay, Rule: in.Rule}
				now := clock()
				next := nextOccurrences(rec.Series(), civil.Today(now, ro.Location), ro.HorizonDays, 5)
				return p.Success(toEvent(rec), map[string]any{"dry_run": true, "next": toOccurrences(next, ro.Location, now)}, nil)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			item, err := timed(ctx, "store.add", func() (*store.Record, error) { return st.Add(ctx, in) })
			if err != nil {
				return fail(p, err, "")
			}
			return successWithMeta(ctx, p, ro, toEvent(*item), map[string]any{"count": 1}, nil)
		},
	}
	add.Flags().StringVar(&addTitle, "title", "", "Event title")
	add.Flags().StringVar(&addStart, "start", "", "Start as YYYY-MM-DDTHH:mm, or a date with --all-day")
	add.Flags().StringVar(&addEnd, "end", "", "End as YYYY-MM-DDTHH:mm, or the last date with --all-day")
	add.Flags().StringVar(&addNotes, "notes", "", "Notes")
	add.Flags().BoolVar(&addAllDay, "all-day", false, "All-day event")
	add.Flags().StringVar(&addWeekly, "weekly", "", "Repeat weekly on these days, e.g. mon,wed")
	add.Flags().IntVar(&addMonthly, "monthly", 0, "Repeat monthly on this day of month (clamped to the last day)")
	add.Flags().StringVar(&addUntil, "until", "", "Last date the series may occur (inclusive)")
	add.Flags().StringSliceVar(&addExcept, "except", nil, "Skip this date (repeatable)")
	add.Flags().BoolVarP(&addDryRun, "dry-run", "n", false, "Preview without writing")

	except := &cobra.Command{
		Use:   "except <event-id> <date>",
		Short: "Skip one date of a series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.except")
			if err != nil {
				return err
			}
			defer st.Close()
			d, err := timeparse.ParseDate(args[1], clock(), ro.Location)
			if err != nil {
				return fail(p, fieldError("date", err), "Use YYYY-MM-DD or a relative day")
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			item, err := timed(ctx, "store.add_exception", func() (*store.Record, error) { return st.AddException(ctx, args[0], d) })
			if err != nil {
				return fail(p, err, "")
			}
			return successWithMeta(ctx, p, ro, toEvent(*item), map[string]any{"count": 1, "skipped": d.String()}, nil)
		},
	}

	var deleteForce bool
	del := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event definition and all of its occurrences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, st, ro, err := buildContext(cmd, opts, "events.delete")
			if err != nil {
				return err
			}
			defer st.Close()
			if !deleteForce {
				err = errors.New("refusing to delete without --force")
				return failWithHint(p, contract.ErrInvalidUsage, err, "Re-run with --force", 2)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			if _, err := timed(ctx, "store.delete", func() (struct{}, error) { return struct{}{}, st.Delete(ctx, args[0]) }); err != nil {
				return fail(p, err, "")
			}
			return successWithMeta(ctx, p, ro, map[string]any{"id": args[0], "deleted": true}, map[string]any{"count": 1}, nil)
		},
	}
	del.Flags().BoolVarP(&deleteForce, "force", "f", false, "Confirm deletion")

	events.AddCommand(list, show, add, except, del, newEventsImportCmd(opts), newEventsExportCmd(opts))
	return events
}

// eventSpec is the loose, user-facing shape of a new event shared by the
// add command and the YAML seed import. Monthly is nil when unset.
type eventSpec struct {
	Title   string
	Notes   string
	Start   string
	End     string
	AllDay  bool
	Weekly  string
	Monthly *int
	Until   string
	Except  []string
}

func (s eventSpec) build(ro *globalOptions) (store.CreateInput, error) {
	loc := ro.Location
	now := clock()
	start, err := parseEventTime(s.Start, s.AllDay, now, ro)
	if err != nil {
		return store.CreateInput{}, fieldError("start", err)
	}
	in := store.CreateInput{Title: strings.TrimSpace(s.Title), Notes: s.Notes, Start: start, AllDay: s.AllDay}
	if strings.TrimSpace(s.End) != "" {
		end, err := parseEventTime(s.End, s.AllDay, now, ro)
		if err != nil {
			return store.CreateInput{}, fieldError("end", err)
		}
		in.End = &end
	}
	if _, err := occurrence.NewDefinition("", in.Title, in.Start, in.End, in.AllDay); err != nil {
		return store.CreateInput{}, err
	}

	var pattern recurrence.Pattern = recurrence.None{}
	switch {
	case strings.TrimSpace(s.Weekly) != "":
		days, err := recurrence.ParseWeekdays(s.Weekly)
		if err != nil {
			return store.CreateInput{}, err
		}
		if pattern, err = recurrence.NewWeekly(days...); err != nil {
			return store.CreateInput{}, err
		}
	case s.Monthly != nil:
		if pattern, err = recurrence.NewMonthly(*s.Monthly); err != nil {
			return store.CreateInput{}, err
		}
	}

	var bounds recurrence.Bounds
	if strings.TrimSpace(s.Until) != "" {
		until, err := timeparse.ParseDate(s.Until, now, loc)
		if err != nil {
			return store.CreateInput{}, &recurrence.InvalidRuleError{Field: "until", Reason: err.Error()}
		}
		bounds.Until = &until
	}
	for _, raw := range s.Except {
		d, err := timeparse.ParseDate(raw, now, loc)
		if err != nil {
			return store.CreateInput{}, &recurrence.InvalidRuleError{Field: "exceptions", Reason: err.Error()}
		}
		bounds.Exceptions = append(bounds.Exceptions, d)
	}
	rule, err := recurrence.NewRule(pattern, bounds, start.Date)
	if err != nil {
		return store.CreateInput{}, err
	}
	in.Rule = rule
	return in, nil
}

// parseEventTime reads a start or end. All-day values may be plain dates,
// which pin to 00:00.
func parseEventTime(v string, allDay bool, now time.Time, ro *globalOptions) (civil.DateTime, error) {
	if allDay {
		if d, err := timeparse.ParseDate(v, now, ro.Location); err == nil {
			return civil.DateTime{Date: d, Location: ro.Location}, nil
		}
	}
	return timeparse.ParseDateTime(v, now, ro.Location)
}

// fieldError tags loose parse failures with the field they came from.
func fieldError(field string, err error) error {
	var civilErr *civil.InvalidCivilTimeError
	if errors.As(err, &civilErr) {
		return err
	}
	return &civil.InvalidCivilTimeError{Field: field, Reason: err.Error()}
}

// nextOccurrences expands s from the given day across the horizon and keeps the first n.
func nextOccurrences(s occurrence.Series, from civil.Date, horizonDays, n int) []occurrence.Occurrence {
	if horizonDays <= 0 {
		horizonDays = 60
	}
	occs := occurrence.Expand(s.Definition, s.Rule, from, from.AddDays(horizonDays))
	if len(occs) > n {
		occs = occs[:n]
	}
	return occs
}

func listSeries(ctx context.Context, st store.Store, from, to civil.Date) ([]occurrence.Series, error) {
	records, err := timed(ctx, "store.list", func() ([]store.Record, error) {
		return st.List(ctx, store.Filter{From: from, To: to})
	})
	if err != nil {
		return nil, err
	}
	return store.Series(records), nil
}
