package app

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/output"
	"github.com/jtomassoni/monaghans-sub000/internal/timeparse"
)

func newOccurrencesCmd(opts *globalOptions) *cobra.Command {
	var fromS, toS, sortField, order string
	var wheres []string
	var limit int
	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "Expand every event into occurrences for a date window",
		Long: "Expand every event into occurrences dated within [--from, --to], both inclusive. " +
			"A --to earlier than --from is a usage error (exit 2) rather than an empty list.",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "occurrences")
			if err != nil {
				return err
			}
			defer st.Close()
			now := clock()
			from, err := timeparse.ParseDate(fromS, now, ro.Location)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --from: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
			}
			to, err := timeparse.ParseDate(toS, now, ro.Location)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --to: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
			}
			if to.Before(from) {
				return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("--to must not be earlier than --from"), "", 2)
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			series, err := listSeries(ctx, st, from, to)
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}
			preds, err := parsePredicates(wheres)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use clauses like title~\"trivia\" or date>=2026-03-01", 2)
			}
			items, err := applyPredicates(toOccurrences(occurrence.ExpandAll(series, from, to), ro.Location, now), preds)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Check --where field/operator/value", 2)
			}
			sortOccurrences(items, sortField, order)
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			meta := map[string]any{"count": len(items), "from": from.String(), "to": to.String(), "zone": ro.TZ}
			return successWithMeta(ctx, p, ro, items, meta, nil)
		},
	}
	cmd.Flags().StringVar(&fromS, "from", "today", "First date of the window")
	cmd.Flags().StringVar(&toS, "to", "+7d", "Last date of the window (inclusive, not before --from)")
	cmd.Flags().StringSliceVar(&wheres, "where", nil, "Predicate clause (repeatable)")
	cmd.Flags().StringVar(&sortField, "sort", "start", "Sort field: start|title|event_id")
	cmd.Flags().StringVar(&order, "order", "asc", "Sort order: asc|desc")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit results")
	return cmd
}

func newCalendarCmd(opts *globalOptions) *cobra.Command {
	var of string
	var month, summary bool
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Occurrences for the week or month around a date",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "calendar")
			if err != nil {
				return err
			}
			defer st.Close()
			now := clock()
			anchor, err := parseMonthOrDate(of, now, ro.Location)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Use --of as YYYY-MM, YYYY-MM-DD, or relative day syntax", 2)
			}
			view := "week"
			var start, end civil.Date
			meta := map[string]any{}
			if month {
				view = "month"
				start, end = monthBounds(anchor)
				meta["month"] = fmt.Sprintf("%04d-%02d", start.Year, int(start.Month))
			} else {
				ws, err := parseWeekStart(ro.WeekStart)
				if err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, err, "Use --week-start monday|sunday", 2)
				}
				start, end = weekBounds(anchor, ws)
				meta["week_start"] = ws.String()
			}
			ctx, cancel := commandContext(ro)
			defer cancel()
			series, err := listSeries(ctx, st, start, end)
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}
			occs := occurrence.ExpandAll(series, start, end)
			meta["view"], meta["from"], meta["to"] = view, start.String(), end.String()
			if summary {
				rows := summarizeByDay(occs, start, end)
				meta["count"], meta["summary"] = len(rows), true
				return successWithMeta(ctx, p, ro, rows, meta, nil)
			}
			meta["count"] = len(occs)
			return successWithMeta(ctx, p, ro, toOccurrences(occs, ro.Location, now), meta, nil)
		},
	}
	cmd.Flags().StringVar(&of, "of", "today", "Date selector within the target week or month, or YYYY-MM")
	cmd.Flags().BoolVar(&month, "month", false, "Show the whole month instead of the week")
	cmd.Flags().BoolVar(&summary, "summary", false, "Group by day with counts")
	return cmd
}

func newTodayCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Occurrences today and upcoming in the business timezone",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "today")
			if err != nil {
				return err
			}
			defer st.Close()
			now := clock()
			today := civil.Today(now, ro.Location)
			ctx, cancel := commandContext(ro)
			defer cancel()
			series, err := listSeries(ctx, st, today, today.AddDays(ro.HorizonDays))
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}
			cls := occurrence.Classify(occurrence.ExpandAll(series, today, today.AddDays(ro.HorizonDays)), now, ro.Location)
			res := toClassification(cls, ro.Location, now)
			if p.EffectiveSuccessMode() == output.ModePlain && len(p.Fields) == 0 {
				return printClassificationPlain(c.OutOrStdout(), res)
			}
			meta := map[string]any{"today": len(res.Today), "upcoming": len(res.Upcoming), "horizon_days": ro.HorizonDays}
			return successWithMeta(ctx, p, ro, res, meta, nil)
		},
	}
}

func newTonightCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tonight",
		Short: "Today's occurrences that have not ended yet",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "tonight")
			if err != nil {
				return err
			}
			defer st.Close()
			now := clock()
			today := civil.Today(now, ro.Location)
			ctx, cancel := commandContext(ro)
			defer cancel()
			series, err := listSeries(ctx, st, today, today)
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}
			cls := occurrence.Classify(occurrence.ExpandAll(series, today, today), now, ro.Location)
			items := toOccurrences(occurrence.Tonight(cls.Today, now), ro.Location, now)
			return successWithMeta(ctx, p, ro, items, map[string]any{"count": len(items), "date": today.String(), "zone": ro.TZ}, nil)
		},
	}
}

func parseMonthOrDate(v string, now time.Time, loc *time.Location) (civil.Date, error) {
	s := v
	if s == "" {
		s = "today"
	}
	if len(s) == len("2006-01") {
		if d, err := civil.ParseDate(s + "-01"); err == nil {
			return d, nil
		}
	}
	return timeparse.ParseDate(s, now, loc)
}

func printClassificationPlain(out io.Writer, c contract.Classification) error {
	_, _ = fmt.Fprintf(out, "Today %s (%s)\n", c.Date, c.Zone)
	if len(c.Today) == 0 {
		_, _ = fmt.Fprintln(out, "  nothing scheduled")
	}
	for _, o := range c.Today {
		_, _ = fmt.Fprintf(out, "  %-11s  %s  %s\n", o.Local, o.Title, o.Relative)
	}
	_, _ = fmt.Fprintln(out, "Upcoming")
	if len(c.Upcoming) == 0 {
		_, _ = fmt.Fprintln(out, "  nothing scheduled")
	}
	for _, o := range c.Upcoming {
		_, _ = fmt.Fprintf(out, "  %s  %-11s  %s  %s\n", o.Date, o.Local, o.Title, o.Relative)
	}
	return nil
}
