package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/ics"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/output"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
	"github.com/jtomassoni/monaghans-sub000/internal/timeparse"
)

func newEventsExportCmd(opts *globalOptions) *cobra.Command {
	var fromS, toS, outPath string
	var expand bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events to ICS",
		Long: "Export event definitions as an iCalendar feed. By default each series is one VEVENT " +
			"with RRULE and EXDATE; --expand writes one VEVENT per occurrence in the window instead.",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "events.export")
			if err != nil {
				return err
			}
			defer st.Close()
			now := clock()
			var from, to civil.Date
			if fromS != "" {
				if from, err = timeparse.ParseDate(fromS, now, ro.Location); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --from: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
				}
			}
			if toS != "" {
				if to, err = timeparse.ParseDate(toS, now, ro.Location); err != nil {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("invalid --to: %w", err), "Use today, +Nd, or YYYY-MM-DD", 2)
				}
			}
			if expand {
				if from.IsZero() {
					from = civil.Today(now, ro.Location)
				}
				if to.IsZero() {
					to = from.AddDays(ro.HorizonDays)
				}
			}
			if !from.IsZero() && !to.IsZero() && to.Before(from) {
				return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("--to must not be earlier than --from"), "", 2)
			}

			ctx, cancel := commandContext(ro)
			defer cancel()
			records, err := timed(ctx, "store.list", func() ([]store.Record, error) {
				return st.List(ctx, store.Filter{From: from, To: to})
			})
			if err != nil {
				return failWithHint(p, contract.ErrStoreUnavailable, err, "Run `monaghans doctor`", 6)
			}

			var feed string
			count := len(records)
			if expand {
				occs := occurrence.ExpandAll(store.Series(records), from, to)
				count = len(occs)
				feed = ics.Occurrences(occs, ro.TZ, now).Serialize()
			} else {
				feed = ics.Series(records, ro.TZ, now).Serialize()
			}
			meta := map[string]any{"count": count, "expanded": expand}
			if strings.TrimSpace(outPath) != "" {
				if err := os.WriteFile(outPath, []byte(feed), 0o644); err != nil {
					return failWithHint(p, contract.ErrGeneric, err, "Check destination path permissions", 1)
				}
				return successWithMeta(ctx, p, ro, map[string]any{"path": outPath, "events": count}, meta, nil)
			}
			if m := p.EffectiveSuccessMode(); m == output.ModeJSON || m == output.ModeJSONL {
				return successWithMeta(ctx, p, ro, map[string]any{"ics": feed, "events": count}, meta, nil)
			}
			_, _ = fmt.Fprint(c.OutOrStdout(), feed)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromS, "from", "", "Only series active on or after this date")
	cmd.Flags().StringVar(&toS, "to", "", "Only series starting on or before this date")
	cmd.Flags().BoolVar(&expand, "expand", false, "Write individual occurrences instead of RRULE series")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")
	return cmd
}
