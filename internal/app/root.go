package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/log"
	"github.com/jtomassoni/monaghans-sub000/internal/output"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

const defaultZone = "America/Denver"

var (
	storeFactory = openStore
	clock        = time.Now
)

type globalOptions struct {
	JSON          bool
	JSONL         bool
	Plain         bool
	Fields        string
	Quiet         bool
	Verbose       bool
	Profile       string
	Config        string
	DB            string
	TZ            string
	WeekStart     string
	HorizonDays   int
	Timeout       time.Duration
	SchemaVersion string

	Location *time.Location
}

func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		renderTopLevelError(cmd, err)
	}
	return ExitCode(err)
}

func NewRootCommand() *cobra.Command {
	opts := &globalOptions{
		Profile:       "default",
		TZ:            defaultZone,
		WeekStart:     "monday",
		HorizonDays:   60,
		Timeout:       15 * time.Second,
		SchemaVersion: contract.SchemaVersion,
	}

	root := &cobra.Command{
		Use:           "monaghans",
		Short:         "Manage recurring bar events and see what is on tonight",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       BuildVersionString(),
	}
	root.SetVersionTemplate("monaghans {{.Version}}\n")

	root.PersistentFlags().BoolVar(&opts.JSON, "json", false, "Output structured JSON")
	root.PersistentFlags().BoolVar(&opts.JSONL, "jsonl", false, "Output newline-delimited JSON")
	root.PersistentFlags().BoolVar(&opts.Plain, "plain", false, "Output stable plain text")
	root.PersistentFlags().StringVar(&opts.Fields, "fields", "", "Projected fields, comma-separated")
	root.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Reduce success output")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Verbose diagnostics")
	root.PersistentFlags().StringVar(&opts.Profile, "profile", "default", "Config profile")
	root.PersistentFlags().StringVar(&opts.Config, "config", "", "Config file path")
	root.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database path")
	root.PersistentFlags().StringVar(&opts.TZ, "tz", defaultZone, "IANA business timezone")
	root.PersistentFlags().StringVar(&opts.WeekStart, "week-start", "monday", "Week start day: monday|sunday")
	root.PersistentFlags().IntVar(&opts.HorizonDays, "horizon-days", 60, "Days ahead to list upcoming occurrences")
	root.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Store call timeout (e.g. 10s, 1m, 0 to disable)")
	root.PersistentFlags().StringVar(&opts.SchemaVersion, "schema-version", contract.SchemaVersion, "Output schema version")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newEventsCmd(opts))
	root.AddCommand(newOccurrencesCmd(opts))
	root.AddCommand(newCalendarCmd(opts))
	root.AddCommand(newTodayCmd(opts))
	root.AddCommand(newTonightCmd(opts))
	root.AddCommand(newCompletionCmd(root))

	return root
}

// buildContext resolves configuration, loads the business zone and opens
// the store. Callers own the returned store and must close it.
func buildContext(cmd *cobra.Command, opts *globalOptions, command string) (output.Printer, store.Store, *globalOptions, error) {
	resolved, err := resolveGlobalOptions(cmd, opts)
	if err != nil {
		return output.Printer{}, nil, nil, Wrap(2, err)
	}
	if conflictCount(resolved.JSON, resolved.JSONL, resolved.Plain) > 1 {
		return output.Printer{}, nil, nil, Wrap(2, errors.New("--json, --jsonl, and --plain are mutually exclusive"))
	}
	mode := output.ModeAuto
	if resolved.JSON {
		mode = output.ModeJSON
	} else if resolved.JSONL {
		mode = output.ModeJSONL
	} else if resolved.Plain {
		mode = output.ModePlain
	}

	printer := output.Printer{
		Mode:          mode,
		Command:       command,
		Fields:        splitCSV(resolved.Fields),
		Quiet:         resolved.Quiet,
		SchemaVersion: resolved.SchemaVersion,
		Out:           cmd.OutOrStdout(),
		Err:           cmd.ErrOrStderr(),
	}

	log.SetOutput(cmd.ErrOrStderr())
	if resolved.Verbose {
		log.SetLevel(log.LevelDebug)
	} else {
		log.SetLevel(log.LevelInfo)
	}

	loc, err := civil.LoadZone(resolved.TZ)
	if err != nil {
		return printer, nil, nil, fail(printer, err, "Use an IANA zone such as America/Denver")
	}
	resolved.Location = loc
	if resolved.HorizonDays < 0 {
		err = fmt.Errorf("--horizon-days must not be negative")
		_ = printer.Error(contract.ErrInvalidUsage, err.Error(), "")
		return printer, nil, nil, WrapPrinted(2, err)
	}

	st, err := storeFactory(resolved.DB)
	if err != nil {
		log.Error("open store", err, "db", resolved.DB)
		_ = printer.Error(contract.ErrStoreUnavailable, err.Error(), "Check --db or MONAGHANS_DB")
		return printer, nil, nil, WrapPrinted(6, err)
	}
	log.Debug("context", "command", command, "db", resolved.DB, "mode", mode, "tz", resolved.TZ, "profile", resolved.Profile, "timeout", resolved.Timeout)
	return printer, st, resolved, nil
}

func openStore(path string) (store.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultDBPath()
	}
	return store.OpenSQLite(path)
}

func commandContext(ro *globalOptions) (context.Context, context.CancelFunc) {
	timing := &timingRecorder{calls: map[string]time.Duration{}}
	base := context.WithValue(context.Background(), timingContextKey{}, timing)
	if ro == nil || ro.Timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, ro.Timeout)
}

type timeoutResult[T any] struct {
	val T
	err error
}

type timingContextKey struct{}

type timingRecorder struct {
	mu    sync.Mutex
	calls map[string]time.Duration
}

func (r *timingRecorder) add(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name] += d
}

func storeTimings(ctx context.Context) map[string]string {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rec.calls))
	for k := range rec.calls {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = rec.calls[k].String()
	}
	return out
}

func withTimeout[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan timeoutResult[T], 1)
	go func() {
		v, err := fn()
		ch <- timeoutResult[T]{val: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		return res.val, res.err
	}
}

// timed runs a store call under the command deadline and records how long it took.
func timed[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := withTimeout(ctx, fn)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%s timed out: %w", name, err)
	}
	recordTiming(ctx, name, time.Since(start))
	return v, err
}

func recordTiming(ctx context.Context, name string, d time.Duration) {
	rec, _ := ctx.Value(timingContextKey{}).(*timingRecorder)
	if rec == nil {
		return
	}
	rec.add(name, d)
}

func successWithMeta(ctx context.Context, p output.Printer, ro *globalOptions, data any, meta map[string]any, warnings []string) error {
	if ro != nil && ro.Verbose {
		timings := storeTimings(ctx)
		if len(timings) > 0 {
			if meta == nil {
				meta = map[string]any{}
			}
			meta["timings"] = timings
			log.Debug("timings", "calls", timings)
		}
	}
	return p.Success(data, meta, warnings)
}

func renderTopLevelError(cmd *cobra.Command, err error) {
	var appErr AppError
	if errors.As(err, &appErr) && appErr.Printed {
		return
	}
	if wantsStructuredErrorOutput(os.Args[1:]) {
		printer := output.Printer{
			Mode:          output.ModeJSON,
			SchemaVersion: contract.SchemaVersion,
			Err:           cmd.ErrOrStderr(),
		}
		_ = printer.Error(errorCodeForExit(ExitCode(err)), err.Error(), "")
		return
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err.Error())
}

func wantsStructuredErrorOutput(args []string) bool {
	for _, arg := range args {
		switch {
		case arg == "--":
			return false
		case arg == "--json", arg == "--jsonl":
			return true
		case strings.HasPrefix(arg, "--json="), strings.HasPrefix(arg, "--jsonl="):
			return true
		}
	}
	return false
}

func errorCodeForExit(code int) contract.ErrorCode {
	switch code {
	case 2:
		return contract.ErrInvalidUsage
	case 4:
		return contract.ErrNotFound
	case 6:
		return contract.ErrStoreUnavailable
	default:
		return contract.ErrGeneric
	}
}

// weekBounds returns the inclusive first and last date of the week holding anchor.
func weekBounds(anchor civil.Date, weekStart time.Weekday) (civil.Date, civil.Date) {
	delta := (int(anchor.Weekday()) - int(weekStart) + 7) % 7
	start := anchor.AddDays(-delta)
	return start, start.AddDays(6)
}

func monthBounds(anchor civil.Date) (civil.Date, civil.Date) {
	start := civil.Date{Year: anchor.Year, Month: anchor.Month, Day: 1}
	end := civil.Date{Year: anchor.Year, Month: anchor.Month, Day: civil.DaysIn(anchor.Year, anchor.Month)}
	return start, end
}

func parseWeekStart(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return time.Sunday, fmt.Errorf("invalid --week-start: %s", v)
	}
}

func conflictCount(vals ...bool) int {
	total := 0
	for _, v := range vals {
		if v {
			total++
		}
	}
	return total
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
