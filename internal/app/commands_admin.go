package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/output"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

type statusResult struct {
	Ready         bool                   `json:"ready"`
	DB            string                 `json:"db"`
	Profile       string                 `json:"profile"`
	TZ            string                 `json:"tz"`
	Today         string                 `json:"today"`
	WeekStart     string                 `json:"week_start"`
	HorizonDays   int                    `json:"horizon_days"`
	OutputMode    string                 `json:"output_mode"`
	SchemaVersion string                 `json:"schema_version"`
	Checks        []contract.DoctorCheck `json:"checks"`
	ReasonCodes   []string               `json:"reason_codes,omitempty"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "monaghans %s\n", BuildVersionString())
		},
	}
}

// runChecks verifies the store answers and the business zone resolves.
func runChecks(ctx context.Context, st store.Store, ro *globalOptions) []contract.DoctorCheck {
	var checks []contract.DoctorCheck
	if _, err := timed(ctx, "store.ping", func() (struct{}, error) { return struct{}{}, st.Ping(ctx) }); err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "store", Status: "fail", Message: err.Error()})
	} else {
		checks = append(checks, contract.DoctorCheck{Name: "store", Status: "ok", Message: "database reachable"})
	}

	now := clock()
	name, offset := now.In(ro.Location).Zone()
	checks = append(checks, contract.DoctorCheck{
		Name:    "timezone",
		Status:  "ok",
		Message: fmt.Sprintf("%s (%s, UTC%+d), today is %s", ro.TZ, name, offset/3600, civil.Today(now, ro.Location)),
	})

	records, err := timed(ctx, "store.list", func() ([]store.Record, error) { return st.List(ctx, store.Filter{}) })
	if err != nil {
		checks = append(checks, contract.DoctorCheck{Name: "events", Status: "fail", Message: err.Error()})
		return checks
	}
	recurring := 0
	for _, r := range records {
		if r.Rule.Kind() != recurrence.KindNone {
			recurring++
		}
	}
	checks = append(checks, contract.DoctorCheck{
		Name:    "events",
		Status:  "ok",
		Message: fmt.Sprintf("%s definitions, %s recurring", humanize.Comma(int64(len(records))), humanize.Comma(int64(recurring))),
	})
	return checks
}

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run preflight checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "doctor")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks := runChecks(ctx, st, ro)
			reasons := deriveReasonCodes(checks)
			meta := map[string]any{
				"count":        len(checks),
				"ready":        len(reasons) == 0,
				"reason_codes": reasons,
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printDoctorPlain(cmd.OutOrStdout(), checks, reasons)
			} else {
				_ = successWithMeta(ctx, p, ro, checks, meta, nil)
			}
			if len(reasons) > 0 {
				return WrapPrinted(6, fmt.Errorf("doctor checks failed: %s", strings.Join(reasons, ",")))
			}
			return nil
		},
	}
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store health and active runtime configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(cmd, opts, "status")
			if err != nil {
				return err
			}
			defer st.Close()
			ctx, cancel := commandContext(ro)
			defer cancel()
			checks := runChecks(ctx, st, ro)
			reasons := deriveReasonCodes(checks)
			db := ro.DB
			if db == "" {
				db = defaultDBPath()
			}
			res := statusResult{
				Ready:         len(reasons) == 0,
				DB:            db,
				Profile:       ro.Profile,
				TZ:            ro.TZ,
				Today:         civil.Today(clock(), ro.Location).String(),
				WeekStart:     ro.WeekStart,
				HorizonDays:   ro.HorizonDays,
				OutputMode:    string(p.EffectiveSuccessMode()),
				SchemaVersion: ro.SchemaVersion,
				Checks:        checks,
				ReasonCodes:   reasons,
			}
			if p.EffectiveSuccessMode() == output.ModePlain {
				_ = printStatusPlain(cmd.OutOrStdout(), res)
			} else {
				_ = successWithMeta(ctx, p, ro, res, map[string]any{"ready": res.Ready, "checks": len(checks)}, nil)
			}
			if !res.Ready {
				return WrapPrinted(6, fmt.Errorf("status not ready"))
			}
			return nil
		},
	}
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := strings.ToLower(args[0])
			switch shell {
			case "bash":
				return root.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletion(cmd.OutOrStdout())
			default:
				return Wrap(2, fmt.Errorf("unsupported shell: %s", shell))
			}
		},
	}
}

func deriveReasonCodes(checks []contract.DoctorCheck) []string {
	codeSet := map[string]struct{}{}
	for _, c := range checks {
		status := strings.ToLower(strings.TrimSpace(c.Status))
		if status == "" || status == "ok" || status == "pass" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(c.Name))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		if name == "" {
			name = "unknown_check"
		}
		codeSet[name+"_fail"] = struct{}{}
	}
	if len(codeSet) == 0 {
		return nil
	}
	out := make([]string, 0, len(codeSet))
	for code := range codeSet {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func printDoctorPlain(out io.Writer, checks []contract.DoctorCheck, reasonCodes []string) error {
	_, _ = fmt.Fprintf(out, "ready=%t checks=%d\n", len(reasonCodes) == 0, len(checks))
	if len(reasonCodes) > 0 {
		_, _ = fmt.Fprintf(out, "reasons=%s\n", strings.Join(reasonCodes, ","))
	}
	for _, c := range checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	return nil
}

func printStatusPlain(out io.Writer, res statusResult) error {
	_, _ = fmt.Fprintf(out, "ready=%t db=%s profile=%s tz=%s today=%s output_mode=%s checks=%d\n", res.Ready, res.DB, res.Profile, res.TZ, res.Today, res.OutputMode, len(res.Checks))
	if len(res.ReasonCodes) > 0 {
		_, _ = fmt.Fprintf(out, "reasons=%s\n", strings.Join(res.ReasonCodes, ","))
	}
	for _, c := range res.Checks {
		_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", c.Status, c.Name, c.Message)
	}
	return nil
}
