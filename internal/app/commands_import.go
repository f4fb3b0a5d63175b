package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/log"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

// seedFile is the YAML layout accepted by `events import`.
type seedFile struct {
	Timezone string      `yaml:"timezone"`
	Events   []seedEvent `yaml:"events"`
}

type seedEvent struct {
	Title   string   `yaml:"title"`
	Notes   string   `yaml:"notes"`
	Start   string   `yaml:"start"`
	End     string   `yaml:"end"`
	AllDay  bool     `yaml:"all_day"`
	Weekly  []string `yaml:"weekly"`
	Monthly *int     `yaml:"monthly"`
	Until   string   `yaml:"until"`
	Except  []string `yaml:"except"`
}

func (e seedEvent) spec() eventSpec {
	s := eventSpec{
		Title:   e.Title,
		Notes:   e.Notes,
		Start:   e.Start,
		End:     e.End,
		AllDay:  e.AllDay,
		Weekly:  strings.Join(e.Weekly, ","),
		Monthly: e.Monthly,
		Until:   e.Until,
		Except:  e.Except,
	}
	return s
}

func newEventsImportCmd(opts *globalOptions) *cobra.Command {
	var filePath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import event definitions from a YAML seed file",
		RunE: func(c *cobra.Command, _ []string) error {
			p, st, ro, err := buildContext(c, opts, "events.import")
			if err != nil {
				return err
			}
			defer st.Close()
			if strings.TrimSpace(filePath) == "" {
				return failWithHint(p, contract.ErrInvalidUsage, errors.New("--file is required"), "Pass --file <path> or --file - for stdin", 2)
			}
			raw, err := readSeedInput(c, filePath)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Check --file path or stdin data", 2)
			}
			seed, err := parseSeed(raw)
			if err != nil {
				return failWithHint(p, contract.ErrInvalidUsage, err, "Validate the YAML layout", 2)
			}

			local := *ro
			if seed.Timezone != "" {
				loc, err := civil.LoadZone(seed.Timezone)
				if err != nil {
					return fail(p, err, "Use an IANA zone such as America/Denver")
				}
				local.Location = loc
			}

			// Validate everything before the first write.
			inputs := make([]store.CreateInput, 0, len(seed.Events))
			for i, ev := range seed.Events {
				if strings.TrimSpace(ev.Title) == "" {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("events[%d]: title is required", i), "", 2)
				}
				if len(ev.Weekly) > 0 && ev.Monthly != nil {
					return failWithHint(p, contract.ErrInvalidUsage, fmt.Errorf("events[%d]: weekly and monthly are mutually exclusive", i), "", 2)
				}
				in, err := ev.spec().build(&local)
				if err != nil {
					return fail(p, fmt.Errorf("events[%d] %q: %w", i, ev.Title, err), "")
				}
				inputs = append(inputs, in)
			}

			if dryRun {
				preview := make([]contract.Event, len(inputs))
				for i, in := range inputs {
					preview[i] = toEvent(store.Record{Title: in.Title, Notes: in.Notes, Start: in.Start, End: in.End, AllDay: in.AllDay, Rule: in.Rule})
				}
				return p.Success(preview, map[string]any{"count": len(preview), "dry_run": true}, nil)
			}

			ctx, cancel := commandContext(ro)
			defer cancel()
			created := make([]contract.Event, 0, len(inputs))
			for _, in := range inputs {
				in := in
				rec, err := timed(ctx, "store.add", func() (*store.Record, error) { return st.Add(ctx, in) })
				if err != nil {
					log.Error("import", err, "title", in.Title, "imported", len(created))
					return fail(p, err, "Import stopped; earlier events were saved")
				}
				created = append(created, toEvent(*rec))
			}
			log.Info("import", "events", len(created), "file", filePath)
			return successWithMeta(ctx, p, ro, created, map[string]any{"count": len(created)}, nil)
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "YAML seed path or - for stdin")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Validate and preview without writing")
	return cmd
}

func parseSeed(raw []byte) (seedFile, error) {
	var seed seedFile
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return seedFile{}, errors.New("seed file is empty")
		}
		return seedFile{}, fmt.Errorf("parse seed: %w", err)
	}
	if len(seed.Events) == 0 {
		return seedFile{}, errors.New("seed file has no events")
	}
	return seed, nil
}

func readSeedInput(c *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.InOrStdin())
	}
	return os.ReadFile(path)
}
