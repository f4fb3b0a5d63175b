package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jtomassoni/monaghans-sub000/internal/log"
)

type fileConfig struct {
	DB          string                `toml:"db"`
	Timezone    string                `toml:"timezone"`
	Output      string                `toml:"output"`
	Fields      string                `toml:"fields"`
	WeekStart   string                `toml:"week_start"`
	HorizonDays int                   `toml:"horizon_days"`
	Profile     string                `toml:"profile"`
	Profiles    map[string]fileConfig `toml:"profiles"`
}

const projectConfigFile = ".monaghans.toml"

// resolveGlobalOptions layers defaults, the user config, the project config,
// an explicit --config file, .env, MONAGHANS_* variables and finally any flag
// set on the command line. Later layers win.
func resolveGlobalOptions(cmd *cobra.Command, defaults *globalOptions) (*globalOptions, error) {
	resolved := *defaults

	// Existing variables win over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug("dotenv", "err", err)
	}

	profile := firstNonEmpty(env("MONAGHANS_PROFILE"), defaults.Profile)
	if flagValueChanged(cmd, "profile") {
		profile = defaults.Profile
	}
	if profile == "" {
		profile = "default"
	}
	resolved.Profile = profile

	userPath := defaultUserConfigPath()
	configPath := firstNonEmpty(env("MONAGHANS_CONFIG"), userPath)
	if flagValueChanged(cmd, "config") {
		configPath = defaults.Config
	}

	if cfg, ok := readConfigFile(userPath); ok {
		applyFileConfig(&resolved, cfg, profile)
	}
	if cfg, ok := readConfigFile(projectConfigFile); ok {
		applyFileConfig(&resolved, cfg, profile)
	}
	if configPath != "" && configPath != userPath && configPath != projectConfigFile {
		if cfg, ok := readConfigFile(configPath); ok {
			applyFileConfig(&resolved, cfg, profile)
		}
	}

	applyEnv(&resolved)
	applyFlags(cmd, &resolved, defaults)

	if resolved.Config == "" {
		resolved.Config = configPath
	}
	return &resolved, nil
}

func applyFileConfig(dst *globalOptions, cfg fileConfig, profile string) {
	if p, ok := cfg.Profiles[profile]; ok {
		cfg = mergeFileConfig(cfg, p)
	}
	if cfg.DB != "" {
		dst.DB = cfg.DB
	}
	if cfg.Timezone != "" {
		dst.TZ = cfg.Timezone
	}
	if cfg.Fields != "" {
		dst.Fields = cfg.Fields
	}
	if cfg.WeekStart != "" {
		dst.WeekStart = cfg.WeekStart
	}
	if cfg.HorizonDays > 0 {
		dst.HorizonDays = cfg.HorizonDays
	}
	if cfg.Output != "" {
		setOutputMode(dst, cfg.Output)
	}
}

func mergeFileConfig(base, overlay fileConfig) fileConfig {
	if overlay.DB != "" {
		base.DB = overlay.DB
	}
	if overlay.Timezone != "" {
		base.Timezone = overlay.Timezone
	}
	if overlay.Output != "" {
		base.Output = overlay.Output
	}
	if overlay.Fields != "" {
		base.Fields = overlay.Fields
	}
	if overlay.WeekStart != "" {
		base.WeekStart = overlay.WeekStart
	}
	if overlay.HorizonDays > 0 {
		base.HorizonDays = overlay.HorizonDays
	}
	if overlay.Profile != "" {
		base.Profile = overlay.Profile
	}
	return base
}

func setOutputMode(dst *globalOptions, v string) {
	switch strings.ToLower(v) {
	case "json":
		dst.JSON, dst.JSONL, dst.Plain = true, false, false
	case "jsonl":
		dst.JSON, dst.JSONL, dst.Plain = false, true, false
	case "plain":
		dst.JSON, dst.JSONL, dst.Plain = false, false, true
	}
}

func applyEnv(dst *globalOptions) {
	if v := env("MONAGHANS_DB"); v != "" {
		dst.DB = v
	}
	if v := env("MONAGHANS_TIMEZONE"); v != "" {
		dst.TZ = v
	}
	if v := env("MONAGHANS_FIELDS"); v != "" {
		dst.Fields = v
	}
	if v := env("MONAGHANS_WEEK_START"); v != "" {
		dst.WeekStart = v
	}
	if v := env("MONAGHANS_HORIZON_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dst.HorizonDays = n
		}
	}
	if v := env("MONAGHANS_OUTPUT"); v != "" {
		setOutputMode(dst, v)
	}
}

func applyFlags(cmd *cobra.Command, dst, fromFlags *globalOptions) {
	copyIfChanged(cmd, "json", func() { dst.JSON = fromFlags.JSON })
	copyIfChanged(cmd, "jsonl", func() { dst.JSONL = fromFlags.JSONL })
	copyIfChanged(cmd, "plain", func() { dst.Plain = fromFlags.Plain })
	copyIfChanged(cmd, "fields", func() { dst.Fields = fromFlags.Fields })
	copyIfChanged(cmd, "quiet", func() { dst.Quiet = fromFlags.Quiet })
	copyIfChanged(cmd, "verbose", func() { dst.Verbose = fromFlags.Verbose })
	copyIfChanged(cmd, "profile", func() { dst.Profile = fromFlags.Profile })
	copyIfChanged(cmd, "config", func() { dst.Config = fromFlags.Config })
	copyIfChanged(cmd, "db", func() { dst.DB = fromFlags.DB })
	copyIfChanged(cmd, "tz", func() { dst.TZ = fromFlags.TZ })
	copyIfChanged(cmd, "week-start", func() { dst.WeekStart = fromFlags.WeekStart })
	copyIfChanged(cmd, "horizon-days", func() { dst.HorizonDays = fromFlags.HorizonDays })
	copyIfChanged(cmd, "schema-version", func() { dst.SchemaVersion = fromFlags.SchemaVersion })

	// If exactly one output mode flag is explicitly set, it overrides env/config output mode.
	modeSet := 0
	if flagValueChanged(cmd, "json") && fromFlags.JSON {
		modeSet++
	}
	if flagValueChanged(cmd, "jsonl") && fromFlags.JSONL {
		modeSet++
	}
	if flagValueChanged(cmd, "plain") && fromFlags.Plain {
		modeSet++
	}
	if modeSet == 1 {
		if flagValueChanged(cmd, "json") && fromFlags.JSON {
			dst.JSON, dst.JSONL, dst.Plain = true, false, false
		}
		if flagValueChanged(cmd, "jsonl") && fromFlags.JSONL {
			dst.JSON, dst.JSONL, dst.Plain = false, true, false
		}
		if flagValueChanged(cmd, "plain") && fromFlags.Plain {
			dst.JSON, dst.JSONL, dst.Plain = false, false, true
		}
	}
}

func copyIfChanged(cmd *cobra.Command, name string, fn func()) {
	if flagValueChanged(cmd, name) {
		fn()
	}
}

func flagValueChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

func readConfigFile(path string) (fileConfig, bool) {
	if strings.TrimSpace(path) == "" {
		return fileConfig{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, false
	}
	var cfg fileConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		log.Debug("config parse", "path", path, "err", err)
		return fileConfig{}, false
	}
	return cfg, true
}

func defaultUserConfigPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "monaghans", "config.toml")
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "monaghans", "config.toml")
}

func defaultDBPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "monaghans", "events.db")
	}
	home := strings.TrimSpace(os.Getenv("HOME"))
	if home == "" {
		return "monaghans.db"
	}
	return filepath.Join(home, ".local", "share", "monaghans", "events.db")
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
