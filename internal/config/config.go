package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"

	"github.com/Tiliavir/booking-ledger/internal/normalize"
)

// Config is the root configuration for tbl, stored in ~/.tbl/config.json.
// The file is JSONC: comments and trailing commas are allowed. Every field
// can be overridden by a TBL_* environment variable.
type Config struct {
	// DataDir holds current-day.json and the week files.
	DataDir string `json:"data_dir" env:"TBL_DATA_DIR"`
	// Timezone is the IANA zone in which days start and end. Empty = local.
	Timezone string `json:"timezone" env:"TBL_TIMEZONE"`
	// OverlapPolicy decides what a fixed booking does to overlapped records:
	// "overwrite" splits them, "reject" refuses the booking.
	OverlapPolicy string `json:"overlap_policy" env:"TBL_OVERLAP_POLICY"`
	// DefaultInterruptionMinutes ends interruptions automatically. 0 = never.
	DefaultInterruptionMinutes int `json:"default_interruption_minutes" env:"TBL_DEFAULT_INTERRUPTION_MINUTES"`
	// ResolutionMinutes is the granularity used by export --round.
	ResolutionMinutes int `json:"resolution_minutes" env:"TBL_RESOLUTION_MINUTES"`
	// MaxRecentIssues caps "tbl recent".
	MaxRecentIssues int `json:"max_recent_issues" env:"TBL_MAX_RECENT_ISSUES"`

	Outlook OutlookConfig `json:"outlook" envPrefix:"TBL_OUTLOOK_"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id" env:"TENANT_ID"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id" env:"CLIENT_ID"`
	// DefaultIssue is the issue booked for imported Outlook events.
	DefaultIssue string `json:"default_issue" env:"DEFAULT_ISSUE"`
	// Timezone is the IANA timezone requested from Graph. Empty = Config.Timezone.
	Timezone string `json:"timezone" env:"TIMEZONE"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultIssue is the issue booked for calendar events.
	DefaultIssue = "MEETING"
	// DefaultResolutionMinutes is the export rounding granularity.
	DefaultResolutionMinutes = 15
	// DefaultMaxRecentIssues is the length of the recent issues list.
	DefaultMaxRecentIssues = 10
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig(dir string) Config {
	return Config{
		DataDir:           filepath.Join(dir, "data"),
		OverlapPolicy:     string(normalize.Overwrite),
		ResolutionMinutes: DefaultResolutionMinutes,
		MaxRecentIssues:   DefaultMaxRecentIssues,
		Outlook: OutlookConfig{
			TenantID:     DefaultTenantID,
			ClientID:     DefaultClientID,
			DefaultIssue: DefaultIssue,
		},
	}
}

// configTemplate is the annotated config written on first run.
const configTemplate = `// tbl configuration – ~/.tbl/config.json
//
// All settings are optional. Every value can also be set through the
// environment, e.g. TBL_DATA_DIR or TBL_OUTLOOK_CLIENT_ID.
{
  // Directory holding current-day.json and the weekly YYYY-Www.json files.
  "data_dir": "~/.tbl/data",

  // IANA time zone that defines where a day starts, e.g. "Europe/Berlin".
  // Leave empty to use the system zone.
  "timezone": "",

  // What a fixed booking ("tbl book") does to time it overlaps:
  // • "overwrite" – the fixed booking wins, overlapped records are split
  // • "reject"    – the booking is refused
  "overlap_policy": "overwrite",

  // End interruptions automatically after this many minutes. 0 disables.
  "default_interruption_minutes": 0,

  // Granularity for "tbl export --round".
  "resolution_minutes": 15,

  // Number of issues listed by "tbl recent" (1-100).
  "max_recent_issues": 10,

  // ── Microsoft Graph / Outlook calendar sync ──────────────────────────────
  "outlook": {
    // Azure AD tenant ID: "common" or your organisation's tenant GUID.
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // Issue booked for imported calendar events.
    "default_issue": "MEETING",

    // Time zone requested from Graph. Empty = the zone above.
    "timezone": "",
  },
}
`

// Dir returns the tbl home directory (~/.tbl).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tbl"), nil
}

// DefaultPath returns the path to ~/.tbl/config.json.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads ~/.tbl/config.json, creating it with annotated defaults on
// first run.
func Load() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path and applies environment overrides.
// A missing file is created from the annotated template.
func LoadFrom(path string) (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig(dir)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			slog.Warn("could not create config file", "path", path, "error", writeErr)
		}
	case err != nil:
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return defaultConfig(dir), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	defaults := defaultConfig(dir)
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.OverlapPolicy == "" {
		cfg.OverlapPolicy = defaults.OverlapPolicy
	}
	if cfg.ResolutionMinutes == 0 {
		cfg.ResolutionMinutes = defaults.ResolutionMinutes
	}
	if cfg.MaxRecentIssues == 0 {
		cfg.MaxRecentIssues = defaults.MaxRecentIssues
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	if cfg.Outlook.DefaultIssue == "" {
		cfg.Outlook.DefaultIssue = DefaultIssue
	}
	cfg.DataDir = expandHome(cfg.DataDir, filepath.Dir(dir))

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := normalize.ParsePolicy(c.OverlapPolicy); err != nil {
		return err
	}
	if c.DefaultInterruptionMinutes < 0 {
		return fmt.Errorf("default_interruption_minutes must not be negative, got %d", c.DefaultInterruptionMinutes)
	}
	if c.ResolutionMinutes < 0 {
		return fmt.Errorf("resolution_minutes must not be negative, got %d", c.ResolutionMinutes)
	}
	if c.MaxRecentIssues < 0 || c.MaxRecentIssues > 100 {
		return fmt.Errorf("max_recent_issues must be between 1 and 100, got %d", c.MaxRecentIssues)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Outlook.Timezone != "" {
		if _, err := time.LoadLocation(c.Outlook.Timezone); err != nil {
			return fmt.Errorf("invalid outlook timezone %q: %w", c.Outlook.Timezone, err)
		}
	}
	return nil
}

// Location returns the zone days are cut in. An empty Timezone means local.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Policy returns the parsed overlap policy, falling back to overwrite.
func (c Config) Policy() normalize.ConflictPolicy {
	p, err := normalize.ParsePolicy(c.OverlapPolicy)
	if err != nil {
		return normalize.Overwrite
	}
	return p
}

// DefaultInterruption returns the automatic interruption length, 0 if disabled.
func (c Config) DefaultInterruption() time.Duration {
	return time.Duration(c.DefaultInterruptionMinutes) * time.Minute
}

// Resolution returns the export rounding granularity.
func (c Config) Resolution() time.Duration {
	return time.Duration(c.ResolutionMinutes) * time.Minute
}

// OutlookTimezone returns the zone requested from Graph. Graph needs a
// named zone, so an unset zone falls back to UTC.
func (c Config) OutlookTimezone() string {
	if c.Outlook.Timezone != "" {
		return c.Outlook.Timezone
	}
	if c.Timezone != "" {
		return c.Timezone
	}
	return "UTC"
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
