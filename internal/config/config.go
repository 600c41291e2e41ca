package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"daycal/internal/calendar"
	"daycal/internal/clock"
	"daycal/internal/model"
)

// StartToday makes new sessions open on the current date.
const StartToday = "today"

const dateLayout = "2006-01-02"

// SessionConfig controls browser session lifetime.
type SessionConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string `yaml:"cookie_name" json:"cookie_name"`
	// IdleMinutes is how long an untouched session is kept in memory.
	IdleMinutes int `yaml:"idle_minutes" json:"idle_minutes"`
	// Sweep is the cron schedule of the idle-session sweeper.
	Sweep string `yaml:"sweep" json:"sweep"`
	// MaxSessions caps live sessions; the least recently seen one is
	// evicted when a new session would exceed it.
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`
}

// CaptureConfig describes snapshot mode (-snapshot).
type CaptureConfig struct {
	// Output is where the PNG is written; /preview.png serves it.
	Output         string `yaml:"output" json:"output"`
	Width          int    `yaml:"width" json:"width"`
	Height         int    `yaml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// WeekStart controls the first column of the month grid:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// StartDate is the date new sessions open on, YYYY-MM-DD or "today".
	StartDate string `yaml:"start_date" json:"start_date"`

	// SeedEvents are copied into every new session.
	SeedEvents []model.Event `yaml:"seed_events" json:"seed_events"`

	// SeedICS optionally points at an .ics file whose events are appended
	// to SeedEvents at startup.
	SeedICS string `yaml:"seed_ics,omitempty" json:"seed_ics,omitempty"`

	Session SessionConfig `yaml:"session" json:"session"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		LogLevel:   "info",
		WeekStart:  "monday",
		StartDate:  "2021-09-02",
		SeedEvents: model.SampleEvents(),
		Session: SessionConfig{
			CookieName:  "daycal_session",
			IdleMinutes: 120,
			Sweep:       "@every 5m",
			MaxSessions: 1000,
		},
		Capture: CaptureConfig{
			Output:         "./cache/preview.png",
			Width:          1280,
			Height:         800,
			TimeoutSeconds: 30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.StartDate == "" {
		c.StartDate = def.StartDate
	}
	// nil means "not configured"; an explicit empty list disables the demo data.
	if c.SeedEvents == nil {
		c.SeedEvents = def.SeedEvents
	}
	for i := range c.SeedEvents {
		c.SeedEvents[i].Color = c.SeedEvents[i].Color.OrDefault()
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = def.Session.CookieName
	}
	if c.Session.IdleMinutes <= 0 {
		c.Session.IdleMinutes = def.Session.IdleMinutes
	}
	if c.Session.Sweep == "" {
		c.Session.Sweep = def.Session.Sweep
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = def.Session.MaxSessions
	}

	if c.Capture.Output == "" {
		c.Capture.Output = def.Capture.Output
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = def.Capture.TimeoutSeconds
	}
}

// BasicAuthEnabled reports whether Basic Auth credentials are configured.
// An empty username or password counts as disabled.
func (c *Config) BasicAuthEnabled() bool {
	return c.BasicAuth != nil && c.BasicAuth.Username != "" && c.BasicAuth.Password != ""
}

// Grid returns the month layout for WeekStart.
func (c *Config) Grid() calendar.Grid {
	if c.WeekStart == "sunday" {
		return calendar.Grid{WeekStart: time.Sunday}
	}
	return calendar.MondayFirst
}

// IdleTimeout is Session.IdleMinutes as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleMinutes) * time.Minute
}

// StartCursor resolves StartDate to the cursor new sessions open on.
func (c *Config) StartCursor(clk clock.Clock) (model.Cursor, error) {
	var t time.Time
	if c.StartDate == StartToday {
		t = clk.Now()
	} else {
		var err error
		t, err = time.Parse(dateLayout, c.StartDate)
		if err != nil {
			return model.Cursor{}, fmt.Errorf("config: invalid start_date %q: %w", c.StartDate, err)
		}
	}
	return model.Cursor{Year: t.Year(), Month: int(t.Month()) - 1, SelectedDay: t.Day()}, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically
// (temp file + rename) and with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".daycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
