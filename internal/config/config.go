package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "kudos4me"

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Run      RunConfig      `toml:"run"`
	Login    LoginConfig    `toml:"login"`
	Browser  BrowserConfig  `toml:"browser"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Schedule ScheduleConfig `toml:"schedule"`
	History  HistoryConfig  `toml:"history"`
	Log      LogConfig      `toml:"log"`
}

type RunConfig struct {
	Mode                  string `toml:"mode"`
	MaxDurationSeconds    int    `toml:"max_duration_seconds"`
	MaxEmptyScrollRetries int    `toml:"max_empty_scroll_retries"`
	// EntriesPerPage of 0 picks the default for the mode.
	EntriesPerPage    int  `toml:"entries_per_page"`
	KudosCooldownMS   int  `toml:"kudos_cooldown_ms"`
	ClickTimeoutMS    int  `toml:"click_timeout_ms"`
	ScrollStepPX      int  `toml:"scroll_step_px"`
	ScrollPauseMS     int  `toml:"scroll_pause_ms"`
	WarmupScrolls     int  `toml:"warmup_scrolls"`
	SnapshotEmptyFeed bool `toml:"snapshot_empty_feed"`
}

type LoginConfig struct {
	Attempts              int  `toml:"attempts"`
	BackoffMS             int  `toml:"backoff_ms"`
	FormTimeoutSeconds    int  `toml:"form_timeout_seconds"`
	ConfirmTimeoutSeconds int  `toml:"confirm_timeout_seconds"`
	ReuseCookies          bool `toml:"reuse_cookies"`
}

type BrowserConfig struct {
	Driver   string `toml:"driver"`
	Headless bool   `toml:"headless"`
	BaseURL  string `toml:"base_url"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	SMTP     SMTPConfig     `toml:"smtp"`
}

type TelegramConfig struct {
	Token  string `toml:"token"`
	ChatID string `toml:"chat_id"`
	APIURL string `toml:"api_url"`
}

// Enabled reports whether both the bot token and chat are set.
func (t TelegramConfig) Enabled() bool { return t.Token != "" && t.ChatID != "" }

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Pass     string `toml:"pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Enabled reports whether enough is set to send mail.
func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.ToAddr != "" }

type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
	Job            string `toml:"job"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

const (
	ModeSingle = "single"
	ModeScroll = "scroll"

	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Run: RunConfig{
			Mode:                  ModeScroll,
			MaxDurationSeconds:    540,
			MaxEmptyScrollRetries: 3,
			KudosCooldownMS:       1000,
			ClickTimeoutMS:        5000,
			ScrollStepPX:          1000,
			ScrollPauseMS:         1500,
			WarmupScrolls:         5,
			SnapshotEmptyFeed:     true,
		},
		Login: LoginConfig{
			Attempts:              3,
			BackoffMS:             1000,
			FormTimeoutSeconds:    30,
			ConfirmTimeoutSeconds: 30,
			ReuseCookies:          true,
		},
		Browser: BrowserConfig{
			Driver:   DriverChromedp,
			Headless: true,
			BaseURL:  "https://www.strava.com",
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
			SMTP:     SMTPConfig{Port: 587},
		},
		Metrics:  MetricsConfig{Job: appName},
		Schedule: ScheduleConfig{Cron: "*/30 * * * *"},
		History:  HistoryConfig{Enabled: true},
		Log:      LogConfig{Level: "info"},
	}
}

// PageSize returns the dashboard page size, defaulting by mode.
func (r RunConfig) PageSize() int {
	if r.EntriesPerPage > 0 {
		return r.EntriesPerPage
	}
	if r.Mode == ModeSingle {
		return 100
	}
	return 200
}

func (r RunConfig) MaxDuration() time.Duration {
	return time.Duration(r.MaxDurationSeconds) * time.Second
}

func (r RunConfig) Cooldown() time.Duration { return ms(r.KudosCooldownMS) }

func (r RunConfig) ClickTimeout() time.Duration { return ms(r.ClickTimeoutMS) }

func (r RunConfig) ScrollPause() time.Duration { return ms(r.ScrollPauseMS) }

func (l LoginConfig) Backoff() time.Duration { return ms(l.BackoffMS) }

func (l LoginConfig) FormTimeout() time.Duration {
	return time.Duration(l.FormTimeoutSeconds) * time.Second
}

func (l LoginConfig) ConfirmTimeout() time.Duration {
	return time.Duration(l.ConfirmTimeoutSeconds) * time.Second
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Validate rejects values the run loop cannot work with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Run.Mode {
	case ModeSingle, ModeScroll:
	default:
		errs = append(errs, fmt.Errorf("run.mode must be %q or %q, got %q", ModeSingle, ModeScroll, c.Run.Mode))
	}
	switch c.Browser.Driver {
	case DriverChromedp, DriverRod:
	default:
		errs = append(errs, fmt.Errorf("browser.driver must be %q or %q, got %q", DriverChromedp, DriverRod, c.Browser.Driver))
	}
	if c.Run.MaxDurationSeconds <= 0 {
		errs = append(errs, errors.New("run.max_duration_seconds must be positive"))
	}
	if c.Run.MaxEmptyScrollRetries < 0 {
		errs = append(errs, errors.New("run.max_empty_scroll_retries must not be negative"))
	}
	if c.Run.EntriesPerPage < 0 {
		errs = append(errs, errors.New("run.entries_per_page must not be negative"))
	}
	if c.Login.FormTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("login.form_timeout_seconds must be positive"))
	}
	if c.Login.Attempts < 1 {
		errs = append(errs, errors.New("login.attempts must be at least 1"))
	}
	if c.Browser.BaseURL == "" {
		errs = append(errs, errors.New("browser.base_url must be set"))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory for run
// history, cookies and page snapshots.
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path on top of the defaults, so keys missing
// from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate loads the config file, writing the defaults on first run,
// then applies a .env file and environment overrides.
func LoadOrCreate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = Default()
		if err := cfg.Save(); err != nil {
			slog.Warn("could not save default config", "err", err)
		} else {
			path, _ := ConfigPath()
			slog.Info("created default config", "path", path)
		}
	}

	LoadDotEnv()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// ApplyEnv overrides config values from environment variables looked up
// with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("KUDOS_MODE", &c.Run.Mode)
	num("KUDOS_MAX_RUN_DURATION", &c.Run.MaxDurationSeconds)
	num("KUDOS_MAX_EMPTY_SCROLL_RETRIES", &c.Run.MaxEmptyScrollRetries)
	num("KUDOS_ENTRIES_PER_PAGE", &c.Run.EntriesPerPage)
	str("KUDOS_BROWSER_DRIVER", &c.Browser.Driver)
	str("TELEGRAM_API_TOKEN", &c.Notify.Telegram.Token)
	str("TELEGRAM_CHAT_ID", &c.Notify.Telegram.ChatID)
	str("KUDOS_PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	str("KUDOS_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("KUDOS_HEADLESS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("KUDOS_HEADLESS: %w", err))
		} else {
			c.Browser.Headless = b
		}
	}
	return errors.Join(errs...)
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path.
func (c *Config) SaveFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
