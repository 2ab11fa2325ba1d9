package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is an optional TOML file. If set, it must exist and parse.
	ConfigPath string

	// Environment overrides both WACCAMAW_ENV and the file's env key.
	Environment string

	// LookupEnv reads environment variables. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Logger receives warnings about undecoded keys. Defaults to slog.Default().
	Logger *slog.Logger
}

// fileConfig mirrors Config with pointer fields so absent keys keep the preset.
type fileConfig struct {
	Env           string  `toml:"env"`
	ListenAddr    *string `toml:"listen_addr"`
	APIBaseURL    *string `toml:"api_base_url"`
	PublicURL     *string `toml:"public_url"`
	TrustProxy    *bool   `toml:"trust_proxy"`
	DatabasePath  *string `toml:"database_path"`
	StaticDir     *string `toml:"static_dir"`
	ArchiveDir    *string `toml:"archive_dir"`
	CSRFKey       *string `toml:"csrf_key"`
	SlowRequestMs *int    `toml:"slow_request_ms"`
	SlowQueryMs   *int    `toml:"slow_query_ms"`

	Logging  *loggingFileConfig  `toml:"logging"`
	Features *featuresFileConfig `toml:"features"`
	Portal   *portalFileConfig   `toml:"portal"`
	Email    *emailFileConfig    `toml:"email"`

	GoverningBody []leaderFileConfig `toml:"governing_body"`
}

type loggingFileConfig struct {
	Level string `toml:"level"`
}

type featuresFileConfig struct {
	ShowLogo          *bool    `toml:"show_logo"`
	PhotoUpload       *bool    `toml:"photo_upload"`
	PhotoAllowedTypes []string `toml:"photo_allowed_types"`
	PhotoMaxSize      *int64   `toml:"photo_max_size"`
}

type portalFileConfig struct {
	FailOpenRequestUpdate *bool `toml:"fail_open_request_update"`
	WarningThresholdDays  *int  `toml:"warning_threshold_days"`
	AtRiskPageSize        *int  `toml:"at_risk_page_size"`
	RecentYears           *int  `toml:"recent_years"`
	SessionTTLHours       *int  `toml:"session_ttl_hours"`
}

type emailFileConfig struct {
	ResendKey string `toml:"resend_key"`
	From      string `toml:"from"`
	ReplyTo   string `toml:"reply_to"`
}

type leaderFileConfig struct {
	Name     string `toml:"name"`
	Title    string `toml:"title"`
	Photo    string `toml:"photo"`
	Featured bool   `toml:"featured"`
}

// Load builds a Config with the following precedence:
//  1. Environment: opts.Environment > WACCAMAW_ENV > env key in the file > development
//  2. Start from the environment preset
//  3. Overlay TOML file values
//  4. Overlay WACCAMAW_* environment variables
//  5. Validate
//
// Unknown TOML keys produce a warning, not an error.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var fc fileConfig
	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	envName := fc.Env
	if v, ok := lookup("WACCAMAW_ENV"); ok && v != "" {
		envName = v
	}
	if opts.Environment != "" {
		envName = opts.Environment
	}
	env, err := ParseEnvironment(envName)
	if err != nil {
		return nil, err
	}

	cfg := Preset(env)
	overlayFile(cfg, &fc)
	if err := overlayEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, fc *fileConfig) {
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setString(&cfg.PublicURL, fc.PublicURL)
	setBool(&cfg.TrustProxy, fc.TrustProxy)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.StaticDir, fc.StaticDir)
	setString(&cfg.ArchiveDir, fc.ArchiveDir)
	setString(&cfg.CSRFKey, fc.CSRFKey)
	if fc.SlowRequestMs != nil {
		cfg.SlowRequestMs = *fc.SlowRequestMs
	}
	if fc.SlowQueryMs != nil {
		cfg.SlowQueryMs = *fc.SlowQueryMs
	}
	if fc.Logging != nil && fc.Logging.Level != "" {
		cfg.LogLevel = fc.Logging.Level
	}
	if f := fc.Features; f != nil {
		setBool(&cfg.Features.ShowLogo, f.ShowLogo)
		setBool(&cfg.Features.PhotoUpload, f.PhotoUpload)
		if len(f.PhotoAllowedTypes) > 0 {
			cfg.Features.PhotoAllowedTypes = f.PhotoAllowedTypes
		}
		if f.PhotoMaxSize != nil {
			cfg.Features.PhotoMaxSize = *f.PhotoMaxSize
		}
	}
	if p := fc.Portal; p != nil {
		setBool(&cfg.Portal.FailOpenRequestUpdate, p.FailOpenRequestUpdate)
		setInt(&cfg.Portal.WarningThresholdDays, p.WarningThresholdDays)
		setInt(&cfg.Portal.AtRiskPageSize, p.AtRiskPageSize)
		setInt(&cfg.Portal.RecentYears, p.RecentYears)
		if p.SessionTTLHours != nil && *p.SessionTTLHours > 0 {
			cfg.Portal.SessionTTL = time.Duration(*p.SessionTTLHours) * time.Hour
		}
	}
	if e := fc.Email; e != nil {
		if e.ResendKey != "" {
			cfg.Email.ResendKey = e.ResendKey
		}
		if e.From != "" {
			cfg.Email.From = e.From
		}
		if e.ReplyTo != "" {
			cfg.Email.ReplyTo = e.ReplyTo
		}
	}
	for _, l := range fc.GoverningBody {
		cfg.GoverningBody = append(cfg.GoverningBody, Leader(l))
	}
}

func overlayEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}
	if v, ok := get("WACCAMAW_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := get("WACCAMAW_API_BASE_URL"); ok {
		cfg.APIBaseURL = v
	}
	if v, ok := get("WACCAMAW_PUBLIC_URL"); ok {
		cfg.PublicURL = v
	}
	if v, ok := get("WACCAMAW_DB"); ok {
		cfg.DatabasePath = v
	}
	if v, ok := get("WACCAMAW_ARCHIVE_DIR"); ok {
		cfg.ArchiveDir = v
	}
	if v, ok := get("WACCAMAW_CSRF_KEY"); ok {
		cfg.CSRFKey = v
	}
	if v, ok := get("WACCAMAW_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("WACCAMAW_RESEND_KEY"); ok {
		cfg.Email.ResendKey = v
	}
	if v, ok := get("WACCAMAW_RESEND_FROM"); ok {
		cfg.Email.From = v
	}
	if v, ok := get("WACCAMAW_REPLY_TO"); ok {
		cfg.Email.ReplyTo = v
	}
	for key, dst := range map[string]*int{
		"WACCAMAW_SLOW_REQUEST_MS": &cfg.SlowRequestMs,
		"WACCAMAW_SLOW_QUERY_MS":   &cfg.SlowQueryMs,
	} {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("%s must be a positive integer, got %q", key, v)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*bool{
		"WACCAMAW_FAIL_OPEN":    &cfg.Portal.FailOpenRequestUpdate,
		"WACCAMAW_PHOTO_UPLOAD": &cfg.Features.PhotoUpload,
		"WACCAMAW_SHOW_LOGO":    &cfg.Features.ShowLogo,
		"WACCAMAW_TRUST_PROXY":  &cfg.TrustProxy,
	} {
		if v, ok := get(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s must be a boolean, got %q", key, v)
			}
			*dst = b
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
