// Package config holds the portal configuration. A Config is built once at
// startup by Load and passed explicitly to every component.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Environment selects the preset a Config starts from.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// ParseEnvironment parses an environment name. Empty means development.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "development", "dev":
		return Development, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", fmt.Errorf("invalid environment %q: must be development or production", s)
	}
}

// Default API base URLs per environment.
const (
	DevelopmentAPIBaseURL = "http://localhost:8787"
	ProductionAPIBaseURL  = "https://members.waccamaw.org"
)

// Default public site URLs per environment.
const (
	DevelopmentPublicURL = "http://localhost:8080"
	ProductionPublicURL  = "https://waccamaw.org"
)

// StorageKeys name the three cached session values.
type StorageKeys struct {
	SessionToken string
	MemberData   string
	MemberEmail  string
}

// DefaultStorageKeys are the keys the static site historically used in local storage.
var DefaultStorageKeys = StorageKeys{
	SessionToken: "waccamaw_session_token",
	MemberData:   "waccamaw_member_data",
	MemberEmail:  "waccamaw_member_email",
}

// Endpoints are remote API path templates. Placeholders use the :name form.
type Endpoints struct {
	RequestUpdate    string
	VerifyToken      string
	UpdateMember     string
	MemberStatus     string
	MemberPhoto      string
	UploadPhoto      string
	AdminMemberList  string
	Meetings         string
	MeetingByID      string
	MeetingDetail    string
	UpcomingMeetings string
}

// DefaultEndpoints lists the endpoints of the member-services and meetings-service APIs.
var DefaultEndpoints = Endpoints{
	RequestUpdate:    "/api/request-update",
	VerifyToken:      "/api/verify/:token",
	UpdateMember:     "/api/update-member",
	MemberStatus:     "/api/member-status",
	MemberPhoto:      "/api/member-photo/:itemId",
	UploadPhoto:      "/api/upload-photo",
	AdminMemberList:  "/api/admin/member-list",
	Meetings:         "/api/meetings",
	MeetingByID:      "/api/meetings/:id",
	MeetingDetail:    "/api/meetings/:type/:year/:month/:day",
	UpcomingMeetings: "/api/meetings?upcoming=true",
}

// Expand substitutes :name placeholders in an endpoint template.
// params alternate name, value. Values are path-escaped.
func Expand(tmpl string, params ...string) string {
	out := tmpl
	for i := 0; i+1 < len(params); i += 2 {
		out = strings.Replace(out, ":"+params[i], url.PathEscape(params[i+1]), 1)
	}
	return out
}

// Features are the portal feature flags.
type Features struct {
	ShowLogo          bool
	PhotoUpload       bool
	PhotoAllowedTypes []string
	PhotoMaxSize      int64
}

// AllowsPhotoType reports whether contentType is an accepted upload type.
func (f Features) AllowsPhotoType(contentType string) bool {
	for _, t := range f.PhotoAllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

// Settings carries fixed limits shared with the backend.
type Settings struct {
	VerificationExpiry time.Duration
	MaxFileSize        int64
	AllowedFileTypes   []string
}

// PortalConfig tunes the member portal and meetings views.
type PortalConfig struct {
	// FailOpenRequestUpdate advances the portal to verification-sent (and
	// accepts profile edits locally) even when the API call fails.
	FailOpenRequestUpdate bool
	WarningThresholdDays  int
	AtRiskPageSize        int
	RecentYears           int
	SessionTTL            time.Duration
}

// EmailConfig configures renewal reminder delivery.
type EmailConfig struct {
	ResendKey string
	From      string
	ReplyTo   string
}

// Leader is one entry on the governing body page.
type Leader struct {
	Name     string
	Title    string
	Photo    string // path under the static directory, e.g. /static/img/chief.jpg
	Featured bool
}

// Config is the complete portal configuration.
type Config struct {
	Env           Environment
	ListenAddr    string
	APIBaseURL    string
	PublicURL     string // absolute base of links in outgoing email
	TrustProxy    bool   // key rate limits by X-Forwarded-For
	DatabasePath  string
	StaticDir     string
	ArchiveDir    string
	CSRFKey       string // hex-encoded, 32 bytes
	LogLevel      string
	SlowRequestMs int
	SlowQueryMs   int

	StorageKeys StorageKeys
	Endpoints   Endpoints
	Features    Features
	Settings    Settings
	Portal      PortalConfig
	Email       EmailConfig

	GoverningBody []Leader
}

// IsDevelopment reports whether dev-only views (debug tables, diagnostics) are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Env == Development
}

// APIURL joins the API base URL with an expanded endpoint path.
func (c *Config) APIURL(path string) string {
	return strings.TrimRight(c.APIBaseURL, "/") + path
}

// Preset returns the defaults for an environment.
func Preset(env Environment) *Config {
	cfg := &Config{
		Env:           env,
		ListenAddr:    ":8080",
		APIBaseURL:    DevelopmentAPIBaseURL,
		PublicURL:     DevelopmentPublicURL,
		DatabasePath:  "waccamaw.db",
		StaticDir:     "static",
		ArchiveDir:    "content/meetings",
		LogLevel:      "debug",
		SlowRequestMs: 200,
		SlowQueryMs:   50,
		StorageKeys:   DefaultStorageKeys,
		Endpoints:     DefaultEndpoints,
		Features: Features{
			ShowLogo:          true,
			PhotoUpload:       true,
			PhotoAllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
			PhotoMaxSize:      5 * 1024 * 1024,
		},
		Settings: Settings{
			VerificationExpiry: time.Hour,
			MaxFileSize:        10 * 1024 * 1024,
			AllowedFileTypes:   []string{"pdf", "doc", "docx", "jpg", "jpeg", "png", "gif"},
		},
		Portal: PortalConfig{
			FailOpenRequestUpdate: true,
			WarningThresholdDays:  90,
			AtRiskPageSize:        25,
			RecentYears:           2,
			SessionTTL:            30 * 24 * time.Hour,
		},
		Email: EmailConfig{
			From:    "Waccamaw Indian People <noreply@waccamaw.org>",
			ReplyTo: "info@waccamaw.org",
		},
	}
	if env == Production {
		cfg.APIBaseURL = ProductionAPIBaseURL
		cfg.PublicURL = ProductionPublicURL
		cfg.TrustProxy = true
		cfg.LogLevel = "info"
		cfg.Portal.FailOpenRequestUpdate = false
	}
	return cfg
}

// Validate checks fields that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_base_url %q must be an absolute URL", c.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url %q must use http or https", c.APIBaseURL)
	}
	p, err := url.Parse(c.PublicURL)
	if err != nil || p.Scheme == "" || p.Host == "" {
		return fmt.Errorf("public_url %q must be an absolute URL", c.PublicURL)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.Portal.AtRiskPageSize < 1 {
		return fmt.Errorf("at_risk_page_size must be positive, got %d", c.Portal.AtRiskPageSize)
	}
	if c.Portal.RecentYears < 1 {
		return fmt.Errorf("recent_years must be positive, got %d", c.Portal.RecentYears)
	}
	if c.Features.PhotoMaxSize <= 0 {
		return fmt.Errorf("photo_max_size must be positive, got %d", c.Features.PhotoMaxSize)
	}
	if c.Env == Production && c.CSRFKey == "" {
		return fmt.Errorf("csrf_key is required in production")
	}
	return nil
}
