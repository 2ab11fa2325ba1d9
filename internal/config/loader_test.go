package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waccamaw.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestLoad_DevelopmentDefaults verifies the development preset.
func TestLoad_DevelopmentDefaults(t *testing.T) {
	cfg, err := Load(LoaderOptions{LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != Development {
		t.Errorf("expected development, got %s", cfg.Env)
	}
	if cfg.APIBaseURL != DevelopmentAPIBaseURL {
		t.Errorf("expected %s, got %s", DevelopmentAPIBaseURL, cfg.APIBaseURL)
	}
	if !cfg.Portal.FailOpenRequestUpdate {
		t.Error("expected fail-open in development")
	}
	if cfg.Portal.AtRiskPageSize != 25 {
		t.Errorf("expected page size 25, got %d", cfg.Portal.AtRiskPageSize)
	}
	if cfg.StorageKeys.SessionToken != "waccamaw_session_token" {
		t.Errorf("unexpected session key %q", cfg.StorageKeys.SessionToken)
	}
}

// TestLoad_ProductionPreset verifies production switches the API host and disables fail-open.
func TestLoad_ProductionPreset(t *testing.T) {
	cfg, err := Load(LoaderOptions{LookupEnv: envMap(map[string]string{
		"WACCAMAW_ENV":      "production",
		"WACCAMAW_CSRF_KEY": strings.Repeat("ab", 32),
	})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != ProductionAPIBaseURL {
		t.Errorf("expected %s, got %s", ProductionAPIBaseURL, cfg.APIBaseURL)
	}
	if cfg.Portal.FailOpenRequestUpdate {
		t.Error("expected fail-open disabled in production")
	}
	if cfg.PublicURL != ProductionPublicURL || !cfg.TrustProxy {
		t.Errorf("public url %q trust proxy %v", cfg.PublicURL, cfg.TrustProxy)
	}
}

// TestLoad_PublicURLAndProxy verifies the link base and proxy trust overlays.
func TestLoad_PublicURLAndProxy(t *testing.T) {
	path := writeConfig(t, `
public_url = "https://portal.example.org"
trust_proxy = true
`)
	cfg, err := Load(LoaderOptions{ConfigPath: path, LookupEnv: envMap(nil)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PublicURL != "https://portal.example.org" || !cfg.TrustProxy {
		t.Errorf("file values not applied: %q %v", cfg.PublicURL, cfg.TrustProxy)
	}

	cfg, err = Load(LoaderOptions{ConfigPath: path, LookupEnv: envMap(map[string]string{
		"WACCAMAW_PUBLIC_URL":  "https://other.example.org",
		"WACCAMAW_TRUST_PROXY": "false",
	})})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PublicURL != "https://other.example.org" || cfg.TrustProxy {
		t.Errorf("env should override file: %q %v", cfg.PublicURL, cfg.TrustProxy)
	}
}

// TestLoad_ProductionRequiresCSRFKey verifies validation fails fast without a key.
func TestLoad_ProductionRequiresCSRFKey(t *testing.T) {
	_, err := Load(LoaderOptions{Environment: "production", LookupEnv: envMap(nil)})
	if err == nil {
		t.Fatal("expected error without csrf key")
	}
}

// TestLoad_Precedence verifies file values override the preset and env overrides the file.
func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
api_base_url = "https://api.example.org"
listen_addr = ":9000"

[portal]
at_risk_page_size = 50
fail_open_request_update = false

[features]
photo_upload = false

[[governing_body]]
name = "Chief"
title = "Chief"
photo = "/static/img/chief.jpg"
featured = true
`)
	cfg, err := Load(LoaderOptions{
		ConfigPath: path,
		LookupEnv:  envMap(map[string]string{"WACCAMAW_ADDR": ":7000", "WACCAMAW_FAIL_OPEN": "true"}),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.org" {
		t.Errorf("file value not applied: %s", cfg.APIBaseURL)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("env should override file, got %s", cfg.ListenAddr)
	}
	if cfg.Portal.AtRiskPageSize != 50 {
		t.Errorf("expected 50, got %d", cfg.Portal.AtRiskPageSize)
	}
	if !cfg.Portal.FailOpenRequestUpdate {
		t.Error("env WACCAMAW_FAIL_OPEN should override file")
	}
	if cfg.Features.PhotoUpload {
		t.Error("expected photo upload disabled by file")
	}
	if len(cfg.GoverningBody) != 1 || !cfg.GoverningBody[0].Featured {
		t.Errorf("governing body not decoded: %+v", cfg.GoverningBody)
	}
}

// TestLoad_InvalidValues verifies bad input is rejected.
func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad environment", env: map[string]string{"WACCAMAW_ENV": "staging"}},
		{name: "bad url", env: map[string]string{"WACCAMAW_API_BASE_URL": "not a url"}},
		{name: "relative public url", env: map[string]string{"WACCAMAW_PUBLIC_URL": "/members"}},
		{name: "bad log level", env: map[string]string{"WACCAMAW_LOG_LEVEL": "loud"}},
		{name: "bad bool", env: map[string]string{"WACCAMAW_FAIL_OPEN": "maybe"}},
		{name: "bad int", env: map[string]string{"WACCAMAW_SLOW_QUERY_MS": "-4"}},
		{name: "bad toml", file: "api_base_url = "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := LoaderOptions{LookupEnv: envMap(tt.env)}
			if tt.file != "" {
				opts.ConfigPath = writeConfig(t, tt.file)
			}
			if _, err := Load(opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestLoad_MissingFile verifies an explicit but missing path fails.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoaderOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.toml"), LookupEnv: envMap(nil)})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestExpand verifies placeholder substitution and escaping.
func TestExpand(t *testing.T) {
	tests := []struct {
		tmpl   string
		params []string
		want   string
	}{
		{DefaultEndpoints.VerifyToken, []string{"token", "abc"}, "/api/verify/abc"},
		{DefaultEndpoints.MemberPhoto, []string{"itemId", "42"}, "/api/member-photo/42"},
		{DefaultEndpoints.MeetingDetail, []string{"type", "open", "year", "2024", "month", "03", "day", "09"}, "/api/meetings/open/2024/03/09"},
		{DefaultEndpoints.MeetingByID, []string{"id", "a/b"}, "/api/meetings/a%2Fb"},
	}
	for _, tt := range tests {
		if got := Expand(tt.tmpl, tt.params...); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

// TestFeatures_AllowsPhotoType verifies case-insensitive type matching.
func TestFeatures_AllowsPhotoType(t *testing.T) {
	f := Preset(Development).Features
	if !f.AllowsPhotoType("IMAGE/JPEG") {
		t.Error("expected image/jpeg allowed")
	}
	if f.AllowsPhotoType("application/pdf") {
		t.Error("expected pdf rejected")
	}
}
