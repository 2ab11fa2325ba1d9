package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"waccamaw/internal/adapters/api"
	"waccamaw/internal/adapters/archive"
	emailPkg "waccamaw/internal/adapters/email"
	web "waccamaw/internal/adapters/http"
	"waccamaw/internal/adapters/http/perf"
	"waccamaw/internal/adapters/imagefocus"
	"waccamaw/internal/adapters/storage"
	sessionStore "waccamaw/internal/adapters/storage/session"
	"waccamaw/internal/application/orchestrators"
	"waccamaw/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const (
	maintenanceInterval = 10 * time.Minute
	visitorIdle         = 10 * time.Minute
	shutdownTimeout     = 10 * time.Second
)

func main() {
	configPath := flag.String("config", os.Getenv("WACCAMAW_CONFIG"), "Path to TOML config file (optional)")
	envName := flag.String("env", "", "Environment: development or production (overrides WACCAMAW_ENV)")
	flag.Parse()

	cfg, err := config.Load(config.LoaderOptions{ConfigPath: *configPath, Environment: *envName})
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	// WAL allows concurrent readers; writes serialise on the busy timeout.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	timedDB := storage.NewTimedDB(db, cfg.SlowQueryMs)
	sessions := sessionStore.NewSQLiteStore(timedDB, cfg.Portal.SessionTTL)

	legacy, err := archive.LoadDir(cfg.ArchiveDir)
	if err != nil {
		return err
	}
	slog.Info("archive_loaded", "dir", cfg.ArchiveDir, "meetings", legacy.Len())

	sender := emailPkg.New(cfg.Email)
	if cfg.Email.ResendKey == "" {
		if cfg.Env == config.Production {
			slog.Warn("email_disabled", "reason", "WACCAMAW_RESEND_KEY is not set")
		} else {
			slog.Info("email_sender", "provider", "noop")
		}
	}

	var collector *perf.Collector
	if cfg.IsDevelopment() {
		collector = perf.NewCollector(perf.DefaultRingSize)
	}

	srv, err := web.New(web.Deps{
		Config:   cfg,
		API:      api.New(cfg, nil),
		Sessions: sessions,
		Archive:  legacy,
		Focus:    imagefocus.New(),
		Email:    sender,
		Perf:     collector,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go maintain(ctx, cfg, sessions, srv.Limiter())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.ListenAddr,
			"env", string(cfg.Env),
			"api", cfg.APIBaseURL,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// maintain purges idle sessions and forgets idle rate-limit visitors until
// ctx is done.
func maintain(ctx context.Context, cfg *config.Config, sessions orchestrators.SessionPurger, limiter interface{ Sweep(time.Duration) int }) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrators.ExecutePurgeSessions(ctx, orchestrators.PurgeSessionsDeps{
				Sessions: sessions,
				TTL:      cfg.Portal.SessionTTL,
			}); err != nil {
				slog.Error("session_purge_failed", "error", err)
			}
			if n := limiter.Sweep(visitorIdle); n > 0 {
				slog.Debug("rate_limit_swept", "visitors", n)
			}
		}
	}
}

// newLogger writes JSON in production and text elsewhere.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.Env == config.Production {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
