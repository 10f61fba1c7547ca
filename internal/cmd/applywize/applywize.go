// Package applywize wires storage, services, and the web server into a
// runnable process.
package applywize

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/auth"
	"github.com/dethstrobe/applywize2/internal/auth/passkey"
	authsqlite "github.com/dethstrobe/applywize2/internal/auth/storage/sqlite"
	"github.com/dethstrobe/applywize2/internal/platform/otel"
	"github.com/dethstrobe/applywize2/internal/tracker"
	trackersqlite "github.com/dethstrobe/applywize2/internal/tracker/storage/sqlite"
	"github.com/dethstrobe/applywize2/internal/web"
	"github.com/dethstrobe/applywize2/internal/web/platform/ceremonytoken"
	"github.com/dethstrobe/applywize2/internal/web/platform/requestmeta"
)

const (
	defaultHTTPAddr   = "localhost:8080"
	defaultAuthDBPath = "applywize-auth.db"
	defaultTrackerDB  = "applywize-tracker.db"
	cleanupInterval   = time.Hour
	otelServiceName   = "applywize-web"
)

// Config holds the server command configuration.
type Config struct {
	HTTPAddr            string
	AuthDBPath          string
	TrackerDBPath       string
	CeremonySecret      string
	TrustForwardedProto bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses environment defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		HTTPAddr:       envOrDefault(lookup, "APPLYWIZE_HTTP_ADDR", defaultHTTPAddr),
		AuthDBPath:     envOrDefault(lookup, "APPLYWIZE_AUTH_DB_PATH", defaultAuthDBPath),
		TrackerDBPath:  envOrDefault(lookup, "APPLYWIZE_TRACKER_DB_PATH", defaultTrackerDB),
		CeremonySecret: envOrDefault(lookup, "APPLYWIZE_CEREMONY_SECRET", ""),
	}
	cfg.TrustForwardedProto = envOrDefault(lookup, "APPLYWIZE_TRUST_FORWARDED_PROTO", "") == "true"

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.AuthDBPath, "auth-db", cfg.AuthDBPath, "Auth SQLite database path")
	fs.StringVar(&cfg.TrackerDBPath, "tracker-db", cfg.TrackerDBPath, "Tracker SQLite database path")
	fs.BoolVar(&cfg.TrustForwardedProto, "trust-forwarded-proto", cfg.TrustForwardedProto, "Trust X-Forwarded-Proto from a fronting proxy")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the ApplyWize web server and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	shutdownOtel, err := otel.Setup(ctx, otelServiceName)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			log.Printf("shutdown telemetry: %v", err)
		}
	}()

	authStore, err := authsqlite.Open(cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer func() {
		if err := authStore.Close(); err != nil {
			log.Printf("close auth store: %v", err)
		}
	}()

	trackerStore, err := trackersqlite.Open(cfg.TrackerDBPath)
	if err != nil {
		return fmt.Errorf("open tracker store: %w", err)
	}
	defer func() {
		if err := trackerStore.Close(); err != nil {
			log.Printf("close tracker store: %v", err)
		}
	}()

	authService := auth.NewService(auth.Stores{
		Users:       authStore,
		Credentials: authStore,
		Ceremonies:  authStore,
		WebSessions: authStore,
	})
	trackerService := tracker.NewService(tracker.Stores{
		Applications: trackerStore,
		Companies:    trackerStore,
		Contacts:     trackerStore,
		Statuses:     trackerStore,
	})

	signer, err := ceremonytoken.NewSigner([]byte(cfg.CeremonySecret), nil)
	if err != nil {
		return fmt.Errorf("init ceremony signer: %w", err)
	}

	go runCleanup(ctx, authService)

	server, err := web.NewServer(web.Config{
		HTTPAddr: cfg.HTTPAddr,
		Handler: web.HandlerConfig{
			Auth:         authService,
			Tracker:      trackerService,
			Signer:       signer,
			SchemePolicy: requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustForwardedProto},
			CeremonyTTL:  passkey.LoadConfigFromEnv().CeremonyTTL,
		},
	})
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}

// runCleanup sweeps expired ceremonies and sessions until the context ends.
func runCleanup(ctx context.Context, authService *auth.Service) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.Cleanup(ctx); err != nil {
				log.Printf("cleanup expired auth records: %v", err)
			}
		}
	}
}

func envOrDefault(lookup EnvLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	value, ok := lookup(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
