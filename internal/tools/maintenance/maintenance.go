// Package maintenance implements the offline housekeeping command: it prunes
// expired passkey ceremonies and web sessions from the auth database and can
// vacuum both SQLite files afterwards.
package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	defaultAuthDBPath    = "applywize-auth.db"
	defaultTrackerDBPath = "applywize-tracker.db"
	defaultTimeout       = 10 * time.Minute
)

// Config holds maintenance command configuration.
type Config struct {
	AuthDBPath    string
	TrackerDBPath string
	Timeout       time.Duration
	Vacuum        bool
	JSONOutput    bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig resolves environment defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	cfg := Config{
		AuthDBPath:    envOrDefault(lookup, "APPLYWIZE_AUTH_DB_PATH", defaultAuthDBPath),
		TrackerDBPath: envOrDefault(lookup, "APPLYWIZE_TRACKER_DB_PATH", defaultTrackerDBPath),
		Timeout:       defaultTimeout,
	}
	if raw, ok := lookup("APPLYWIZE_MAINTENANCE_TIMEOUT"); ok && strings.TrimSpace(raw) != "" {
		timeout, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse APPLYWIZE_MAINTENANCE_TIMEOUT: %w", err)
		}
		cfg.Timeout = timeout
	}

	fs.StringVar(&cfg.AuthDBPath, "auth-db", cfg.AuthDBPath, "path to the auth sqlite database (default: APPLYWIZE_AUTH_DB_PATH or "+defaultAuthDBPath+")")
	fs.StringVar(&cfg.TrackerDBPath, "tracker-db", cfg.TrackerDBPath, "path to the tracker sqlite database (default: APPLYWIZE_TRACKER_DB_PATH or "+defaultTrackerDBPath+")")
	fs.BoolVar(&cfg.Vacuum, "vacuum", false, "vacuum both databases after pruning")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output a JSON report")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Report summarizes what a maintenance run did.
type Report struct {
	RanAt    time.Time `json:"ran_at"`
	Pruned   bool      `json:"pruned"`
	Vacuumed []string  `json:"vacuumed,omitempty"`
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if strings.TrimSpace(cfg.AuthDBPath) == "" {
		return errors.New("auth database path is required")
	}

	auth, err := openAuthStore(cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer func() {
		if closeErr := auth.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close auth store: %v\n", closeErr)
		}
	}()

	report := Report{RanAt: time.Now().UTC()}

	if err := auth.DeleteExpiredCeremonies(ctx, report.RanAt); err != nil {
		return fmt.Errorf("prune expired ceremonies: %w", err)
	}
	if err := auth.DeleteExpiredWebSessions(ctx, report.RanAt); err != nil {
		return fmt.Errorf("prune expired web sessions: %w", err)
	}
	report.Pruned = true

	if cfg.Vacuum {
		if err := auth.Vacuum(ctx); err != nil {
			return fmt.Errorf("vacuum auth database: %w", err)
		}
		report.Vacuumed = append(report.Vacuumed, cfg.AuthDBPath)

		if strings.TrimSpace(cfg.TrackerDBPath) != "" {
			tracker, err := openTrackerStore(cfg.TrackerDBPath)
			if err != nil {
				return fmt.Errorf("open tracker store: %w", err)
			}
			defer func() {
				if closeErr := tracker.Close(); closeErr != nil {
					fmt.Fprintf(errOut, "Error: close tracker store: %v\n", closeErr)
				}
			}()
			if err := tracker.Vacuum(ctx); err != nil {
				return fmt.Errorf("vacuum tracker database: %w", err)
			}
			report.Vacuumed = append(report.Vacuumed, cfg.TrackerDBPath)
		}
	}

	return writeReport(out, cfg.JSONOutput, report)
}

func writeReport(out io.Writer, asJSON bool, report Report) error {
	if asJSON {
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", encoded)
		return err
	}

	if _, err := fmt.Fprintf(out, "Pruned expired ceremonies and web sessions as of %s\n", report.RanAt.Format(time.RFC3339)); err != nil {
		return err
	}
	for _, path := range report.Vacuumed {
		if _, err := fmt.Fprintf(out, "Vacuumed %s\n", path); err != nil {
			return err
		}
	}
	return nil
}

func envOrDefault(lookup EnvLookup, key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
