// Package passkey configures WebAuthn passkey support.
//
// It models the relying-party identity and ceremony timing so browsers and the
// server agree on which origin a signed challenge is bound to.
package passkey

import (
	"time"

	"github.com/dethstrobe/applywize2/internal/platform/config"
)

// CeremonyKind describes the WebAuthn ceremony purpose.
type CeremonyKind string

const (
	CeremonyKindRegistration CeremonyKind = "registration"
	CeremonyKindLogin        CeremonyKind = "login"
)

// DefaultRPDisplayName is the relying-party name shown in authenticator prompts.
const DefaultRPDisplayName = "ApplyWize"

// Config controls WebAuthn relying party settings.
type Config struct {
	RPDisplayName string        `env:"APPLYWIZE_WEBAUTHN_RP_DISPLAY_NAME"`
	RPID          string        `env:"APPLYWIZE_WEBAUTHN_RP_ID"           envDefault:"localhost"`
	RPOrigins     []string      `env:"APPLYWIZE_WEBAUTHN_RP_ORIGINS"      envSeparator:","`
	CeremonyTTL   time.Duration `env:"APPLYWIZE_WEBAUTHN_CEREMONY_TTL"    envDefault:"5m"`
}

// LoadConfigFromEnv returns passkey configuration with defaults.
//
// A malformed variable never fails startup; fields the environment could not
// supply fall back to their defaults while valid fields are kept.
func LoadConfigFromEnv() Config {
	var cfg Config
	_ = config.ParseEnv(&cfg)
	if cfg.RPID == "" {
		cfg.RPID = "localhost"
	}
	if cfg.RPDisplayName == "" {
		cfg.RPDisplayName = DefaultRPDisplayName
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://localhost:8080"}
	}
	if cfg.CeremonyTTL <= 0 {
		cfg.CeremonyTTL = 5 * time.Minute
	}
	return cfg
}
