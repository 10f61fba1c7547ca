// Package storage defines persistence contracts for identity assets.
//
// These interfaces exist so ceremony logic can depend on stable domain
// semantics without coupling to SQLite schema details.
package storage

import (
	"context"
	"time"

	"github.com/dethstrobe/applywize2/internal/auth/user"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrCounterConflict indicates a compare-and-set counter update lost a race.
var ErrCounterConflict = errors.New(errors.CodeConflict, "credential counter changed concurrently")

// ErrDuplicateUsername indicates the username is already registered.
var ErrDuplicateUsername = errors.New(errors.CodeUsernameTaken, "username already registered")

// ErrDuplicateCredential indicates the credential (or the user's single
// credential slot) is already registered.
var ErrDuplicateCredential = errors.New(errors.CodeCredentialExists, "credential already registered")

// UserStore persists auth user records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
}

// Credential stores a registered passkey enrollment for a user.
//
// CredentialID is the authenticator-issued identifier in base64url form.
// Counter is the authenticator signature counter; it must never decrease.
type Credential struct {
	ID           string
	UserID       string
	CredentialID string
	PublicKey    []byte
	Counter      uint32
	Transports   []string
	CreatedAt    time.Time
}

// Ceremony stores an in-flight WebAuthn registration or login attempt.
//
// The challenge and relying-party expectations live inside SessionJSON; the
// row itself carries the correlation id, the ceremony kind, the candidate
// identity, and the expiry used for lazy single-use enforcement.
type Ceremony struct {
	ID          string
	Kind        string
	UserID      string
	Username    string
	SessionJSON string
	ExpiresAt   time.Time
}

// WebSession stores a durable authenticated browser session.
type WebSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// CredentialStore persists passkey credentials.
type CredentialStore interface {
	// CreateUserWithCredential atomically stores a new user and its single
	// credential; neither row survives a failure of the other.
	CreateUserWithCredential(ctx context.Context, u user.User, credential Credential) error
	GetCredentialByCredentialID(ctx context.Context, credentialID string) (Credential, error)
	GetCredentialByUserID(ctx context.Context, userID string) (Credential, error)
	// UpdateCredentialCounter performs a compare-and-set on the signature
	// counter, returning ErrCounterConflict when the stored value no longer
	// matches expectedOldCounter.
	UpdateCredentialCounter(ctx context.Context, id string, expectedOldCounter, newCounter uint32) error
}

// CeremonyStore persists in-flight WebAuthn ceremony state.
type CeremonyStore interface {
	PutCeremony(ctx context.Context, ceremony Ceremony) error
	GetCeremony(ctx context.Context, id string) (Ceremony, error)
	DeleteCeremony(ctx context.Context, id string) error
	DeleteExpiredCeremonies(ctx context.Context, now time.Time) error
}

// WebSessionStore persists authenticated browser sessions.
type WebSessionStore interface {
	PutWebSession(ctx context.Context, session WebSession) error
	GetWebSession(ctx context.Context, id string) (WebSession, error)
	RevokeWebSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredWebSessions(ctx context.Context, now time.Time) error
}
