package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dethstrobe/applywize2/internal/auth/passkey"
	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/platform/id"
)

// Service drives the WebAuthn ceremonies and issues web sessions.
//
// It is the stable surface the HTTP handlers call to perform identity actions
// without directly touching storage or protocol details.
type Service struct {
	users           storage.UserStore
	credentials     storage.CredentialStore
	ceremonies      storage.CeremonyStore
	webSessions     storage.WebSessionStore
	passkeyConfig   passkey.Config
	webAuthn        webAuthnProvider
	webAuthnInitErr error
	parser          credentialParser
	clock           func() time.Time
	idGenerator     func() (string, error)
}

// webAuthnProvider is the slice of go-webauthn the ceremonies use. It exists
// so tests can drive the ceremony flow without real authenticator signatures.
type webAuthnProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginDiscoverableLogin(opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidatePasskeyLogin(handler webauthn.DiscoverableUserHandler, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (webauthn.User, *webauthn.Credential, error)
}

type credentialParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultCredentialParser struct{}

func (defaultCredentialParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultCredentialParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Stores groups the persistence dependencies of the service. The SQLite store
// satisfies every field; tests swap in fakes per concern.
type Stores struct {
	Users       storage.UserStore
	Credentials storage.CredentialStore
	Ceremonies  storage.CeremonyStore
	WebSessions storage.WebSessionStore
}

// NewService builds an auth service with defaults for the package.
//
// Defaults are intentionally assembled here so the HTTP layer can treat this
// as the canonical identity entrypoint.
func NewService(stores Stores) *Service {
	config := passkey.LoadConfigFromEnv()
	webAuthn, err := webauthn.New(&webauthn.Config{
		RPDisplayName: config.RPDisplayName,
		RPID:          config.RPID,
		RPOrigins:     config.RPOrigins,
	})
	return &Service{
		users:           stores.Users,
		credentials:     stores.Credentials,
		ceremonies:      stores.Ceremonies,
		webSessions:     stores.WebSessions,
		passkeyConfig:   config,
		webAuthn:        webAuthn,
		webAuthnInitErr: err,
		parser:          defaultCredentialParser{},
		clock:           time.Now,
		idGenerator:     id.NewID,
	}
}

// checkConfigured rejects calls on a partially wired service early, so every
// ceremony method can assume its dependencies exist.
func (s *Service) checkConfigured() error {
	if s == nil {
		return fmt.Errorf("auth service is not configured")
	}
	if s.users == nil || s.credentials == nil || s.ceremonies == nil || s.webSessions == nil {
		return fmt.Errorf("auth storage is not configured")
	}
	if s.webAuthnInitErr != nil || s.webAuthn == nil {
		return fmt.Errorf("webauthn configuration is not available: %w", s.webAuthnInitErr)
	}
	if s.parser == nil {
		return fmt.Errorf("credential parser is not configured")
	}
	return nil
}

// ceremonyUser adapts an identity to the webauthn.User contract. During
// registration the identity is a candidate that only becomes durable when the
// ceremony finishes.
type ceremonyUser struct {
	id          string
	username    string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return []byte(u.id)
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.username
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.username
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// putCeremony serializes WebAuthn session expectations into a durable row so
// any server process can finish a ceremony another one began.
func (s *Service) putCeremony(ctx context.Context, kind passkey.CeremonyKind, userID, username string, session *webauthn.SessionData) (string, error) {
	if session == nil {
		return "", fmt.Errorf("session data is required")
	}
	ceremonyID, err := s.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate ceremony id: %w", err)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("encode ceremony session: %w", err)
	}
	if err := s.ceremonies.PutCeremony(ctx, storage.Ceremony{
		ID:          ceremonyID,
		Kind:        string(kind),
		UserID:      userID,
		Username:    username,
		SessionJSON: string(payload),
		ExpiresAt:   s.clock().UTC().Add(s.passkeyConfig.CeremonyTTL),
	}); err != nil {
		return "", fmt.Errorf("store ceremony: %w", err)
	}
	return ceremonyID, nil
}

type loadedCeremony struct {
	Data     webauthn.SessionData
	UserID   string
	Username string
}

// loadCeremony resolves a ceremony id back to its WebAuthn expectations and
// consumes the row.
//
// The row is spent the moment a finish attempt reaches it, so a failed
// verification cannot leave the challenge available for another try. Expired
// rows are likewise deleted on sight rather than by a background job.
func (s *Service) loadCeremony(ctx context.Context, ceremonyID string, expectedKind passkey.CeremonyKind) (loadedCeremony, error) {
	stored, err := s.ceremonies.GetCeremony(ctx, ceremonyID)
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			return loadedCeremony{}, errors.New(errors.CodeCeremonyNotFound, "ceremony not found")
		}
		return loadedCeremony{}, fmt.Errorf("load ceremony: %w", err)
	}
	if stored.Kind != string(expectedKind) {
		return loadedCeremony{}, errors.New(errors.CodeCeremonyNotFound, "ceremony kind mismatch")
	}
	if stored.ExpiresAt.Before(s.clock().UTC()) {
		_ = s.ceremonies.DeleteCeremony(ctx, ceremonyID)
		return loadedCeremony{}, errors.New(errors.CodeCeremonyExpired, "ceremony expired")
	}

	if err := s.ceremonies.DeleteCeremony(ctx, ceremonyID); err != nil {
		return loadedCeremony{}, fmt.Errorf("consume ceremony: %w", err)
	}

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(stored.SessionJSON), &session); err != nil {
		return loadedCeremony{}, fmt.Errorf("decode ceremony session: %w", err)
	}
	return loadedCeremony{Data: session, UserID: stored.UserID, Username: stored.Username}, nil
}

// Cleanup removes expired ceremonies and web sessions. The server runs it
// periodically so abandoned rows do not accumulate.
func (s *Service) Cleanup(ctx context.Context) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	now := s.clock().UTC()
	if err := s.ceremonies.DeleteExpiredCeremonies(ctx, now); err != nil {
		return fmt.Errorf("cleanup ceremonies: %w", err)
	}
	if err := s.webSessions.DeleteExpiredWebSessions(ctx, now); err != nil {
		return fmt.Errorf("cleanup web sessions: %w", err)
	}
	return nil
}

// marshalOptions renders protocol options for the browser as raw JSON.
func marshalOptions(options any) ([]byte, error) {
	return json.Marshal(options)
}

func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCredentialID(encoded string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(encoded)
}

// credentialFromRecord rebuilds the go-webauthn credential that assertion
// verification needs from the stored columns.
func credentialFromRecord(record storage.Credential) (webauthn.Credential, error) {
	rawID, err := decodeCredentialID(record.CredentialID)
	if err != nil {
		return webauthn.Credential{}, fmt.Errorf("decode credential id: %w", err)
	}
	transports := make([]protocol.AuthenticatorTransport, 0, len(record.Transports))
	for _, transport := range record.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(transport))
	}
	return webauthn.Credential{
		ID:        rawID,
		PublicKey: record.PublicKey,
		Transport: transports,
		Authenticator: webauthn.Authenticator{
			SignCount: record.Counter,
		},
	}, nil
}

func transportStrings(transports []protocol.AuthenticatorTransport) []string {
	if len(transports) == 0 {
		return nil
	}
	values := make([]string, 0, len(transports))
	for _, transport := range transports {
		values = append(values, string(transport))
	}
	return values
}
