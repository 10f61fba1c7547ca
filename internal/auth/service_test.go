package auth

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
)

type fakeUserStore struct {
	users  map[string]user.User
	getErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]user.User)}
}

func (s *fakeUserStore) PutUser(_ context.Context, u user.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) GetUser(_ context.Context, userID string) (user.User, error) {
	if s.getErr != nil {
		return user.User{}, s.getErr
	}
	u, ok := s.users[userID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	if s.getErr != nil {
		return user.User{}, s.getErr
	}
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

type fakeCredentialStore struct {
	users       *fakeUserStore
	credentials map[string]storage.Credential
	createErr   error
}

func newFakeCredentialStore(users *fakeUserStore) *fakeCredentialStore {
	return &fakeCredentialStore{users: users, credentials: make(map[string]storage.Credential)}
}

func (s *fakeCredentialStore) CreateUserWithCredential(_ context.Context, u user.User, credential storage.Credential) error {
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.users.users {
		if existing.Username == u.Username {
			return storage.ErrDuplicateUsername
		}
	}
	for _, existing := range s.credentials {
		if existing.CredentialID == credential.CredentialID || existing.UserID == credential.UserID {
			return storage.ErrDuplicateCredential
		}
	}
	s.users.users[u.ID] = u
	s.credentials[credential.ID] = credential
	return nil
}

func (s *fakeCredentialStore) GetCredentialByCredentialID(_ context.Context, credentialID string) (storage.Credential, error) {
	for _, credential := range s.credentials {
		if credential.CredentialID == credentialID {
			return credential, nil
		}
	}
	return storage.Credential{}, storage.ErrNotFound
}

func (s *fakeCredentialStore) GetCredentialByUserID(_ context.Context, userID string) (storage.Credential, error) {
	for _, credential := range s.credentials {
		if credential.UserID == userID {
			return credential, nil
		}
	}
	return storage.Credential{}, storage.ErrNotFound
}

func (s *fakeCredentialStore) UpdateCredentialCounter(_ context.Context, id string, expectedOldCounter, newCounter uint32) error {
	credential, ok := s.credentials[id]
	if !ok || credential.Counter != expectedOldCounter {
		return storage.ErrCounterConflict
	}
	credential.Counter = newCounter
	s.credentials[id] = credential
	return nil
}

type fakeCeremonyStore struct {
	ceremonies map[string]storage.Ceremony
	putErr     error
}

func newFakeCeremonyStore() *fakeCeremonyStore {
	return &fakeCeremonyStore{ceremonies: make(map[string]storage.Ceremony)}
}

func (s *fakeCeremonyStore) PutCeremony(_ context.Context, ceremony storage.Ceremony) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.ceremonies[ceremony.ID] = ceremony
	return nil
}

func (s *fakeCeremonyStore) GetCeremony(_ context.Context, id string) (storage.Ceremony, error) {
	ceremony, ok := s.ceremonies[id]
	if !ok {
		return storage.Ceremony{}, storage.ErrNotFound
	}
	return ceremony, nil
}

func (s *fakeCeremonyStore) DeleteCeremony(_ context.Context, id string) error {
	delete(s.ceremonies, id)
	return nil
}

func (s *fakeCeremonyStore) DeleteExpiredCeremonies(_ context.Context, now time.Time) error {
	for id, ceremony := range s.ceremonies {
		if !ceremony.ExpiresAt.After(now) {
			delete(s.ceremonies, id)
		}
	}
	return nil
}

type fakeWebSessionStore struct {
	sessions map[string]storage.WebSession
	putErr   error
}

func newFakeWebSessionStore() *fakeWebSessionStore {
	return &fakeWebSessionStore{sessions: make(map[string]storage.WebSession)}
}

func (s *fakeWebSessionStore) PutWebSession(_ context.Context, session storage.WebSession) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeWebSessionStore) GetWebSession(_ context.Context, id string) (storage.WebSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return storage.WebSession{}, storage.ErrNotFound
	}
	return session, nil
}

func (s *fakeWebSessionStore) RevokeWebSession(_ context.Context, id string, revokedAt time.Time) error {
	session, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[id] = session
	return nil
}

func (s *fakeWebSessionStore) DeleteExpiredWebSessions(_ context.Context, now time.Time) error {
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// fakeProvider skips signature cryptography but still routes login validation
// through the caller-supplied discoverable user handler, so credential lookup
// and ownership checks run for real.
type fakeProvider struct {
	rawCredentialID      []byte
	userHandle           []byte
	signCount            uint32
	cloneWarning         bool
	beginRegistrationErr error
	beginLoginErr        error
	createCredentialErr  error
	validateErr          error
}

func (f *fakeProvider) BeginRegistration(_ webauthn.User, _ ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
	if f.beginRegistrationErr != nil {
		return nil, nil, f.beginRegistrationErr
	}
	return &protocol.CredentialCreation{}, &webauthn.SessionData{}, nil
}

func (f *fakeProvider) CreateCredential(_ webauthn.User, _ webauthn.SessionData, _ *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error) {
	if f.createCredentialErr != nil {
		return nil, f.createCredentialErr
	}
	return &webauthn.Credential{
		ID:        f.rawCredentialID,
		PublicKey: []byte{0x01},
		Authenticator: webauthn.Authenticator{
			SignCount: f.signCount,
		},
	}, nil
}

func (f *fakeProvider) BeginDiscoverableLogin(_ ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	if f.beginLoginErr != nil {
		return nil, nil, f.beginLoginErr
	}
	return &protocol.CredentialAssertion{}, &webauthn.SessionData{}, nil
}

func (f *fakeProvider) ValidatePasskeyLogin(handler webauthn.DiscoverableUserHandler, _ webauthn.SessionData, _ *protocol.ParsedCredentialAssertionData) (webauthn.User, *webauthn.Credential, error) {
	if f.validateErr != nil {
		return nil, nil, f.validateErr
	}
	validated, err := handler(f.rawCredentialID, f.userHandle)
	if err != nil {
		return nil, nil, err
	}
	return validated, &webauthn.Credential{
		ID: f.rawCredentialID,
		Authenticator: webauthn.Authenticator{
			SignCount:    f.signCount,
			CloneWarning: f.cloneWarning,
		},
	}, nil
}

type fakeParser struct {
	creationErr  error
	assertionErr error
}

func (f *fakeParser) ParseCredentialCreationResponseBytes(_ []byte) (*protocol.ParsedCredentialCreationData, error) {
	if f.creationErr != nil {
		return nil, f.creationErr
	}
	return &protocol.ParsedCredentialCreationData{}, nil
}

func (f *fakeParser) ParseCredentialRequestResponseBytes(_ []byte) (*protocol.ParsedCredentialAssertionData, error) {
	if f.assertionErr != nil {
		return nil, f.assertionErr
	}
	return &protocol.ParsedCredentialAssertionData{}, nil
}

type testHarness struct {
	service     *Service
	users       *fakeUserStore
	credentials *fakeCredentialStore
	ceremonies  *fakeCeremonyStore
	webSessions *fakeWebSessionStore
	provider    *fakeProvider
	now         time.Time
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	users := newFakeUserStore()
	credentials := newFakeCredentialStore(users)
	ceremonies := newFakeCeremonyStore()
	webSessions := newFakeWebSessionStore()

	service := NewService(Stores{
		Users:       users,
		Credentials: credentials,
		Ceremonies:  ceremonies,
		WebSessions: webSessions,
	})

	provider := &fakeProvider{rawCredentialID: []byte("cred-1")}
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sequence := 0
	service.webAuthn = provider
	service.webAuthnInitErr = nil
	service.parser = &fakeParser{}
	service.clock = func() time.Time { return fixed }
	service.idGenerator = func() (string, error) {
		sequence++
		return fmt.Sprintf("id-%d", sequence), nil
	}

	return &testHarness{
		service:     service,
		users:       users,
		credentials: credentials,
		ceremonies:  ceremonies,
		webSessions: webSessions,
		provider:    provider,
		now:         fixed,
	}
}

// registerUser seeds a user with one credential the way a finished
// registration would.
func (h *testHarness) registerUser(t *testing.T, userID, username string, counter uint32) {
	t.Helper()
	h.users.users[userID] = user.User{ID: userID, Username: username, CreatedAt: h.now, UpdatedAt: h.now}
	h.credentials.credentials["record-"+userID] = storage.Credential{
		ID:           "record-" + userID,
		UserID:       userID,
		CredentialID: encodeCredentialID([]byte("cred-1")),
		PublicKey:    []byte{0x01},
		Counter:      counter,
		CreatedAt:    h.now,
	}
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s", want)
	}
	if got := apperrors.GetCode(err); got != want {
		t.Fatalf("error code = %s, want %s (%v)", got, want, err)
	}
}

func TestBeginRegistration(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginRegistration(context.Background(), "  Alice  ")
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}
	if challenge.CeremonyID == "" {
		t.Fatal("expected ceremony id")
	}
	if len(challenge.OptionsJSON) == 0 {
		t.Fatal("expected creation options json")
	}

	stored, ok := h.ceremonies.ceremonies[challenge.CeremonyID]
	if !ok {
		t.Fatal("expected stored ceremony")
	}
	if stored.Kind != "registration" {
		t.Fatalf("ceremony kind = %q, want registration", stored.Kind)
	}
	if stored.Username != "alice" {
		t.Fatalf("ceremony username = %q, want alice", stored.Username)
	}
	if stored.UserID == "" {
		t.Fatal("expected candidate user id")
	}
	if !stored.ExpiresAt.After(h.now) {
		t.Fatal("expected expiry after now")
	}
	if len(h.users.users) != 0 {
		t.Fatal("expected no user rows before finish")
	}
}

func TestBeginRegistrationUsernameTaken(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 0)

	_, err := h.service.BeginRegistration(context.Background(), "alice")
	assertCode(t, err, apperrors.CodeUsernameTaken)
}

func TestBeginRegistrationInvalidUsername(t *testing.T) {
	h := newTestHarness(t)

	for _, username := range []string{"", "  ", "ab", "has spaces", "UPPER CASE!"} {
		if _, err := h.service.BeginRegistration(context.Background(), username); apperrors.GetCode(err) != apperrors.CodeInvalidInput {
			t.Fatalf("username %q: expected invalid input, got %v", username, err)
		}
	}
}

func TestFinishRegistration(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginRegistration(context.Background(), "alice")
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}

	created, err := h.service.FinishRegistration(context.Background(), challenge.CeremonyID, []byte("{}"))
	if err != nil {
		t.Fatalf("finish registration: %v", err)
	}
	if created.Username != "alice" {
		t.Fatalf("created username = %q, want alice", created.Username)
	}
	if _, ok := h.users.users[created.ID]; !ok {
		t.Fatal("expected user stored")
	}

	credential, err := h.credentials.GetCredentialByUserID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected credential stored: %v", err)
	}
	if credential.CredentialID != encodeCredentialID([]byte("cred-1")) {
		t.Fatalf("unexpected credential id %q", credential.CredentialID)
	}

	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected ceremony deleted")
	}
	if len(h.webSessions.sessions) != 0 {
		t.Fatal("registration must not issue a web session")
	}
}

func TestFinishRegistrationCeremonyNotFound(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.service.FinishRegistration(context.Background(), "missing", []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyNotFound)
}

func TestFinishRegistrationCeremonyExpired(t *testing.T) {
	h := newTestHarness(t)

	sessionJSON, _ := json.Marshal(webauthn.SessionData{})
	h.ceremonies.ceremonies["ceremony-1"] = storage.Ceremony{
		ID:          "ceremony-1",
		Kind:        "registration",
		UserID:      "user-1",
		Username:    "alice",
		SessionJSON: string(sessionJSON),
		ExpiresAt:   h.now.Add(-time.Second),
	}

	_, err := h.service.FinishRegistration(context.Background(), "ceremony-1", []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyExpired)
	if _, ok := h.ceremonies.ceremonies["ceremony-1"]; ok {
		t.Fatal("expected expired ceremony deleted")
	}
}

func TestFinishRegistrationKindMismatch(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishRegistration(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyNotFound)
}

func TestFinishRegistrationUsernameRace(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginRegistration(context.Background(), "alice")
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}

	// Another registration for the same username completes first.
	h.registerUser(t, "user-9", "alice", 0)

	_, err = h.service.FinishRegistration(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeUsernameTaken)
	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected losing ceremony consumed")
	}
}

func TestFinishRegistrationFailureConsumesCeremony(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginRegistration(context.Background(), "alice")
	if err != nil {
		t.Fatalf("begin registration: %v", err)
	}

	h.provider.createCredentialErr = fmt.Errorf("attestation mismatch")
	_, err = h.service.FinishRegistration(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeVerificationFailed)
	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected ceremony consumed by the failed attempt")
	}

	// The same challenge must not be retryable once spent.
	h.provider.createCredentialErr = nil
	_, err = h.service.FinishRegistration(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyNotFound)
	if len(h.users.users) != 0 {
		t.Fatal("expected no user created from a spent ceremony")
	}
}

func TestBeginLogin(t *testing.T) {
	h := newTestHarness(t)

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}
	if len(challenge.OptionsJSON) == 0 {
		t.Fatal("expected assertion options json")
	}

	stored, ok := h.ceremonies.ceremonies[challenge.CeremonyID]
	if !ok {
		t.Fatal("expected stored ceremony")
	}
	if stored.Kind != "login" {
		t.Fatalf("ceremony kind = %q, want login", stored.Kind)
	}
	if stored.UserID != "" || stored.Username != "" {
		t.Fatalf("discoverable login must not pin an identity: %+v", stored)
	}
}

func TestFinishLogin(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 4)
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 5

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	result, err := h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	if err != nil {
		t.Fatalf("finish login: %v", err)
	}
	if result.User.ID != "user-1" {
		t.Fatalf("logged in user = %q, want user-1", result.User.ID)
	}
	if result.Session.UserID != "user-1" {
		t.Fatalf("session user = %q, want user-1", result.Session.UserID)
	}
	if want := h.now.Add(WebSessionTTL); !result.Session.ExpiresAt.Equal(want) {
		t.Fatalf("session expiry = %v, want %v", result.Session.ExpiresAt, want)
	}

	credential := h.credentials.credentials["record-user-1"]
	if credential.Counter != 5 {
		t.Fatalf("counter = %d, want 5", credential.Counter)
	}
	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected ceremony deleted")
	}
}

func TestFinishLoginUnknownCredential(t *testing.T) {
	h := newTestHarness(t)
	h.provider.rawCredentialID = []byte("stranger")

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeUnknownCredential)
	if len(h.webSessions.sessions) != 0 {
		t.Fatal("expected no session issued")
	}
}

func TestFinishLoginCounterRegression(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 10)
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 10

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCounterRegression)
	if len(h.webSessions.sessions) != 0 {
		t.Fatal("suspected clone must not receive a session")
	}
	if got := h.credentials.credentials["record-user-1"].Counter; got != 10 {
		t.Fatalf("counter = %d, want 10 untouched", got)
	}
	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected ceremony consumed by the failed attempt")
	}
}

func TestFinishLoginZeroCountersAllowed(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 0)
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 0

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	if _, err := h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}")); err != nil {
		t.Fatalf("finish login: %v", err)
	}
}

func TestFinishLoginCloneWarning(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 0)
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 0
	h.provider.cloneWarning = true

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCounterRegression)
}

func TestFinishLoginReplayedCeremony(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 4)
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 5

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}
	if _, err := h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}")); err != nil {
		t.Fatalf("finish login: %v", err)
	}

	// A captured response replayed against the consumed ceremony must fail.
	h.provider.signCount = 5
	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyNotFound)
}

func TestFinishLoginFailureConsumesCeremony(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 4)
	h.provider.validateErr = fmt.Errorf("assertion signature invalid")

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeVerificationFailed)
	if _, ok := h.ceremonies.ceremonies[challenge.CeremonyID]; ok {
		t.Fatal("expected ceremony consumed by the failed attempt")
	}

	// The same challenge must not be retryable once spent.
	h.provider.validateErr = nil
	h.provider.userHandle = []byte("user-1")
	h.provider.signCount = 5
	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeCeremonyNotFound)
	if len(h.webSessions.sessions) != 0 {
		t.Fatal("expected no session issued from a spent ceremony")
	}
}

func TestFinishLoginWrongUserHandle(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 4)
	h.provider.userHandle = []byte("user-2")
	h.provider.signCount = 5

	challenge, err := h.service.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	_, err = h.service.FinishLogin(context.Background(), challenge.CeremonyID, []byte("{}"))
	assertCode(t, err, apperrors.CodeUnknownCredential)
}

func TestGetActiveWebSession(t *testing.T) {
	h := newTestHarness(t)

	session, err := h.service.CreateWebSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := h.service.GetActiveWebSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != "user-1" {
		t.Fatalf("session user = %q, want user-1", got.UserID)
	}
}

func TestGetActiveWebSessionExpired(t *testing.T) {
	h := newTestHarness(t)

	h.webSessions.sessions["session-1"] = storage.WebSession{
		ID:        "session-1",
		UserID:    "user-1",
		CreatedAt: h.now.Add(-8 * 24 * time.Hour),
		ExpiresAt: h.now.Add(-time.Hour),
	}

	_, err := h.service.GetActiveWebSession(context.Background(), "session-1")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGetActiveWebSessionRevoked(t *testing.T) {
	h := newTestHarness(t)

	session, err := h.service.CreateWebSession(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := h.service.RevokeWebSession(context.Background(), session.ID); err != nil {
		t.Fatalf("revoke session: %v", err)
	}

	_, err = h.service.GetActiveWebSession(context.Background(), session.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestRevokeWebSessionIdempotent(t *testing.T) {
	h := newTestHarness(t)

	if err := h.service.RevokeWebSession(context.Background(), "missing"); err != nil {
		t.Fatalf("revoke unknown session: %v", err)
	}
	if err := h.service.RevokeWebSession(context.Background(), ""); err != nil {
		t.Fatalf("revoke empty session: %v", err)
	}
}

func TestCleanup(t *testing.T) {
	h := newTestHarness(t)

	h.ceremonies.ceremonies["old"] = storage.Ceremony{ID: "old", Kind: "login", SessionJSON: "{}", ExpiresAt: h.now.Add(-time.Minute)}
	h.ceremonies.ceremonies["new"] = storage.Ceremony{ID: "new", Kind: "login", SessionJSON: "{}", ExpiresAt: h.now.Add(time.Minute)}
	h.webSessions.sessions["old"] = storage.WebSession{ID: "old", UserID: "user-1", ExpiresAt: h.now.Add(-time.Minute)}

	if err := h.service.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, ok := h.ceremonies.ceremonies["old"]; ok {
		t.Fatal("expected expired ceremony removed")
	}
	if _, ok := h.ceremonies.ceremonies["new"]; !ok {
		t.Fatal("expected live ceremony retained")
	}
	if _, ok := h.webSessions.sessions["old"]; ok {
		t.Fatal("expected expired session removed")
	}
}

func TestServiceNotConfigured(t *testing.T) {
	service := NewService(Stores{})
	if _, err := service.BeginRegistration(context.Background(), "alice"); err == nil {
		t.Fatal("expected error for missing stores")
	}
	if _, err := service.BeginLogin(context.Background()); err == nil {
		t.Fatal("expected error for missing stores")
	}
}

func TestGetUser(t *testing.T) {
	h := newTestHarness(t)
	h.registerUser(t, "user-1", "alice", 0)

	account, err := h.service.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if account.Username != "alice" {
		t.Fatalf("username = %q, want %q", account.Username, "alice")
	}

	if _, err := h.service.GetUser(context.Background(), "missing"); !stderrors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.service.GetUser(context.Background(), "  "); !stderrors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}
}
