package auth

import (
	"context"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dethstrobe/applywize2/internal/auth/passkey"
	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// RegistrationChallenge carries everything the browser needs to run
// navigator.credentials.create and correlate the answer back to the server.
type RegistrationChallenge struct {
	CeremonyID  string
	OptionsJSON []byte
}

// BeginRegistration reserves a username and starts a passkey enrollment.
//
// The user row is not created here. The candidate identity lives only in the
// ceremony row until the browser proves possession of the new credential, so
// abandoned sign-ups leave no users behind.
func (s *Service) BeginRegistration(ctx context.Context, username string) (RegistrationChallenge, error) {
	if err := s.checkConfigured(); err != nil {
		return RegistrationChallenge{}, err
	}

	minted, err := user.New(username, s.clock, s.idGenerator)
	if err != nil {
		return RegistrationChallenge{}, err
	}

	_, err = s.users.GetUserByUsername(ctx, minted.Username)
	switch {
	case err == nil:
		return RegistrationChallenge{}, errors.WithMetadata(errors.CodeUsernameTaken, "username already registered", map[string]string{"username": minted.Username})
	case errors.GetCode(err) != errors.CodeNotFound:
		return RegistrationChallenge{}, fmt.Errorf("check username: %w", err)
	}

	candidate := &ceremonyUser{id: minted.ID, username: minted.Username}

	creation, session, err := s.webAuthn.BeginRegistration(candidate,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	)
	if err != nil {
		return RegistrationChallenge{}, fmt.Errorf("begin registration: %w", err)
	}

	ceremonyID, err := s.putCeremony(ctx, passkey.CeremonyKindRegistration, minted.ID, minted.Username, session)
	if err != nil {
		return RegistrationChallenge{}, err
	}

	optionsJSON, err := marshalOptions(creation)
	if err != nil {
		return RegistrationChallenge{}, fmt.Errorf("encode registration options: %w", err)
	}
	return RegistrationChallenge{CeremonyID: ceremonyID, OptionsJSON: optionsJSON}, nil
}

// FinishRegistration verifies the authenticator attestation and creates the
// user together with its credential.
//
// A finished registration does not sign the browser in. The caller is sent
// through the login ceremony so the first session is produced by the same
// path as every later one.
func (s *Service) FinishRegistration(ctx context.Context, ceremonyID string, credentialResponse []byte) (user.User, error) {
	if err := s.checkConfigured(); err != nil {
		return user.User{}, err
	}
	if len(credentialResponse) == 0 {
		return user.User{}, errors.New(errors.CodeInvalidInput, "credential response is required")
	}

	ceremony, err := s.loadCeremony(ctx, ceremonyID, passkey.CeremonyKindRegistration)
	if err != nil {
		return user.User{}, err
	}
	if ceremony.UserID == "" || ceremony.Username == "" {
		return user.User{}, fmt.Errorf("registration ceremony missing candidate identity")
	}

	parsed, err := s.parser.ParseCredentialCreationResponseBytes(credentialResponse)
	if err != nil {
		return user.User{}, errors.Wrap(errors.CodeInvalidInput, "parse credential response", err)
	}

	candidate := &ceremonyUser{id: ceremony.UserID, username: ceremony.Username}
	credential, err := s.webAuthn.CreateCredential(candidate, ceremony.Data, parsed)
	if err != nil {
		return user.User{}, errors.Wrap(errors.CodeVerificationFailed, "verify credential response", err)
	}

	now := s.clock().UTC()
	created := user.User{
		ID:        ceremony.UserID,
		Username:  ceremony.Username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	recordID, err := s.idGenerator()
	if err != nil {
		return user.User{}, fmt.Errorf("generate credential id: %w", err)
	}
	record := storage.Credential{
		ID:           recordID,
		UserID:       created.ID,
		CredentialID: encodeCredentialID(credential.ID),
		PublicKey:    credential.PublicKey,
		Counter:      credential.Authenticator.SignCount,
		Transports:   transportStrings(credential.Transport),
		CreatedAt:    now,
	}

	// Losing the username race between begin and finish surfaces here as a
	// duplicate, carrying its own error code.
	if err := s.credentials.CreateUserWithCredential(ctx, created, record); err != nil {
		return user.User{}, err
	}
	return created, nil
}
