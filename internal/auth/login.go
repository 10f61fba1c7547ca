package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dethstrobe/applywize2/internal/auth/passkey"
	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// LoginChallenge carries the assertion options for
// navigator.credentials.get plus the correlation id for the finish call.
type LoginChallenge struct {
	CeremonyID  string
	OptionsJSON []byte
}

// LoginResult is the outcome of a verified login ceremony.
type LoginResult struct {
	User    user.User
	Session storage.WebSession
}

// BeginLogin starts a discoverable passkey login.
//
// No username is collected. The browser offers whichever resident credentials
// it holds for this relying party and the user handle identifies the account.
func (s *Service) BeginLogin(ctx context.Context) (LoginChallenge, error) {
	if err := s.checkConfigured(); err != nil {
		return LoginChallenge{}, err
	}

	assertion, session, err := s.webAuthn.BeginDiscoverableLogin()
	if err != nil {
		return LoginChallenge{}, fmt.Errorf("begin login: %w", err)
	}

	ceremonyID, err := s.putCeremony(ctx, passkey.CeremonyKindLogin, "", "", session)
	if err != nil {
		return LoginChallenge{}, err
	}

	optionsJSON, err := marshalOptions(assertion)
	if err != nil {
		return LoginChallenge{}, fmt.Errorf("encode login options: %w", err)
	}
	return LoginChallenge{CeremonyID: ceremonyID, OptionsJSON: optionsJSON}, nil
}

// FinishLogin verifies an assertion, advances the signature counter, and
// issues a web session.
func (s *Service) FinishLogin(ctx context.Context, ceremonyID string, credentialResponse []byte) (LoginResult, error) {
	if err := s.checkConfigured(); err != nil {
		return LoginResult{}, err
	}
	if len(credentialResponse) == 0 {
		return LoginResult{}, errors.New(errors.CodeInvalidInput, "credential response is required")
	}

	ceremony, err := s.loadCeremony(ctx, ceremonyID, passkey.CeremonyKindLogin)
	if err != nil {
		return LoginResult{}, err
	}

	parsed, err := s.parser.ParseCredentialRequestResponseBytes(credentialResponse)
	if err != nil {
		return LoginResult{}, errors.Wrap(errors.CodeInvalidInput, "parse credential response", err)
	}

	var matched storage.Credential
	var account user.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		record, err := s.credentials.GetCredentialByCredentialID(ctx, encodeCredentialID(rawID))
		if err != nil {
			if errors.GetCode(err) == errors.CodeNotFound {
				return nil, errors.New(errors.CodeUnknownCredential, "credential is not registered")
			}
			return nil, fmt.Errorf("load credential: %w", err)
		}
		if handle := strings.TrimSpace(string(userHandle)); handle != "" && handle != record.UserID {
			return nil, errors.New(errors.CodeUnknownCredential, "credential does not belong to user handle")
		}
		owner, err := s.users.GetUser(ctx, record.UserID)
		if err != nil {
			return nil, fmt.Errorf("load credential owner: %w", err)
		}
		webAuthnCredential, err := credentialFromRecord(record)
		if err != nil {
			return nil, err
		}
		matched = record
		account = owner
		return &ceremonyUser{
			id:          owner.ID,
			username:    owner.Username,
			credentials: []webauthn.Credential{webAuthnCredential},
		}, nil
	}

	_, validated, err := s.webAuthn.ValidatePasskeyLogin(handler, ceremony.Data, parsed)
	if err != nil {
		if errors.GetCode(err) != errors.CodeUnknown {
			return LoginResult{}, err
		}
		return LoginResult{}, errors.Wrap(errors.CodeVerificationFailed, "verify login assertion", err)
	}
	if matched.ID == "" {
		return LoginResult{}, fmt.Errorf("login validation produced no credential")
	}

	if err := s.advanceCounter(ctx, matched, validated); err != nil {
		return LoginResult{}, err
	}

	session, err := s.CreateWebSession(ctx, account.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: account, Session: session}, nil
}

// advanceCounter enforces the strictly-increasing signature counter rule.
//
// Authenticators that never count report zero forever; that pair is the only
// non-increase accepted. The update pins the previously read value so two
// concurrent finishes cannot both claim the same increment.
func (s *Service) advanceCounter(ctx context.Context, record storage.Credential, validated *webauthn.Credential) error {
	newCounter := validated.Authenticator.SignCount
	if newCounter == 0 && record.Counter == 0 && !validated.Authenticator.CloneWarning {
		return nil
	}
	if validated.Authenticator.CloneWarning || newCounter <= record.Counter {
		return errors.WithMetadata(errors.CodeCounterRegression, "signature counter did not increase", map[string]string{
			"stored":   fmt.Sprintf("%d", record.Counter),
			"asserted": fmt.Sprintf("%d", newCounter),
		})
	}
	if err := s.credentials.UpdateCredentialCounter(ctx, record.ID, record.Counter, newCounter); err != nil {
		if errors.GetCode(err) == errors.CodeConflict {
			return errors.Wrap(errors.CodeCounterRegression, "signature counter advanced concurrently", err)
		}
		return fmt.Errorf("advance signature counter: %w", err)
	}
	return nil
}
