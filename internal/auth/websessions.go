package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// WebSessionTTL bounds how long a browser stays signed in without
// re-running the login ceremony.
const WebSessionTTL = 7 * 24 * time.Hour

// CreateWebSession issues a durable session for an authenticated user.
func (s *Service) CreateWebSession(ctx context.Context, userID string) (storage.WebSession, error) {
	if err := s.checkConfigured(); err != nil {
		return storage.WebSession{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return storage.WebSession{}, errors.New(errors.CodeInvalidInput, "user id is required")
	}

	sessionID, err := s.idGenerator()
	if err != nil {
		return storage.WebSession{}, fmt.Errorf("generate session id: %w", err)
	}
	now := s.clock().UTC()
	session := storage.WebSession{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(WebSessionTTL),
	}
	if err := s.webSessions.PutWebSession(ctx, session); err != nil {
		return storage.WebSession{}, fmt.Errorf("store web session: %w", err)
	}
	return session, nil
}

// GetActiveWebSession resolves a session id to a live session.
//
// Expired and revoked sessions report not found so callers treat every dead
// session the same way they treat a forged id.
func (s *Service) GetActiveWebSession(ctx context.Context, sessionID string) (storage.WebSession, error) {
	if err := s.checkConfigured(); err != nil {
		return storage.WebSession{}, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return storage.WebSession{}, storage.ErrNotFound
	}

	session, err := s.webSessions.GetWebSession(ctx, sessionID)
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			return storage.WebSession{}, storage.ErrNotFound
		}
		return storage.WebSession{}, fmt.Errorf("load web session: %w", err)
	}
	if session.RevokedAt != nil {
		return storage.WebSession{}, storage.ErrNotFound
	}
	if !session.ExpiresAt.After(s.clock().UTC()) {
		return storage.WebSession{}, storage.ErrNotFound
	}
	return session, nil
}

// RevokeWebSession ends a session. Revoking an unknown session succeeds so
// logout stays idempotent.
func (s *Service) RevokeWebSession(ctx context.Context, sessionID string) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}

	err := s.webSessions.RevokeWebSession(ctx, sessionID, s.clock().UTC())
	if err != nil && errors.GetCode(err) != errors.CodeNotFound {
		return fmt.Errorf("revoke web session: %w", err)
	}
	return nil
}
