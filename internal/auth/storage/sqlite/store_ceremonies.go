package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/auth/storage"
)

const putCeremonyQuery = `
INSERT INTO ceremonies (id, kind, user_id, username, session_json, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind = excluded.kind,
	user_id = excluded.user_id,
	username = excluded.username,
	session_json = excluded.session_json,
	expires_at = excluded.expires_at;
`

const getCeremonyQuery = `
SELECT id, kind, user_id, username, session_json, expires_at
FROM ceremonies
WHERE id = ?;
`

const deleteCeremonyQuery = `
DELETE FROM ceremonies WHERE id = ?;
`

const deleteExpiredCeremoniesQuery = `
DELETE FROM ceremonies WHERE expires_at <= ?;
`

// PutCeremony stores or replaces an in-flight ceremony row.
func (s *Store) PutCeremony(ctx context.Context, ceremony storage.Ceremony) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(ceremony.ID) == "" {
		return fmt.Errorf("ceremony id is required")
	}
	if strings.TrimSpace(ceremony.Kind) == "" {
		return fmt.Errorf("ceremony kind is required")
	}
	if strings.TrimSpace(ceremony.SessionJSON) == "" {
		return fmt.Errorf("ceremony session is required")
	}
	if ceremony.ExpiresAt.IsZero() {
		return fmt.Errorf("ceremony expiry is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, putCeremonyQuery,
		ceremony.ID,
		ceremony.Kind,
		ceremony.UserID,
		ceremony.Username,
		ceremony.SessionJSON,
		toMillis(ceremony.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put ceremony: %w", err)
	}
	return nil
}

// GetCeremony fetches an in-flight ceremony by id.
func (s *Store) GetCeremony(ctx context.Context, id string) (storage.Ceremony, error) {
	if err := ctx.Err(); err != nil {
		return storage.Ceremony{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Ceremony{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.Ceremony{}, fmt.Errorf("ceremony id is required")
	}

	var ceremony storage.Ceremony
	var expiresAt int64
	err := s.sqlDB.QueryRowContext(ctx, getCeremonyQuery, id).Scan(
		&ceremony.ID,
		&ceremony.Kind,
		&ceremony.UserID,
		&ceremony.Username,
		&ceremony.SessionJSON,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Ceremony{}, storage.ErrNotFound
		}
		return storage.Ceremony{}, fmt.Errorf("get ceremony: %w", err)
	}
	ceremony.ExpiresAt = fromMillis(expiresAt)
	return ceremony, nil
}

// DeleteCeremony removes a ceremony row, enforcing single use.
func (s *Store) DeleteCeremony(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("ceremony id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, deleteCeremonyQuery, id); err != nil {
		return fmt.Errorf("delete ceremony: %w", err)
	}
	return nil
}

// DeleteExpiredCeremonies removes every ceremony that expired at or before now.
func (s *Store) DeleteExpiredCeremonies(ctx context.Context, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, deleteExpiredCeremoniesQuery, toMillis(now)); err != nil {
		return fmt.Errorf("delete expired ceremonies: %w", err)
	}
	return nil
}
