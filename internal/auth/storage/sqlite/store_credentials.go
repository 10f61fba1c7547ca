package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
)

const insertCredentialQuery = `
INSERT INTO credentials (id, user_id, credential_id, public_key, counter, transports, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`

const getCredentialByCredentialIDQuery = `
SELECT id, user_id, credential_id, public_key, counter, transports, created_at
FROM credentials
WHERE credential_id = ?;
`

const getCredentialByUserIDQuery = `
SELECT id, user_id, credential_id, public_key, counter, transports, created_at
FROM credentials
WHERE user_id = ?;
`

const updateCredentialCounterQuery = `
UPDATE credentials
SET counter = ?
WHERE id = ? AND counter = ?;
`

// CreateUserWithCredential atomically stores a new user and its credential.
//
// Registration is the only writer of both tables, and a partial write would
// strand a username without a usable passkey, so both inserts share one
// transaction.
func (s *Store) CreateUserWithCredential(ctx context.Context, u user.User, credential storage.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(credential.ID) == "" {
		return fmt.Errorf("credential record id is required")
	}
	if strings.TrimSpace(credential.CredentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	if len(credential.PublicKey) == 0 {
		return fmt.Errorf("credential public key is required")
	}
	if credential.UserID != u.ID {
		return fmt.Errorf("credential user id must match user")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, putUserQuery,
		u.ID,
		u.Username,
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateUsername
		}
		return fmt.Errorf("put user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertCredentialQuery,
		credential.ID,
		credential.UserID,
		credential.CredentialID,
		credential.PublicKey,
		int64(credential.Counter),
		strings.Join(credential.Transports, ","),
		toMillis(credential.CreatedAt),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrDuplicateCredential
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user with credential: %w", err)
	}
	return nil
}

// GetCredentialByCredentialID fetches a credential by the authenticator-issued id.
func (s *Store) GetCredentialByCredentialID(ctx context.Context, credentialID string) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Credential{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return storage.Credential{}, fmt.Errorf("credential id is required")
	}
	return scanCredential(s.sqlDB.QueryRowContext(ctx, getCredentialByCredentialIDQuery, credentialID))
}

// GetCredentialByUserID fetches the single credential owned by a user.
func (s *Store) GetCredentialByUserID(ctx context.Context, userID string) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Credential{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return storage.Credential{}, fmt.Errorf("user id is required")
	}
	return scanCredential(s.sqlDB.QueryRowContext(ctx, getCredentialByUserIDQuery, userID))
}

// UpdateCredentialCounter performs a compare-and-set on the signature counter.
//
// The WHERE clause pins the previously read value so two concurrent login
// finishes cannot both pass the counter-increase check against a stale read.
func (s *Store) UpdateCredentialCounter(ctx context.Context, id string, expectedOldCounter, newCounter uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("credential record id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, updateCredentialCounterQuery,
		int64(newCounter),
		id,
		int64(expectedOldCounter),
	)
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential counter rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrCounterConflict
	}
	return nil
}

func scanCredential(row *sql.Row) (storage.Credential, error) {
	var credential storage.Credential
	var counter int64
	var transports string
	var createdAt int64
	if err := row.Scan(
		&credential.ID,
		&credential.UserID,
		&credential.CredentialID,
		&credential.PublicKey,
		&counter,
		&transports,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, storage.ErrNotFound
		}
		return storage.Credential{}, fmt.Errorf("scan credential: %w", err)
	}
	credential.Counter = uint32(counter)
	if transports != "" {
		credential.Transports = strings.Split(transports, ",")
	}
	credential.CreatedAt = fromMillis(createdAt)
	return credential, nil
}

// isUniqueConstraintError detects SQLite unique constraint violations.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
