// Package user provides the auth user domain model.
package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/platform/id"
)

var (
	// ErrEmptyUsername indicates a missing username.
	ErrEmptyUsername = apperrors.New(apperrors.CodeInvalidInput, "username is required")
	// ErrInvalidUsername indicates a username that does not match the required format.
	ErrInvalidUsername = apperrors.New(apperrors.CodeInvalidInput, "username must be 3-32 lowercase alphanumeric, dot, dash, or underscore characters")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_.\-]{3,32}$`)
)

// User represents an authenticated identity record.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeUsername trims and lowercases a candidate username, then validates it.
//
// This is the single point where untrusted form input becomes the canonical
// username compared against stored identities.
func NormalizeUsername(s string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", ErrEmptyUsername
	}
	if !usernamePattern.MatchString(normalized) {
		return "", ErrInvalidUsername
	}
	return normalized, nil
}

// New creates a user identity from a normalized username.
func New(username string, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeUsername(username)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:        userID,
		Username:  normalized,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}
