package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dethstrobe/applywize2/internal/auth/storage"
	"github.com/dethstrobe/applywize2/internal/auth/user"
	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// GetUser returns the account for a user id.
func (s *Service) GetUser(ctx context.Context, userID string) (user.User, error) {
	if err := s.checkConfigured(); err != nil {
		return user.User{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return user.User{}, storage.ErrNotFound
	}

	account, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	return account, nil
}
