package maintenance

import (
	"context"
	"time"

	authsqlite "github.com/dethstrobe/applywize2/internal/auth/storage/sqlite"
	trackersqlite "github.com/dethstrobe/applywize2/internal/tracker/storage/sqlite"
)

// authStore is the slice of the auth store the command touches.
type authStore interface {
	DeleteExpiredCeremonies(ctx context.Context, now time.Time) error
	DeleteExpiredWebSessions(ctx context.Context, now time.Time) error
	Vacuum(ctx context.Context) error
	Close() error
}

// trackerStore is the slice of the tracker store the command touches.
type trackerStore interface {
	Vacuum(ctx context.Context) error
	Close() error
}

var openAuthStore = func(path string) (authStore, error) {
	return authsqlite.Open(path)
}

var openTrackerStore = func(path string) (trackerStore, error) {
	return trackersqlite.Open(path)
}
