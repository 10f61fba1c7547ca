package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dethstrobe/applywize2/internal/tracker/storage"
)

const listStatusesQuery = `
SELECT id, name FROM statuses ORDER BY id;
`

const getStatusQuery = `
SELECT id, name FROM statuses WHERE id = ?;
`

// ListStatuses returns the seeded pipeline stages in order.
func (s *Store) ListStatuses(ctx context.Context) ([]storage.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, listStatusesQuery)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var statuses []storage.Status
	for rows.Next() {
		var status storage.Status
		if err := rows.Scan(&status.ID, &status.Name); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statuses: %w", err)
	}
	return statuses, nil
}

// GetStatus fetches one pipeline stage by id.
func (s *Store) GetStatus(ctx context.Context, id int) (storage.Status, error) {
	if err := ctx.Err(); err != nil {
		return storage.Status{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Status{}, fmt.Errorf("storage is not configured")
	}

	var status storage.Status
	if err := s.sqlDB.QueryRowContext(ctx, getStatusQuery, id).Scan(&status.ID, &status.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Status{}, storage.ErrNotFound
		}
		return storage.Status{}, fmt.Errorf("scan status: %w", err)
	}
	return status, nil
}
