package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/tracker/storage"
)

const putApplicationQuery = `
INSERT INTO applications (
	id, user_id, status_id, company_id, salary_min, salary_max,
	date_applied, job_title, job_description, posting_url, archived,
	created_at, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status_id = excluded.status_id,
	company_id = excluded.company_id,
	salary_min = excluded.salary_min,
	salary_max = excluded.salary_max,
	date_applied = excluded.date_applied,
	job_title = excluded.job_title,
	job_description = excluded.job_description,
	posting_url = excluded.posting_url,
	archived = excluded.archived,
	updated_at = excluded.updated_at;
`

const getApplicationQuery = `
SELECT id, user_id, status_id, company_id, salary_min, salary_max,
	date_applied, job_title, job_description, posting_url, archived,
	created_at, updated_at
FROM applications
WHERE id = ?;
`

const listApplicationsByUserQuery = `
SELECT id, user_id, status_id, company_id, salary_min, salary_max,
	date_applied, job_title, job_description, posting_url, archived,
	created_at, updated_at
FROM applications
WHERE user_id = ? AND archived = ?
ORDER BY date_applied DESC, created_at DESC;
`

const deleteApplicationQuery = `
DELETE FROM applications WHERE id = ?;
`

const setApplicationArchivedQuery = `
UPDATE applications SET archived = ?, updated_at = ? WHERE id = ?;
`

// PutApplication persists an application, replacing mutable fields on replays.
func (s *Store) PutApplication(ctx context.Context, application storage.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(application.ID) == "" {
		return fmt.Errorf("application id is required")
	}
	if strings.TrimSpace(application.UserID) == "" {
		return fmt.Errorf("application user id is required")
	}
	if strings.TrimSpace(application.CompanyID) == "" {
		return fmt.Errorf("application company id is required")
	}
	if application.StatusID == 0 {
		return fmt.Errorf("application status id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, putApplicationQuery,
		application.ID,
		application.UserID,
		application.StatusID,
		application.CompanyID,
		nullableInt64(application.SalaryMin),
		nullableInt64(application.SalaryMax),
		toMillis(application.DateApplied),
		application.JobTitle,
		application.JobDescription,
		application.PostingURL,
		application.Archived,
		toMillis(application.CreatedAt),
		toMillis(application.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put application: %w", err)
	}
	return nil
}

// GetApplication fetches an application by id.
func (s *Store) GetApplication(ctx context.Context, id string) (storage.Application, error) {
	if err := ctx.Err(); err != nil {
		return storage.Application{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Application{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.Application{}, fmt.Errorf("application id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, getApplicationQuery, id)
	application, err := scanApplication(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Application{}, storage.ErrNotFound
		}
		return storage.Application{}, err
	}
	return application, nil
}

// ListApplicationsByUser fetches one side of the archive partition for a user,
// most recently applied first.
func (s *Store) ListApplicationsByUser(ctx context.Context, userID string, archived bool) ([]storage.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, listApplicationsByUserQuery, userID, archived)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var applications []storage.Application
	for rows.Next() {
		application, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return applications, nil
}

// DeleteApplication removes an application row.
func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("application id is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, deleteApplicationQuery, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// SetApplicationArchived toggles the archive flag.
func (s *Store) SetApplicationArchived(ctx context.Context, id string, archived bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("application id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, setApplicationArchivedQuery, archived, toMillis(now), id)
	if err != nil {
		return fmt.Errorf("set application archived: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set application archived rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanApplication(scan func(dest ...any) error) (storage.Application, error) {
	var application storage.Application
	var salaryMin, salaryMax sql.NullInt64
	var dateApplied, createdAt, updatedAt int64
	if err := scan(
		&application.ID,
		&application.UserID,
		&application.StatusID,
		&application.CompanyID,
		&salaryMin,
		&salaryMax,
		&dateApplied,
		&application.JobTitle,
		&application.JobDescription,
		&application.PostingURL,
		&application.Archived,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Application{}, sql.ErrNoRows
		}
		return storage.Application{}, fmt.Errorf("scan application: %w", err)
	}
	if salaryMin.Valid {
		value := salaryMin.Int64
		application.SalaryMin = &value
	}
	if salaryMax.Valid {
		value := salaryMax.Int64
		application.SalaryMax = &value
	}
	application.DateApplied = fromMillis(dateApplied)
	application.CreatedAt = fromMillis(createdAt)
	application.UpdatedAt = fromMillis(updatedAt)
	return application, nil
}

func nullableInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}
