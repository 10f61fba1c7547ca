package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dethstrobe/applywize2/internal/tracker/storage"
)

const putCompanyQuery = `
INSERT INTO companies (id, name, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	updated_at = excluded.updated_at;
`

const getCompanyQuery = `
SELECT id, name, created_at, updated_at
FROM companies
WHERE id = ?;
`

const getCompanyByNameQuery = `
SELECT id, name, created_at, updated_at
FROM companies
WHERE name = ?;
`

// PutCompany persists a company, renaming on replays.
func (s *Store) PutCompany(ctx context.Context, company storage.Company) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(company.ID) == "" {
		return fmt.Errorf("company id is required")
	}
	if strings.TrimSpace(company.Name) == "" {
		return fmt.Errorf("company name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, putCompanyQuery,
		company.ID,
		company.Name,
		toMillis(company.CreatedAt),
		toMillis(company.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put company: %w", err)
	}
	return nil
}

// GetCompany fetches a company by id.
func (s *Store) GetCompany(ctx context.Context, id string) (storage.Company, error) {
	if err := ctx.Err(); err != nil {
		return storage.Company{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Company{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return storage.Company{}, fmt.Errorf("company id is required")
	}
	return scanCompany(s.sqlDB.QueryRowContext(ctx, getCompanyQuery, id))
}

// GetCompanyByName fetches a company by its unique name.
func (s *Store) GetCompanyByName(ctx context.Context, name string) (storage.Company, error) {
	if err := ctx.Err(); err != nil {
		return storage.Company{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Company{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return storage.Company{}, fmt.Errorf("company name is required")
	}
	return scanCompany(s.sqlDB.QueryRowContext(ctx, getCompanyByNameQuery, name))
}

func scanCompany(row *sql.Row) (storage.Company, error) {
	var company storage.Company
	var createdAt, updatedAt int64
	if err := row.Scan(&company.ID, &company.Name, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Company{}, storage.ErrNotFound
		}
		return storage.Company{}, fmt.Errorf("scan company: %w", err)
	}
	company.CreatedAt = fromMillis(createdAt)
	company.UpdatedAt = fromMillis(updatedAt)
	return company, nil
}
