package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/dethstrobe/applywize2/internal/tracker/storage"
)

const listContactsByCompanyQuery = `
SELECT id, company_id, first_name, last_name, email, role, created_at, updated_at
FROM contacts
WHERE company_id = ?
ORDER BY created_at, id;
`

const deleteCompanyContactsQuery = `
DELETE FROM contacts WHERE company_id = ?;
`

const insertContactQuery = `
INSERT INTO contacts (id, company_id, first_name, last_name, email, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(email) DO NOTHING;
`

// ListContactsByCompany fetches a company's contacts in creation order.
func (s *Store) ListContactsByCompany(ctx context.Context, companyID string) ([]storage.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("company id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, listContactsByCompanyQuery, companyID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var contacts []storage.Contact
	for rows.Next() {
		var contact storage.Contact
		var createdAt, updatedAt int64
		if err := rows.Scan(
			&contact.ID,
			&contact.CompanyID,
			&contact.FirstName,
			&contact.LastName,
			&contact.Email,
			&contact.Role,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contact.CreatedAt = fromMillis(createdAt)
		contact.UpdatedAt = fromMillis(updatedAt)
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// ReplaceCompanyContacts swaps a company's contact list in one transaction.
//
// An email claimed by another company's contact silently drops that row; the
// unique constraint decides, not the caller.
func (s *Store) ReplaceCompanyContacts(ctx context.Context, companyID string, contacts []storage.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(companyID) == "" {
		return fmt.Errorf("company id is required")
	}
	for _, contact := range contacts {
		if strings.TrimSpace(contact.ID) == "" {
			return fmt.Errorf("contact id is required")
		}
		if strings.TrimSpace(contact.Email) == "" {
			return fmt.Errorf("contact email is required")
		}
		if contact.CompanyID != companyID {
			return fmt.Errorf("contact company id must match")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, deleteCompanyContactsQuery, companyID); err != nil {
		return fmt.Errorf("delete contacts: %w", err)
	}
	for _, contact := range contacts {
		if _, err := tx.ExecContext(ctx, insertContactQuery,
			contact.ID,
			contact.CompanyID,
			contact.FirstName,
			contact.LastName,
			contact.Email,
			contact.Role,
			toMillis(contact.CreatedAt),
			toMillis(contact.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contacts: %w", err)
	}
	return nil
}
