// Package storage defines persistence contracts for the application tracker.
package storage

import (
	"context"
	"time"

	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// Status is one stage of the application pipeline. The five stages are seeded
// by migration and never change at runtime.
type Status struct {
	ID   int
	Name string
}

// Company is an employer an application targets. Names are unique so repeated
// applications to the same employer share one row.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is a person attached to a company. Emails are unique across all
// companies.
type Contact struct {
	ID        string
	CompanyID string
	FirstName string
	LastName  string
	Email     string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Application is one tracked job application owned by a user.
type Application struct {
	ID             string
	UserID         string
	StatusID       int
	CompanyID      string
	SalaryMin      *int64
	SalaryMax      *int64
	DateApplied    time.Time
	JobTitle       string
	JobDescription string
	PostingURL     string
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CompanyStore persists employer records.
type CompanyStore interface {
	PutCompany(ctx context.Context, company Company) error
	GetCompany(ctx context.Context, id string) (Company, error)
	GetCompanyByName(ctx context.Context, name string) (Company, error)
}

// ContactStore persists company contacts.
type ContactStore interface {
	ListContactsByCompany(ctx context.Context, companyID string) ([]Contact, error)
	// ReplaceCompanyContacts swaps a company's contact list in one
	// transaction. Contacts whose email is already claimed elsewhere are
	// skipped rather than failing the whole write.
	ReplaceCompanyContacts(ctx context.Context, companyID string, contacts []Contact) error
}

// ApplicationStore persists job applications.
type ApplicationStore interface {
	PutApplication(ctx context.Context, application Application) error
	GetApplication(ctx context.Context, id string) (Application, error)
	ListApplicationsByUser(ctx context.Context, userID string, archived bool) ([]Application, error)
	DeleteApplication(ctx context.Context, id string) error
	SetApplicationArchived(ctx context.Context, id string, archived bool, now time.Time) error
}

// StatusStore reads the seeded pipeline stages.
type StatusStore interface {
	ListStatuses(ctx context.Context) ([]Status, error)
	GetStatus(ctx context.Context, id int) (Status, error)
}
