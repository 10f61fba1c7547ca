package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/platform/id"
	"github.com/dethstrobe/applywize2/internal/tracker/storage"
)

// Details is an application joined with its company, status, and the
// company's contacts. It is what the list and detail pages render.
type Details struct {
	Application storage.Application
	Company     storage.Company
	Status      storage.Status
	Contacts    []storage.Contact
}

// Service drives the application tracker domain.
type Service struct {
	applications storage.ApplicationStore
	companies    storage.CompanyStore
	contacts     storage.ContactStore
	statuses     storage.StatusStore
	clock        func() time.Time
	idGenerator  func() (string, error)
}

// Stores groups the persistence dependencies of the service.
type Stores struct {
	Applications storage.ApplicationStore
	Companies    storage.CompanyStore
	Contacts     storage.ContactStore
	Statuses     storage.StatusStore
}

// NewService builds a tracker service with defaults for the package.
func NewService(stores Stores) *Service {
	return &Service{
		applications: stores.Applications,
		companies:    stores.Companies,
		contacts:     stores.Contacts,
		statuses:     stores.Statuses,
		clock:        time.Now,
		idGenerator:  id.NewID,
	}
}

func (s *Service) checkConfigured() error {
	if s == nil {
		return fmt.Errorf("tracker service is not configured")
	}
	if s.applications == nil || s.companies == nil || s.contacts == nil || s.statuses == nil {
		return fmt.Errorf("tracker storage is not configured")
	}
	return nil
}

// Statuses returns the pipeline stages for form rendering.
func (s *Service) Statuses(ctx context.Context) ([]storage.Status, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}
	return s.statuses.ListStatuses(ctx)
}

// CreateApplication validates input, resolves the company by name, and stores
// a new application owned by userID.
func (s *Service) CreateApplication(ctx context.Context, userID string, input ApplicationInput) (Details, error) {
	if err := s.checkConfigured(); err != nil {
		return Details{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return Details{}, errors.New(errors.CodeInvalidInput, "user id is required")
	}

	input = input.normalize()
	if err := input.validate(); err != nil {
		return Details{}, err
	}
	status, err := s.statuses.GetStatus(ctx, input.StatusID)
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			return Details{}, errors.New(errors.CodeInvalidStatus, "unknown application status")
		}
		return Details{}, fmt.Errorf("resolve status: %w", err)
	}

	now := s.clock().UTC()
	company, err := s.upsertCompanyByName(ctx, input.CompanyName, now)
	if err != nil {
		return Details{}, err
	}

	applicationID, err := s.idGenerator()
	if err != nil {
		return Details{}, fmt.Errorf("generate application id: %w", err)
	}
	application := storage.Application{
		ID:             applicationID,
		UserID:         userID,
		StatusID:       status.ID,
		CompanyID:      company.ID,
		SalaryMin:      input.SalaryMin,
		SalaryMax:      input.SalaryMax,
		DateApplied:    input.DateApplied.UTC(),
		JobTitle:       input.JobTitle,
		JobDescription: input.JobDescription,
		PostingURL:     input.PostingURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.applications.PutApplication(ctx, application); err != nil {
		return Details{}, fmt.Errorf("store application: %w", err)
	}

	contacts, err := s.mergeCompanyContacts(ctx, company.ID, input.Contacts, now)
	if err != nil {
		return Details{}, err
	}
	return Details{Application: application, Company: company, Status: status, Contacts: contacts}, nil
}

// ListApplications returns one side of the archive partition for a user.
func (s *Service) ListApplications(ctx context.Context, userID string, archived bool) ([]Details, error) {
	if err := s.checkConfigured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New(errors.CodeInvalidInput, "user id is required")
	}

	applications, err := s.applications.ListApplicationsByUser(ctx, userID, archived)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	details := make([]Details, 0, len(applications))
	for _, application := range applications {
		detail, err := s.loadDetails(ctx, application)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// GetApplication returns one application with relations, enforcing ownership.
func (s *Service) GetApplication(ctx context.Context, userID, applicationID string) (Details, error) {
	if err := s.checkConfigured(); err != nil {
		return Details{}, err
	}
	application, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return Details{}, err
	}
	return s.loadDetails(ctx, application)
}

// UpdateApplication revalidates input and rewrites an owned application.
//
// Company handling follows the original tracker: when the submitted name
// matches another company, the application moves to it; otherwise the current
// company is renamed in place. Contact rows are rebuilt, but a contact whose
// email already existed keeps its original creation time.
func (s *Service) UpdateApplication(ctx context.Context, userID, applicationID string, input ApplicationInput) (Details, error) {
	if err := s.checkConfigured(); err != nil {
		return Details{}, err
	}
	application, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return Details{}, err
	}

	input = input.normalize()
	if err := input.validate(); err != nil {
		return Details{}, err
	}
	status, err := s.statuses.GetStatus(ctx, input.StatusID)
	if err != nil {
		if errors.GetCode(err) == errors.CodeNotFound {
			return Details{}, errors.New(errors.CodeInvalidStatus, "unknown application status")
		}
		return Details{}, fmt.Errorf("resolve status: %w", err)
	}

	now := s.clock().UTC()
	company, err := s.retargetCompany(ctx, application.CompanyID, input.CompanyName, now)
	if err != nil {
		return Details{}, err
	}

	application.StatusID = status.ID
	application.CompanyID = company.ID
	application.SalaryMin = input.SalaryMin
	application.SalaryMax = input.SalaryMax
	application.DateApplied = input.DateApplied.UTC()
	application.JobTitle = input.JobTitle
	application.JobDescription = input.JobDescription
	application.PostingURL = input.PostingURL
	application.UpdatedAt = now
	if err := s.applications.PutApplication(ctx, application); err != nil {
		return Details{}, fmt.Errorf("store application: %w", err)
	}

	contacts, err := s.replaceCompanyContacts(ctx, company.ID, input.Contacts, now)
	if err != nil {
		return Details{}, err
	}
	return Details{Application: application, Company: company, Status: status, Contacts: contacts}, nil
}

// DeleteApplication removes an owned application.
func (s *Service) DeleteApplication(ctx context.Context, userID, applicationID string) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	application, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return err
	}
	if err := s.applications.DeleteApplication(ctx, application.ID); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// SetArchived toggles the archive flag on an owned application.
func (s *Service) SetArchived(ctx context.Context, userID, applicationID string, archived bool) error {
	if err := s.checkConfigured(); err != nil {
		return err
	}
	application, err := s.getOwnedApplication(ctx, userID, applicationID)
	if err != nil {
		return err
	}
	if err := s.applications.SetApplicationArchived(ctx, application.ID, archived, s.clock().UTC()); err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}

func (s *Service) getOwnedApplication(ctx context.Context, userID, applicationID string) (storage.Application, error) {
	if strings.TrimSpace(userID) == "" {
		return storage.Application{}, errors.New(errors.CodeInvalidInput, "user id is required")
	}
	if strings.TrimSpace(applicationID) == "" {
		return storage.Application{}, storage.ErrNotFound
	}
	application, err := s.applications.GetApplication(ctx, applicationID)
	if err != nil {
		return storage.Application{}, err
	}
	if application.UserID != userID {
		return storage.Application{}, errors.New(errors.CodeApplicationNotOwned, "application belongs to another user")
	}
	return application, nil
}

func (s *Service) loadDetails(ctx context.Context, application storage.Application) (Details, error) {
	company, err := s.companies.GetCompany(ctx, application.CompanyID)
	if err != nil {
		return Details{}, fmt.Errorf("load company: %w", err)
	}
	status, err := s.statuses.GetStatus(ctx, application.StatusID)
	if err != nil {
		return Details{}, fmt.Errorf("load status: %w", err)
	}
	contacts, err := s.contacts.ListContactsByCompany(ctx, application.CompanyID)
	if err != nil {
		return Details{}, fmt.Errorf("load contacts: %w", err)
	}
	return Details{Application: application, Company: company, Status: status, Contacts: contacts}, nil
}

// upsertCompanyByName reuses an existing company row or creates a new one.
func (s *Service) upsertCompanyByName(ctx context.Context, name string, now time.Time) (storage.Company, error) {
	company, err := s.companies.GetCompanyByName(ctx, name)
	switch {
	case err == nil:
		return company, nil
	case errors.GetCode(err) != errors.CodeNotFound:
		return storage.Company{}, fmt.Errorf("resolve company: %w", err)
	}

	companyID, err := s.idGenerator()
	if err != nil {
		return storage.Company{}, fmt.Errorf("generate company id: %w", err)
	}
	company = storage.Company{ID: companyID, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.companies.PutCompany(ctx, company); err != nil {
		return storage.Company{}, fmt.Errorf("store company: %w", err)
	}
	return company, nil
}

// retargetCompany resolves which company an updated application points at.
func (s *Service) retargetCompany(ctx context.Context, currentID, name string, now time.Time) (storage.Company, error) {
	current, err := s.companies.GetCompany(ctx, currentID)
	if err != nil {
		return storage.Company{}, fmt.Errorf("load company: %w", err)
	}
	if current.Name == name {
		return current, nil
	}

	existing, err := s.companies.GetCompanyByName(ctx, name)
	switch {
	case err == nil:
		return existing, nil
	case errors.GetCode(err) != errors.CodeNotFound:
		return storage.Company{}, fmt.Errorf("resolve company: %w", err)
	}

	current.Name = name
	current.UpdatedAt = now
	if err := s.companies.PutCompany(ctx, current); err != nil {
		return storage.Company{}, fmt.Errorf("rename company: %w", err)
	}
	return current, nil
}

// mergeCompanyContacts adds new contacts to a company without disturbing
// existing rows. Emails already present are left untouched.
func (s *Service) mergeCompanyContacts(ctx context.Context, companyID string, inputs []ContactInput, now time.Time) ([]storage.Contact, error) {
	existing, err := s.contacts.ListContactsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, contact := range existing {
		known[contact.Email] = true
	}

	desired := append([]storage.Contact(nil), existing...)
	for _, input := range inputs {
		if known[input.Email] {
			continue
		}
		contact, err := s.newContact(companyID, input, now, now)
		if err != nil {
			return nil, err
		}
		desired = append(desired, contact)
		known[input.Email] = true
	}
	if len(desired) == len(existing) {
		return existing, nil
	}
	if err := s.contacts.ReplaceCompanyContacts(ctx, companyID, desired); err != nil {
		return nil, fmt.Errorf("store contacts: %w", err)
	}
	return desired, nil
}

// replaceCompanyContacts rebuilds a company's contact list from form input,
// preserving creation times for emails that already existed.
func (s *Service) replaceCompanyContacts(ctx context.Context, companyID string, inputs []ContactInput, now time.Time) ([]storage.Contact, error) {
	existing, err := s.contacts.ListContactsByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	createdAtByEmail := make(map[string]time.Time, len(existing))
	for _, contact := range existing {
		createdAtByEmail[contact.Email] = contact.CreatedAt
	}

	desired := make([]storage.Contact, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		if seen[input.Email] {
			continue
		}
		seen[input.Email] = true
		createdAt := now
		if original, ok := createdAtByEmail[input.Email]; ok {
			createdAt = original
		}
		contact, err := s.newContact(companyID, input, createdAt, now)
		if err != nil {
			return nil, err
		}
		desired = append(desired, contact)
	}
	if err := s.contacts.ReplaceCompanyContacts(ctx, companyID, desired); err != nil {
		return nil, fmt.Errorf("store contacts: %w", err)
	}
	return desired, nil
}

func (s *Service) newContact(companyID string, input ContactInput, createdAt, updatedAt time.Time) (storage.Contact, error) {
	contactID, err := s.idGenerator()
	if err != nil {
		return storage.Contact{}, fmt.Errorf("generate contact id: %w", err)
	}
	return storage.Contact{
		ID:        contactID,
		CompanyID: companyID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Role:      input.Role,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
