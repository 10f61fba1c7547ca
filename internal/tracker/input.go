package tracker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dethstrobe/applywize2/internal/platform/errors"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ContactInput is one person on the application form.
type ContactInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

func (in ContactInput) isEmpty() bool {
	return in.FirstName == "" && in.LastName == "" && in.Email == "" && in.Role == ""
}

// ApplicationInput is the validated boundary between form input and the
// tracker domain. Handlers build it from raw form values; the service only
// accepts it after validation.
type ApplicationInput struct {
	CompanyName    string
	StatusID       int
	SalaryMin      *int64
	SalaryMax      *int64
	DateApplied    time.Time
	JobTitle       string
	JobDescription string
	PostingURL     string
	Contacts       []ContactInput
}

// normalize trims free-text fields and drops fully empty contact rows, which
// the form submits for unused slots.
func (in ApplicationInput) normalize() ApplicationInput {
	out := in
	out.CompanyName = strings.TrimSpace(in.CompanyName)
	out.JobTitle = strings.TrimSpace(in.JobTitle)
	out.JobDescription = strings.TrimSpace(in.JobDescription)
	out.PostingURL = strings.TrimSpace(in.PostingURL)
	out.Contacts = nil
	for _, contact := range in.Contacts {
		trimmed := ContactInput{
			FirstName: strings.TrimSpace(contact.FirstName),
			LastName:  strings.TrimSpace(contact.LastName),
			Email:     strings.ToLower(strings.TrimSpace(contact.Email)),
			Role:      strings.TrimSpace(contact.Role),
		}
		if trimmed.isEmpty() {
			continue
		}
		out.Contacts = append(out.Contacts, trimmed)
	}
	return out
}

// validate reports every field problem at once so the form can render them
// together.
func (in ApplicationInput) validate() error {
	fields := make(map[string]string)
	if in.CompanyName == "" {
		fields["company_name"] = "company name is required"
	}
	if in.JobTitle == "" {
		fields["job_title"] = "job title is required"
	}
	if in.StatusID < 1 {
		fields["status_id"] = "status is required"
	}
	if in.DateApplied.IsZero() {
		fields["date_applied"] = "date applied is required"
	}
	if in.SalaryMin != nil && *in.SalaryMin < 0 {
		fields["salary_min"] = "salary must not be negative"
	}
	if in.SalaryMax != nil && *in.SalaryMax < 0 {
		fields["salary_max"] = "salary must not be negative"
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		fields["salary_max"] = "maximum salary must not be below the minimum"
	}
	for i, contact := range in.Contacts {
		if contact.Email == "" {
			fields[fmt.Sprintf("contacts.%d.email", i)] = "contact email is required"
			continue
		}
		if !emailPattern.MatchString(contact.Email) {
			fields[fmt.Sprintf("contacts.%d.email", i)] = "contact email is invalid"
		}
	}
	if len(fields) > 0 {
		return errors.WithMetadata(errors.CodeInvalidInput, "invalid application input", fields)
	}
	return nil
}

// FieldErrors extracts per-field messages from a validation error, or nil for
// other errors.
func FieldErrors(err error) map[string]string {
	if errors.GetCode(err) != errors.CodeInvalidInput {
		return nil
	}
	return errors.GetMetadata(err)
}
