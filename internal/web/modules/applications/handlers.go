// Package applications serves the authenticated job application pages.
package applications

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/platform/requestctx"
	"github.com/dethstrobe/applywize2/internal/tracker"
	trackerstorage "github.com/dethstrobe/applywize2/internal/tracker/storage"
	"github.com/dethstrobe/applywize2/internal/web/routepath"
	"github.com/dethstrobe/applywize2/internal/web/templates"
)

const dateInputFormat = "2006-01-02"

// TrackerService is the slice of the tracker service the web module uses.
type TrackerService interface {
	Statuses(ctx context.Context) ([]trackerstorage.Status, error)
	CreateApplication(ctx context.Context, userID string, input tracker.ApplicationInput) (tracker.Details, error)
	ListApplications(ctx context.Context, userID string, archived bool) ([]tracker.Details, error)
	GetApplication(ctx context.Context, userID, applicationID string) (tracker.Details, error)
	UpdateApplication(ctx context.Context, userID, applicationID string, input tracker.ApplicationInput) (tracker.Details, error)
	DeleteApplication(ctx context.Context, userID, applicationID string) error
	SetArchived(ctx context.Context, userID, applicationID string, archived bool) error
}

// Handlers serves the application CRUD pages.
type Handlers struct {
	service TrackerService
}

// NewHandlers wires the application web handlers.
func NewHandlers(service TrackerService) Handlers {
	return Handlers{service: service}
}

// Register mounts the application routes on the mux.
func (h Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc(http.MethodGet+" /{$}", h.handleDashboard)
	mux.HandleFunc(http.MethodGet+" "+routepath.Applications, h.handleList)
	mux.HandleFunc(http.MethodPost+" "+routepath.Applications, h.handleCreate)
	mux.HandleFunc(http.MethodGet+" "+routepath.ApplicationNew, h.handleNewForm)
	mux.HandleFunc(http.MethodGet+" "+routepath.ApplicationPattern, h.handleDetail)
	mux.HandleFunc(http.MethodPost+" "+routepath.ApplicationPattern, h.handleUpdate)
	mux.HandleFunc(http.MethodGet+" "+routepath.ApplicationEditPattern, h.handleEditForm)
	mux.HandleFunc(http.MethodPost+" "+routepath.ApplicationDeletePattern, h.handleDelete)
	mux.HandleFunc(http.MethodPost+" "+routepath.ApplicationArchivePattern, h.handleArchive)
}

func (h Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, routepath.Applications, http.StatusFound)
}

func (h Handlers) handleList(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "1"
	list, err := h.service.ListApplications(r.Context(), requestctx.UserIDFromContext(r.Context()), archived)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	rows := make([]templates.ApplicationRow, 0, len(list))
	for _, details := range list {
		rows = append(rows, templates.ApplicationRow{
			ID:          details.Application.ID,
			CompanyName: details.Company.Name,
			JobTitle:    details.Application.JobTitle,
			StatusName:  details.Status.Name,
			DateApplied: details.Application.DateApplied,
			Salary:      salaryRange(details.Application.SalaryMin, details.Application.SalaryMax),
		})
	}
	title := "Applications"
	if archived {
		title = "Archived applications"
	}
	h.writePage(w, r, title, templates.ApplicationsPage(rows, archived))
}

func (h Handlers) handleNewForm(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statusOptions(r)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	form := templates.ApplicationForm{
		Action:      routepath.Applications,
		Heading:     "Track a new application",
		Statuses:    statuses,
		DateApplied: time.Now().UTC().Format(dateInputFormat),
	}
	h.writePage(w, r, form.Heading, templates.ApplicationFormPage(form))
}

func (h Handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	form.Action = routepath.Applications
	form.Heading = "Track a new application"

	details, err := h.service.CreateApplication(r.Context(), requestctx.UserIDFromContext(r.Context()), input)
	if err != nil {
		h.handleFormError(w, r, form, err)
		return
	}
	http.Redirect(w, r, routepath.Application(details.Application.ID), http.StatusSeeOther)
}

func (h Handlers) handleDetail(w http.ResponseWriter, r *http.Request) {
	applicationID := strings.TrimSpace(r.PathValue("applicationID"))
	details, err := h.service.GetApplication(r.Context(), requestctx.UserIDFromContext(r.Context()), applicationID)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	h.writePage(w, r, details.Application.JobTitle, templates.ApplicationDetailPage(detailView(details)))
}

func (h Handlers) handleEditForm(w http.ResponseWriter, r *http.Request) {
	applicationID := strings.TrimSpace(r.PathValue("applicationID"))
	details, err := h.service.GetApplication(r.Context(), requestctx.UserIDFromContext(r.Context()), applicationID)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	statuses, err := h.statusOptions(r)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}

	application := details.Application
	form := templates.ApplicationForm{
		Action:         routepath.Application(application.ID),
		Heading:        "Edit application",
		CompanyName:    details.Company.Name,
		JobTitle:       application.JobTitle,
		StatusID:       application.StatusID,
		Statuses:       statuses,
		DateApplied:    application.DateApplied.Format(dateInputFormat),
		JobDescription: application.JobDescription,
		PostingURL:     application.PostingURL,
	}
	if application.SalaryMin != nil {
		form.SalaryMin = strconv.FormatInt(*application.SalaryMin, 10)
	}
	if application.SalaryMax != nil {
		form.SalaryMax = strconv.FormatInt(*application.SalaryMax, 10)
	}
	for _, contact := range details.Contacts {
		form.Contacts = append(form.Contacts, templates.ContactFields{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Email:     contact.Email,
			Role:      contact.Role,
		})
	}
	h.writePage(w, r, form.Heading, templates.ApplicationFormPage(form))
}

func (h Handlers) handleUpdate(w http.ResponseWriter, r *http.Request) {
	applicationID := strings.TrimSpace(r.PathValue("applicationID"))
	input, form, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	form.Action = routepath.Application(applicationID)
	form.Heading = "Edit application"

	details, err := h.service.UpdateApplication(r.Context(), requestctx.UserIDFromContext(r.Context()), applicationID, input)
	if err != nil {
		h.handleFormError(w, r, form, err)
		return
	}
	http.Redirect(w, r, routepath.Application(details.Application.ID), http.StatusSeeOther)
}

func (h Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	applicationID := strings.TrimSpace(r.PathValue("applicationID"))
	if err := h.service.DeleteApplication(r.Context(), requestctx.UserIDFromContext(r.Context()), applicationID); err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	http.Redirect(w, r, routepath.Applications, http.StatusSeeOther)
}

func (h Handlers) handleArchive(w http.ResponseWriter, r *http.Request) {
	applicationID := strings.TrimSpace(r.PathValue("applicationID"))
	userID := requestctx.UserIDFromContext(r.Context())

	details, err := h.service.GetApplication(r.Context(), userID, applicationID)
	if err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	archived := !details.Application.Archived
	if err := h.service.SetArchived(r.Context(), userID, applicationID, archived); err != nil {
		h.writeErrorPage(w, r, err)
		return
	}
	http.Redirect(w, r, routepath.Application(applicationID), http.StatusSeeOther)
}

// parseForm reads the submitted form into a tracker input plus a template
// form carrying the raw values for re-rendering on validation failure.
func (h Handlers) parseForm(w http.ResponseWriter, r *http.Request) (tracker.ApplicationInput, templates.ApplicationForm, bool) {
	if err := r.ParseForm(); err != nil {
		h.writeErrorPage(w, r, apperrors.New(apperrors.CodeInvalidInput, "invalid form submission"))
		return tracker.ApplicationInput{}, templates.ApplicationForm{}, false
	}

	form := templates.ApplicationForm{
		CompanyName:    r.PostFormValue("company_name"),
		JobTitle:       r.PostFormValue("job_title"),
		SalaryMin:      r.PostFormValue("salary_min"),
		SalaryMax:      r.PostFormValue("salary_max"),
		DateApplied:    r.PostFormValue("date_applied"),
		JobDescription: r.PostFormValue("job_description"),
		PostingURL:     r.PostFormValue("posting_url"),
	}

	input := tracker.ApplicationInput{
		CompanyName:    form.CompanyName,
		JobTitle:       form.JobTitle,
		JobDescription: form.JobDescription,
		PostingURL:     form.PostingURL,
	}
	if statusID, err := strconv.Atoi(r.PostFormValue("status_id")); err == nil {
		input.StatusID = statusID
		form.StatusID = statusID
	}
	if applied, err := time.ParseInLocation(dateInputFormat, strings.TrimSpace(form.DateApplied), time.UTC); err == nil {
		input.DateApplied = applied
	}
	input.SalaryMin = parseSalary(form.SalaryMin)
	input.SalaryMax = parseSalary(form.SalaryMax)

	for idx := 0; ; idx++ {
		prefix := "contacts." + strconv.Itoa(idx)
		if !r.PostForm.Has(prefix+".first_name") && !r.PostForm.Has(prefix+".last_name") &&
			!r.PostForm.Has(prefix+".email") && !r.PostForm.Has(prefix+".role") {
			break
		}
		contact := tracker.ContactInput{
			FirstName: r.PostFormValue(prefix + ".first_name"),
			LastName:  r.PostFormValue(prefix + ".last_name"),
			Email:     r.PostFormValue(prefix + ".email"),
			Role:      r.PostFormValue(prefix + ".role"),
		}
		input.Contacts = append(input.Contacts, contact)
		form.Contacts = append(form.Contacts, templates.ContactFields{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Email:     contact.Email,
			Role:      contact.Role,
		})
	}
	return input, form, true
}

// handleFormError re-renders the form for validation failures and falls
// back to the error page for everything else.
func (h Handlers) handleFormError(w http.ResponseWriter, r *http.Request, form templates.ApplicationForm, err error) {
	fields := tracker.FieldErrors(err)
	code := apperrors.GetCode(err)
	if len(fields) == 0 && code != apperrors.CodeInvalidStatus {
		h.writeErrorPage(w, r, err)
		return
	}
	if len(fields) == 0 {
		fields = map[string]string{"status_id": "pick a valid status"}
	}
	form.FieldErrors = fields
	statuses, statusErr := h.statusOptions(r)
	if statusErr != nil {
		h.writeErrorPage(w, r, statusErr)
		return
	}
	form.Statuses = statuses
	h.writePageWithStatus(w, r, form.Heading, http.StatusBadRequest, templates.ApplicationFormPage(form))
}

func (h Handlers) statusOptions(r *http.Request) ([]templates.StatusOption, error) {
	statuses, err := h.service.Statuses(r.Context())
	if err != nil {
		return nil, err
	}
	options := make([]templates.StatusOption, 0, len(statuses))
	for _, status := range statuses {
		options = append(options, templates.StatusOption{ID: status.ID, Name: status.Name})
	}
	return options, nil
}

func (h Handlers) writePage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	h.writePageWithStatus(w, r, title, http.StatusOK, body)
}

func (h Handlers) writePageWithStatus(w http.ResponseWriter, r *http.Request, title string, statusCode int, body templ.Component) {
	nav := templates.NavContext{
		Authenticated: true,
		Username:      requestctx.UsernameFromContext(r.Context()),
	}
	var rendered bytes.Buffer
	if err := templates.Layout(title, nav, body).Render(r.Context(), &rendered); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(rendered.Bytes())
}

func (h Handlers) writeErrorPage(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.GetCode(err).HTTPStatus()
	message := "Something went wrong."
	switch status {
	case http.StatusNotFound:
		message = "We could not find that application."
	case http.StatusForbidden:
		message = "That application belongs to someone else."
	case http.StatusBadRequest:
		message = "The request could not be processed."
	}
	h.writePageWithStatus(w, r, http.StatusText(status), status, templates.ErrorPage(status, message))
}

func detailView(details tracker.Details) templates.ApplicationDetail {
	view := templates.ApplicationDetail{
		ID:             details.Application.ID,
		CompanyName:    details.Company.Name,
		JobTitle:       details.Application.JobTitle,
		StatusName:     details.Status.Name,
		DateApplied:    details.Application.DateApplied,
		Salary:         salaryRange(details.Application.SalaryMin, details.Application.SalaryMax),
		JobDescription: details.Application.JobDescription,
		PostingURL:     details.Application.PostingURL,
		Archived:       details.Application.Archived,
	}
	for _, contact := range details.Contacts {
		view.Contacts = append(view.Contacts, templates.ContactFields{
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Email:     contact.Email,
			Role:      contact.Role,
		})
	}
	return view
}

func salaryRange(min, max *int64) string {
	format := func(v int64) string {
		return "$" + formatThousands(v)
	}
	switch {
	case min != nil && max != nil:
		return format(*min) + " - " + format(*max)
	case min != nil:
		return "From " + format(*min)
	case max != nil:
		return "Up to " + format(*max)
	default:
		return "Not listed"
	}
}

func formatThousands(v int64) string {
	s := strconv.FormatInt(v, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

func parseSalary(raw string) *int64 {
	raw = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", ""))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}
