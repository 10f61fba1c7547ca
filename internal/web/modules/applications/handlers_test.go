package applications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/platform/requestctx"
	"github.com/dethstrobe/applywize2/internal/tracker"
	trackerstorage "github.com/dethstrobe/applywize2/internal/tracker/storage"
)

type fakeTrackerService struct {
	statuses  []trackerstorage.Status
	list      []tracker.Details
	listErr   error
	details   tracker.Details
	getErr    error
	created   tracker.Details
	createErr error
	updated   tracker.Details
	updateErr error
	deleteErr error

	lastUserID        string
	lastApplicationID string
	lastInput         tracker.ApplicationInput
	lastArchived      *bool
	listedArchived    bool
}

func (f *fakeTrackerService) Statuses(context.Context) ([]trackerstorage.Status, error) {
	return f.statuses, nil
}

func (f *fakeTrackerService) CreateApplication(_ context.Context, userID string, input tracker.ApplicationInput) (tracker.Details, error) {
	f.lastUserID = userID
	f.lastInput = input
	return f.created, f.createErr
}

func (f *fakeTrackerService) ListApplications(_ context.Context, userID string, archived bool) ([]tracker.Details, error) {
	f.lastUserID = userID
	f.listedArchived = archived
	return f.list, f.listErr
}

func (f *fakeTrackerService) GetApplication(_ context.Context, userID, applicationID string) (tracker.Details, error) {
	f.lastUserID = userID
	f.lastApplicationID = applicationID
	return f.details, f.getErr
}

func (f *fakeTrackerService) UpdateApplication(_ context.Context, userID, applicationID string, input tracker.ApplicationInput) (tracker.Details, error) {
	f.lastUserID = userID
	f.lastApplicationID = applicationID
	f.lastInput = input
	return f.updated, f.updateErr
}

func (f *fakeTrackerService) DeleteApplication(_ context.Context, userID, applicationID string) error {
	f.lastUserID = userID
	f.lastApplicationID = applicationID
	return f.deleteErr
}

func (f *fakeTrackerService) SetArchived(_ context.Context, userID, applicationID string, archived bool) error {
	f.lastUserID = userID
	f.lastApplicationID = applicationID
	f.lastArchived = &archived
	return nil
}

func seededStatuses() []trackerstorage.Status {
	return []trackerstorage.Status{
		{ID: 1, Name: "New"},
		{ID: 2, Name: "Applied"},
		{ID: 3, Name: "Interview"},
		{ID: 4, Name: "Rejected"},
		{ID: 5, Name: "Offer"},
	}
}

func sampleDetails(id string) tracker.Details {
	salaryMin := int64(150000)
	return tracker.Details{
		Application: trackerstorage.Application{
			ID:          id,
			UserID:      "user-1",
			StatusID:    2,
			CompanyID:   "company-1",
			SalaryMin:   &salaryMin,
			DateApplied: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			JobTitle:    "Staff Engineer",
		},
		Company: trackerstorage.Company{ID: "company-1", Name: "Initech"},
		Status:  trackerstorage.Status{ID: 2, Name: "Applied"},
		Contacts: []trackerstorage.Contact{
			{ID: "contact-1", CompanyID: "company-1", FirstName: "Bill", Email: "bill@initech.test"},
		},
	}
}

func serve(t *testing.T, service *fakeTrackerService, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewHandlers(service).Register(mux)

	ctx := requestctx.WithUserID(r.Context(), "user-1")
	ctx = requestctx.WithUsername(ctx, "alice")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, r.WithContext(ctx))
	return rr
}

func validFormBody() url.Values {
	return url.Values{
		"company_name":          {"Initech"},
		"job_title":             {"Staff Engineer"},
		"status_id":             {"2"},
		"date_applied":          {"2026-03-02"},
		"salary_min":            {"150,000"},
		"salary_max":            {"$180000"},
		"posting_url":           {"https://initech.test/jobs/1"},
		"job_description":       {"TPS reports."},
		"contacts.0.first_name": {"Bill"},
		"contacts.0.email":      {"Bill@Initech.test"},
	}
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDashboardRedirectsToApplications(t *testing.T) {
	rr := serve(t, &fakeTrackerService{}, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/applications" {
		t.Fatalf("Location = %q, want %q", got, "/applications")
	}
}

func TestListRendersApplications(t *testing.T) {
	service := &fakeTrackerService{list: []tracker.Details{sampleDetails("app-1")}}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if service.lastUserID != "user-1" {
		t.Fatalf("user id = %q, want %q", service.lastUserID, "user-1")
	}
	if service.listedArchived {
		t.Fatal("expected active listing by default")
	}
	body := rr.Body.String()
	for _, want := range []string{"Initech", "Staff Engineer", "From $150,000", "alice"} {
		if !strings.Contains(body, want) {
			t.Fatalf("list body missing %q:\n%s", want, body)
		}
	}
}

func TestListArchivedFilter(t *testing.T) {
	service := &fakeTrackerService{}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications?archived=1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !service.listedArchived {
		t.Fatal("expected archived listing")
	}
	if !strings.Contains(rr.Body.String(), "Archived applications") {
		t.Fatalf("expected archived heading:\n%s", rr.Body.String())
	}
}

func TestNewFormRendersStatuses(t *testing.T) {
	service := &fakeTrackerService{statuses: seededStatuses()}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications/new", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{`action="/applications"`, ">Offer</option>", `name="company_name"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("form body missing %q:\n%s", want, body)
		}
	}
}

func TestCreateRedirectsToDetail(t *testing.T) {
	service := &fakeTrackerService{
		statuses: seededStatuses(),
		created:  sampleDetails("app-9"),
	}
	rr := serve(t, service, postForm("/applications", validFormBody()))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != "/applications/app-9" {
		t.Fatalf("Location = %q, want %q", got, "/applications/app-9")
	}
	if service.lastInput.CompanyName != "Initech" {
		t.Fatalf("company = %q, want %q", service.lastInput.CompanyName, "Initech")
	}
	if service.lastInput.SalaryMin == nil || *service.lastInput.SalaryMin != 150000 {
		t.Fatalf("salary min = %v, want 150000", service.lastInput.SalaryMin)
	}
	if service.lastInput.SalaryMax == nil || *service.lastInput.SalaryMax != 180000 {
		t.Fatalf("salary max = %v, want 180000", service.lastInput.SalaryMax)
	}
	if len(service.lastInput.Contacts) != 1 || service.lastInput.Contacts[0].Email != "Bill@Initech.test" {
		t.Fatalf("contacts = %+v, want raw email preserved for service normalization", service.lastInput.Contacts)
	}
	if !service.lastInput.DateApplied.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date applied = %v", service.lastInput.DateApplied)
	}
}

func TestCreateValidationErrorRerendersForm(t *testing.T) {
	service := &fakeTrackerService{
		statuses: seededStatuses(),
		createErr: apperrors.WithMetadata(apperrors.CodeInvalidInput, "invalid application input", map[string]string{
			"job_title": "job title is required",
		}),
	}
	body := validFormBody()
	body.Set("job_title", "")
	rr := serve(t, service, postForm("/applications", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	page := rr.Body.String()
	if !strings.Contains(page, "job title is required") {
		t.Fatalf("expected field error in page:\n%s", page)
	}
	if !strings.Contains(page, `value="Initech"`) {
		t.Fatalf("expected submitted values preserved:\n%s", page)
	}
}

func TestDetailNotOwnedRendersForbidden(t *testing.T) {
	service := &fakeTrackerService{
		getErr: apperrors.New(apperrors.CodeApplicationNotOwned, "application belongs to another user"),
	}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications/app-1", nil))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if !strings.Contains(rr.Body.String(), "belongs to someone else") {
		t.Fatalf("expected forbidden message:\n%s", rr.Body.String())
	}
}

func TestDetailMissingRendersNotFound(t *testing.T) {
	service := &fakeTrackerService{
		getErr: apperrors.New(apperrors.CodeNotFound, "application not found"),
	}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications/app-1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestEditFormPrefillsValues(t *testing.T) {
	service := &fakeTrackerService{
		statuses: seededStatuses(),
		details:  sampleDetails("app-1"),
	}
	rr := serve(t, service, httptest.NewRequest(http.MethodGet, "/applications/app-1/edit", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`action="/applications/app-1"`,
		`value="Initech"`,
		`value="150000"`,
		`value="bill@initech.test"`,
		`<option value="2" selected>Applied</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("edit form missing %q:\n%s", want, body)
		}
	}
}

func TestUpdateRedirectsToDetail(t *testing.T) {
	service := &fakeTrackerService{
		statuses: seededStatuses(),
		updated:  sampleDetails("app-1"),
	}
	rr := serve(t, service, postForm("/applications/app-1", validFormBody()))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	if service.lastApplicationID != "app-1" {
		t.Fatalf("application id = %q, want %q", service.lastApplicationID, "app-1")
	}
}

func TestDeleteRedirectsToList(t *testing.T) {
	service := &fakeTrackerService{}
	rr := serve(t, service, postForm("/applications/app-1/delete", url.Values{}))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if got := rr.Header().Get("Location"); got != "/applications" {
		t.Fatalf("Location = %q, want %q", got, "/applications")
	}
	if service.lastApplicationID != "app-1" {
		t.Fatalf("application id = %q, want %q", service.lastApplicationID, "app-1")
	}
}

func TestArchiveTogglesCurrentState(t *testing.T) {
	service := &fakeTrackerService{details: sampleDetails("app-1")}
	rr := serve(t, service, postForm("/applications/app-1/archive", url.Values{}))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
	}
	if service.lastArchived == nil || !*service.lastArchived {
		t.Fatalf("expected archive toggle to true, got %v", service.lastArchived)
	}

	archived := sampleDetails("app-1")
	archived.Application.Archived = true
	service = &fakeTrackerService{details: archived}
	serve(t, service, postForm("/applications/app-1/archive", url.Values{}))
	if service.lastArchived == nil || *service.lastArchived {
		t.Fatalf("expected unarchive toggle to false, got %v", service.lastArchived)
	}
}
