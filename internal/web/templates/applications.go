package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// ApplicationRow is one row in the applications table.
type ApplicationRow struct {
	ID          string
	CompanyName string
	JobTitle    string
	StatusName  string
	DateApplied time.Time
	Salary      string
}

// StatusOption is one entry in the status select.
type StatusOption struct {
	ID   int
	Name string
}

// ContactFields holds one contact row on the application form.
type ContactFields struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// ApplicationForm carries form values, validation errors, and select
// options for the new/edit application pages.
type ApplicationForm struct {
	Action         string
	Heading        string
	CompanyName    string
	JobTitle       string
	StatusID       int
	Statuses       []StatusOption
	SalaryMin      string
	SalaryMax      string
	DateApplied    string
	JobDescription string
	PostingURL     string
	Contacts       []ContactFields
	FieldErrors    map[string]string
}

// ApplicationDetail carries everything shown on the detail page.
type ApplicationDetail struct {
	ID             string
	CompanyName    string
	JobTitle       string
	StatusName     string
	DateApplied    time.Time
	Salary         string
	JobDescription string
	PostingURL     string
	Archived       bool
	Contacts       []ContactFields
}

const dateDisplayFormat = "Jan 2, 2006"

// ApplicationsPage renders the active or archived applications table.
func ApplicationsPage(rows []ApplicationRow, archived bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		heading := "Applications"
		if archived {
			heading = "Archived applications"
		}
		if _, err := fmt.Fprintf(w, `<section>
<h1>%s</h1>
<p><a class="button" href="/applications/new">Track a new application</a></p>
`, templ.EscapeString(heading)); err != nil {
			return err
		}
		if len(rows) == 0 {
			if _, err := io.WriteString(w, `<p class="muted">Nothing here yet.</p>
</section>
`); err != nil {
				return err
			}
			return nil
		}
		if _, err := io.WriteString(w, `<table class="applications">
<thead><tr><th>Company</th><th>Role</th><th>Status</th><th>Applied</th><th>Salary</th></tr></thead>
<tbody>
`); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, `<tr>
<td><a href="/applications/%s">%s</a></td>
<td>%s</td>
<td>%s</td>
<td>%s</td>
<td>%s</td>
</tr>
`,
				templ.EscapeString(row.ID),
				templ.EscapeString(row.CompanyName),
				templ.EscapeString(row.JobTitle),
				templ.EscapeString(row.StatusName),
				templ.EscapeString(row.DateApplied.Format(dateDisplayFormat)),
				templ.EscapeString(row.Salary),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody>
</table>
</section>
`)
		return err
	})
}

// ApplicationFormPage renders the new/edit application form.
func ApplicationFormPage(form ApplicationForm) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section>
<h1>%s</h1>
<form method="post" action="%s">
`, templ.EscapeString(form.Heading), templ.EscapeString(form.Action)); err != nil {
			return err
		}

		if err := textField(w, form, "company_name", "Company", form.CompanyName, "text"); err != nil {
			return err
		}
		if err := textField(w, form, "job_title", "Job title", form.JobTitle, "text"); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<label for="status_id">Status</label>
<select id="status_id" name="status_id">
`); err != nil {
			return err
		}
		for _, status := range form.Statuses {
			selected := ""
			if status.ID == form.StatusID {
				selected = ` selected`
			}
			if _, err := fmt.Fprintf(w, `<option value="%d"%s>%s</option>
`, status.ID, selected, templ.EscapeString(status.Name)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</select>
`); err != nil {
			return err
		}
		if err := fieldError(w, form, "status_id"); err != nil {
			return err
		}

		if err := textField(w, form, "date_applied", "Date applied", form.DateApplied, "date"); err != nil {
			return err
		}
		if err := textField(w, form, "salary_min", "Salary minimum", form.SalaryMin, "number"); err != nil {
			return err
		}
		if err := textField(w, form, "salary_max", "Salary maximum", form.SalaryMax, "number"); err != nil {
			return err
		}
		if err := textField(w, form, "posting_url", "Posting URL", form.PostingURL, "url"); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<label for="job_description">Job description</label>
<textarea id="job_description" name="job_description" rows="6">%s</textarea>
`, templ.EscapeString(form.JobDescription)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<h2>Contacts</h2>
`); err != nil {
			return err
		}
		// Render existing rows plus one blank slot for a new contact.
		contacts := append(append([]ContactFields{}, form.Contacts...), ContactFields{})
		for idx, contact := range contacts {
			prefix := "contacts." + strconv.Itoa(idx)
			if _, err := fmt.Fprintf(w, `<div class="contact-row">
<input name="%s.first_name" placeholder="First name" value="%s">
<input name="%s.last_name" placeholder="Last name" value="%s">
<input name="%s.email" placeholder="Email" value="%s">
<input name="%s.role" placeholder="Role" value="%s">
</div>
`,
				prefix, templ.EscapeString(contact.FirstName),
				prefix, templ.EscapeString(contact.LastName),
				prefix, templ.EscapeString(contact.Email),
				prefix, templ.EscapeString(contact.Role),
			); err != nil {
				return err
			}
			if err := fieldError(w, form, prefix+".email"); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `<button type="submit">Save application</button>
</form>
</section>
`)
		return err
	})
}

// ApplicationDetailPage renders a single application with its actions.
func ApplicationDetailPage(detail ApplicationDetail) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		archiveLabel := "Archive"
		if detail.Archived {
			archiveLabel = "Unarchive"
		}
		if _, err := fmt.Fprintf(w, `<section>
<h1>%s at %s</h1>
<dl>
<dt>Status</dt><dd>%s</dd>
<dt>Applied</dt><dd>%s</dd>
<dt>Salary</dt><dd>%s</dd>
`,
			templ.EscapeString(detail.JobTitle),
			templ.EscapeString(detail.CompanyName),
			templ.EscapeString(detail.StatusName),
			templ.EscapeString(detail.DateApplied.Format(dateDisplayFormat)),
			templ.EscapeString(detail.Salary),
		); err != nil {
			return err
		}
		if detail.PostingURL != "" {
			if _, err := fmt.Fprintf(w, `<dt>Posting</dt><dd><a href="%s" rel="noopener noreferrer">%s</a></dd>
`, templ.EscapeString(detail.PostingURL), templ.EscapeString(detail.PostingURL)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</dl>
`); err != nil {
			return err
		}
		if detail.JobDescription != "" {
			if _, err := fmt.Fprintf(w, `<h2>Description</h2>
<p>%s</p>
`, templ.EscapeString(detail.JobDescription)); err != nil {
				return err
			}
		}
		if len(detail.Contacts) > 0 {
			if _, err := io.WriteString(w, `<h2>Contacts</h2>
<ul>
`); err != nil {
				return err
			}
			for _, contact := range detail.Contacts {
				if _, err := fmt.Fprintf(w, `<li>%s %s &lt;%s&gt; %s</li>
`,
					templ.EscapeString(contact.FirstName),
					templ.EscapeString(contact.LastName),
					templ.EscapeString(contact.Email),
					templ.EscapeString(contact.Role),
				); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>
`); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, `<div class="actions">
<a class="button" href="/applications/%s/edit">Edit</a>
<form method="post" action="/applications/%s/archive"><button type="submit">%s</button></form>
<form method="post" action="/applications/%s/delete"><button class="danger" type="submit">Delete</button></form>
</div>
</section>
`,
			templ.EscapeString(detail.ID),
			templ.EscapeString(detail.ID),
			templ.EscapeString(archiveLabel),
			templ.EscapeString(detail.ID),
		)
		return err
	})
}

func textField(w io.Writer, form ApplicationForm, name, label, value, inputType string) error {
	if _, err := fmt.Fprintf(w, `<label for="%s">%s</label>
<input id="%s" name="%s" type="%s" value="%s">
`, name, templ.EscapeString(label), name, name, inputType, templ.EscapeString(value)); err != nil {
		return err
	}
	return fieldError(w, form, name)
}

func fieldError(w io.Writer, form ApplicationForm, name string) error {
	message, ok := form.FieldErrors[name]
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, `<p class="field-error">%s</p>
`, templ.EscapeString(message))
	return err
}
