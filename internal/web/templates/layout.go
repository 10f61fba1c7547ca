// Package templates renders the HTML pages served by the web module.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// NavContext carries the signed-in state rendered in the page chrome.
type NavContext struct {
	Authenticated bool
	Username      string
}

// Layout wraps a body component in the shared page chrome.
func Layout(title string, nav NavContext, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s | ApplyWize</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
`, templ.EscapeString(title)); err != nil {
			return err
		}
		if err := renderNav(w, nav); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main class="content">
`); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main>
</body>
</html>
`)
		return err
	})
}

func renderNav(w io.Writer, nav NavContext) error {
	if _, err := io.WriteString(w, `<header class="nav">
<a class="brand" href="/">ApplyWize</a>
<nav>
`); err != nil {
		return err
	}
	if nav.Authenticated {
		if _, err := fmt.Fprintf(w, `<a href="/applications">Applications</a>
<a href="/applications?archived=1">Archive</a>
<form class="logout" method="post" action="/auth/logout"><button type="submit">Log out (%s)</button></form>
`, templ.EscapeString(nav.Username)); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, `<a href="/auth/login">Log in</a>
<a href="/auth/signup">Sign up</a>
`); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</nav>
</header>
`)
	return err
}

// ErrorPage renders a minimal page for error statuses.
func ErrorPage(status int, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="error-state">
<h1>%d</h1>
<p>%s</p>
<p><a href="/">Back to dashboard</a></p>
</section>
`, status, templ.EscapeString(message))
		return err
	})
}
