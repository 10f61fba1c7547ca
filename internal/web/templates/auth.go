package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// SignupPage renders the passkey registration form.
func SignupPage() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<section class="auth-card">
<h1>Create your account</h1>
<p>Pick a username and register a passkey. No passwords.</p>
<form id="signup-form">
<label for="username">Username</label>
<input id="username" name="username" type="text" autocomplete="username" required minlength="3" maxlength="32">
<button type="submit">Register passkey</button>
</form>
<p id="auth-error" class="form-error" hidden></p>
<p>Already registered? <a href="/auth/login">Log in</a></p>
</section>
<script src="/static/passkeys.js"></script>
<script>applywizeSignup("signup-form", "auth-error");</script>
`)
		return err
	})
}

// LoginPage renders the passkey login prompt.
func LoginPage() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<section class="auth-card">
<h1>Welcome back</h1>
<p>Log in with the passkey saved on this device.</p>
<button id="login-button" type="button">Log in with passkey</button>
<p id="auth-error" class="form-error" hidden></p>
<p>New here? <a href="/auth/signup">Sign up</a></p>
</section>
<script src="/static/passkeys.js"></script>
<script>applywizeLogin("login-button", "auth-error");</script>
`)
		return err
	})
}
