// Package routepath centralizes web route constants so handlers,
// templates, and tests agree on URLs.
package routepath

import "net/url"

const (
	Root = "/"

	Signup         = "/auth/signup"
	Login          = "/auth/login"
	Logout         = "/auth/logout"
	RegisterStart  = "/auth/register/start"
	RegisterFinish = "/auth/register/finish"
	LoginStart     = "/auth/login/start"
	LoginFinish    = "/auth/login/finish"

	Applications   = "/applications"
	ApplicationNew = "/applications/new"

	ApplicationPattern        = "/applications/{applicationID}"
	ApplicationEditPattern    = "/applications/{applicationID}/edit"
	ApplicationDeletePattern  = "/applications/{applicationID}/delete"
	ApplicationArchivePattern = "/applications/{applicationID}/archive"

	StaticPrefix = "/static/"
)

// Application returns the detail path for an application id.
func Application(id string) string {
	return Applications + "/" + url.PathEscape(id)
}

// ApplicationEdit returns the edit form path for an application id.
func ApplicationEdit(id string) string {
	return Application(id) + "/edit"
}
