// Package requestmeta derives request metadata such as the effective
// scheme, accounting for TLS termination at a reverse proxy.
package requestmeta

import (
	"net/http"
	"strings"
)

// SchemePolicy controls how the effective request scheme is derived.
type SchemePolicy struct {
	// TrustForwardedProto enables honoring the X-Forwarded-Proto header.
	// Only set this when the server is deployed behind a trusted proxy
	// that strips and re-sets the header.
	TrustForwardedProto bool
}

// IsHTTPS reports whether the request arrived over HTTPS, without
// trusting forwarded headers.
func IsHTTPS(r *http.Request) bool {
	return IsHTTPSWithPolicy(r, SchemePolicy{})
}

// IsHTTPSWithPolicy reports whether the request arrived over HTTPS
// under the given policy.
func IsHTTPSWithPolicy(r *http.Request, policy SchemePolicy) bool {
	return requestScheme(r, policy) == "https"
}

func requestScheme(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return "http"
	}
	if r.TLS != nil {
		return "https"
	}
	if policy.TrustForwardedProto {
		proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))
		if i := strings.IndexByte(proto, ','); i >= 0 {
			proto = strings.TrimSpace(proto[:i])
		}
		if strings.EqualFold(proto, "https") {
			return "https"
		}
	}
	return "http"
}
