package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input/validation errors
	CodeInvalidInput Code = "INVALID_INPUT"

	// Registration errors
	CodeUsernameTaken    Code = "USERNAME_TAKEN"
	CodeCredentialExists Code = "CREDENTIAL_EXISTS"

	// Ceremony errors
	CodeCeremonyNotFound   Code = "CEREMONY_NOT_FOUND"
	CodeCeremonyExpired    Code = "CEREMONY_EXPIRED"
	CodeUnknownCredential  Code = "UNKNOWN_CREDENTIAL"
	CodeVerificationFailed Code = "VERIFICATION_FAILED"
	CodeCounterRegression  Code = "COUNTER_REGRESSION"

	// Tracker errors
	CodeApplicationNotOwned Code = "APPLICATION_NOT_OWNED"
	CodeInvalidStatus       Code = "INVALID_STATUS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input, failed ceremonies
	case CodeInvalidInput,
		CodeCeremonyExpired,
		CodeVerificationFailed,
		CodeInvalidStatus:
		return http.StatusBadRequest

	// Unauthorized - credential and replay failures
	case CodeUnknownCredential,
		CodeCounterRegression:
		return http.StatusUnauthorized

	// Forbidden - ownership violations
	case CodeApplicationNotOwned:
		return http.StatusForbidden

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeCeremonyNotFound:
		return http.StatusNotFound

	// Conflict - unique resource constraints
	case CodeUsernameTaken,
		CodeCredentialExists,
		CodeConflict:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
