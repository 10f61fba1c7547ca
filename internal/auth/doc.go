// Package auth owns the identity boundary for ApplyWize.
//
// It drives the two WebAuthn ceremonies (registration and login), stores
// passkey credentials, and issues the web sessions the HTTP surface checks on
// every protected request. Routing and rendering live elsewhere; this package
// only understands identities, credentials, and ceremonies.
//
// Subpackages:
//   - user: user domain model and helpers
//   - passkey: relying-party configuration for WebAuthn ceremonies
//   - storage: persistence interfaces and the SQLite implementation
package auth
