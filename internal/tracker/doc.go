// Package tracker owns the job application domain for ApplyWize.
//
// Applications, the companies they target, the contacts attached to those
// companies, and the five-stage status pipeline all live here. Every
// operation is scoped to the owning user; the HTTP surface passes the
// session's user id and never reaches into storage directly.
//
// Subpackages:
//   - storage: persistence interfaces and the SQLite implementation
package tracker
