// Package core is the record lifecycle controller of the support log.
//
// It holds the loaded history and orchestrates every change against a
// [store.Store]. It has no UI or transport dependency, so the web server,
// the hwctl CLI and tests drive it the same way.
//
// # Lifecycle
//
//   - [Service.Create] validates a draft held by a form, inserts it, prepends
//     it to history, copies its summary to a [Clipboard] and resets the draft.
//   - [Service.Update] mutates history first, then the store. A store failure
//     restores the history captured before the mutation.
//   - [Service.Delete] is admin only. It removes the record locally, then in
//     the store; a store failure triggers a full [Service.FetchAll].
//   - [Service.FetchAll] replaces history with the store's rows, newest first.
//
// Updates to one record are serialized, so they reach the store in the order
// they were issued. Updates to different records run concurrently.
//
// # Roles
//
// The caller identity comes from the context ([auth.WithIdentity]); without
// one the default admin session is used. Technicians cannot create
// ESCALATION records, edit records, or open the records and dashboard views.
//
// # Error Handling
//
// Failures are [*Error] values classified by [Kind]. [MapError] turns any
// error into a [UserMessage] with a support code:
//
//   - VAL001-VAL007: Validation errors (analyst, subject, field, mode, request body, settings)
//   - TBL001: Missing records table
//   - DB001-DB006: Store errors (connection, timeout, credentials)
//   - AUTH001-AUTH002: Permission and credential errors
//   - EXP001-EXP002: Export errors
//
// A missing table found by FetchAll is also kept as a persistent
// [Service.Banner] until a later load succeeds.
//
// # Audit Logging
//
// Create, update, delete and export are recorded in the audit table with a
// severity level:
//
//   - Low: Exports
//   - Medium: Creates and edits
//   - High: Deletions
package core
