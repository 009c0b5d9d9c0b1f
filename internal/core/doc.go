// Package core holds the employee directory's business logic.
//
// Nothing here knows about HTTP or terminals. The web server, the staffctl
// CLI and the tests all drive the same types.
//
// # Records
//
// An [Employee] is a flat record keyed by [ID]. The collection lives in a
// [Store], which writes the whole list through to a single slot (see
// package slot) after every successful mutation. Mutations first ask the
// [RemoteAPI] for permission; a refusal leaves memory and slot untouched
// and surfaces as Result{Success: false}.
//
// # Views
//
// A [Table] derives what a user sees from the live collection and a
// caller-owned [ViewState]:
//
//	filter (search) -> stable sort (key, direction) -> page
//
// Nothing is cached, so every read reflects the latest mutation. Export
// uses the sorted set before pagination.
//
// # CSV
//
// [ExportCSV] writes the fixed six-column layout. [ImportCSV] parses a
// file, checks each row against the live collection and the rows before
// it, and returns the accepted candidates plus one message per rejected
// row. Import never touches the store; [Store.Append] merges afterwards.
//
// # Error Handling
//
// Technical errors are mapped to banner messages with support codes by
// [MapError]:
//
//   - STO001-STO003: persistence (load, corrupt slot, save)
//   - API001-API003: remote calls
//   - VAL001-VAL003: validation and view parameters
//   - FILE001-FILE004: import files
//   - REQ001-REQ004: request lifecycle and throttling
package core
