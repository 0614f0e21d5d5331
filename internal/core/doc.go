// Package core provides the business logic for person records and CSV import.
//
// It has no transport dependencies: the HTTP server, the personctl CLI and
// tests all drive the same [Service]. Storage is reached only through the
// [Gateway] interface.
//
// # Import pipeline
//
// [Service.Import] processes one upload in phases:
//
//  1. Received: the file name and declared size are checked. Only .csv files
//     (any case) are accepted.
//  2. A slot is taken from the [ImportLimiter]; when none frees up in time the
//     import fails with [ErrTooManyUploads].
//  3. The body is spooled to a temporary file, capped at the maximum file
//     size. The file is removed on every exit path.
//  4. Parsing: [ParseCSV] decodes the declared charset (UTF-8 by default),
//     strips a byte order mark and reads the header and every row. A
//     malformed table aborts the import with a [*ParseError].
//  5. Row processing: rows are validated with [ValidateRow] in file order.
//     Valid rows get a [NewID] and are written individually; rows that fail
//     validation or storage become a [Rejection] with their file line.
//  6. Completed: the [ImportOutcome] counts accepted and rejected rows. An
//     outcome with no accepted row is not a success.
//
// # Coercion
//
// age must be an integer. status is false only for "false", "0" and the empty
// string (case-insensitive, whitespace trimmed); any other text is true.
// The same rules apply to JSON bodies for single inserts and updates.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE007: upload and CSV format problems
//   - PER001-PER004: person lookups and payloads
//   - DB001-DB007: store constraints and connectivity
//   - UPL001-UPL003: import capacity and request lifetime
package core
