// Package textutil contains small, stateless formatting and validation
// helpers for workflow item fields: duration parsing, filename sanitizing,
// HTML and markdown stripping, SQL literal escaping, email/URL/date checks and
// identifier case conversion.
//
// None of the helpers keep state and all of them are safe for concurrent use.
// Helpers that cannot make sense of their input either return an error or a
// documented fallback value; none of them panic.
package textutil
