// Package token issues and verifies the four isolated credential categories
// (access, refresh, reset, temp) using per-category HS256 secrets.
//
// # Isolation contract
//
// Every category signs with its own secret and its own lifetime. A token
// issued under one category never verifies under another; the failure is
// reported as [ErrWrongCategory] so callers can distinguish misuse from a
// forged or truncated token.
//
// # What this package must NOT do
//
//   - Embed authorization state in claims; callers re-check the live record.
//   - Fall back to a shared or default secret when one is missing.
//   - Import any other authcore package.
package token
