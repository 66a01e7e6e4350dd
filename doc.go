// Package authcore provides the credential and MFA core of an HTTP-facing
// identity service: a four-category signed-token engine, an MFA lifecycle
// state machine with single-use backup-code recovery, and the attempt
// guards feeding lockout.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The engine exposes plain functions for the boundary
// routes (register, login, refresh, password reset, MFA lifecycle); it never
// parses HTTP itself.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types. Attempt-guard plumbing lives under internal/ and is never
// exported; token signing, hashing, OTP checking, and audit sinks live in
// their own subpackages.
//
// # What this package must NOT do
//
//   - Own persistence: callers supply a [UserStore] with conflict-detecting
//     saves, and the engine retries whole operations on version conflicts.
//   - Generate or deliver one-time codes: a [CodeProvider] collaborator owns
//     that; the engine owns only the accept/reject decision and the attempt
//     bookkeeping.
//   - Trust token claims for authorization decisions: every operation
//     re-checks the live user record.
package authcore
