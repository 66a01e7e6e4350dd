package authcore

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for status mapping by the HTTP layer.
type Kind uint8

const (
	// KindConfiguration marks a missing secret or invalid engine setup.
	// Fatal: surfaces at Build time, never at first use.
	KindConfiguration Kind = iota + 1
	// KindValidation marks a malformed token or bad category. No state change.
	KindValidation
	// KindExpired marks a token past its lifetime. The client must refresh
	// or re-authenticate.
	KindExpired
	// KindAuthorization marks a wrong code, precondition violation, or
	// method mismatch. No state change beyond attempt bookkeeping.
	KindAuthorization
	// KindLocked marks an exhausted attempt budget. Rejected uniformly,
	// regardless of code correctness.
	KindLocked
	// KindConflict marks a concurrent-mutation conflict. The caller retries
	// the whole operation, not just the write.
	KindConflict
	// KindUnavailable marks a dependency (store, counter backend, code
	// delivery) that failed or timed out. Retryable.
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindConfiguration: "configuration",
	KindValidation:    "validation",
	KindExpired:       "expired",
	KindAuthorization: "authorization",
	KindLocked:        "locked",
	KindConflict:      "conflict",
	KindUnavailable:   "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the structured error returned by every Engine operation:
// a kind for status mapping plus a human-readable reason. Raw errors from
// dependencies never escape unwrapped.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrLocked)
// style checks work against the kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Kind sentinels for errors.Is checks.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrExpired       = &Error{Kind: KindExpired}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrLocked        = &Error{Kind: KindLocked}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
)

// Common rejections. All carry a stable reason so callers can surface them
// directly.
var (
	ErrUserNotFound       = &Error{Kind: KindAuthorization, Reason: "user not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuthorization, Reason: "invalid credentials"}
	ErrIdentifierTaken    = &Error{Kind: KindAuthorization, Reason: "identifier already registered"}
	ErrInvalidMFACode     = &Error{Kind: KindAuthorization, Reason: "invalid MFA code"}
	ErrMFALocked          = &Error{Kind: KindLocked, Reason: "MFA attempts locked"}
	ErrRateLimited        = &Error{Kind: KindLocked, Reason: "too many attempts"}
	ErrEngineNotReady     = &Error{Kind: KindConfiguration, Reason: "engine not initialized"}
)

func authzf(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Reason: fmt.Sprintf(format, args...)}
}

func validationErr(reason string, cause error) *Error {
	return &Error{Kind: KindValidation, Reason: reason, cause: cause}
}

func conflictErr(cause error) *Error {
	return &Error{Kind: KindConflict, Reason: "concurrent modification, retry", cause: cause}
}

func unavailableErr(reason string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Reason: reason, cause: cause}
}

// KindOf extracts the Kind from an engine error, or zero when err did not
// originate here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
