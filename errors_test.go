package authcore

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	err := authzf("wrong code for %s", MethodTOTP)

	if !errors.Is(err, ErrAuthorization) {
		t.Fatal("kind sentinel must match any reason")
	}
	if errors.Is(err, ErrLocked) {
		t.Fatal("different kind must not match")
	}
	if errors.Is(err, ErrInvalidMFACode) {
		t.Fatal("sentinel with a different reason must not match")
	}
	if !errors.Is(ErrInvalidMFACode, ErrAuthorization) {
		t.Fatal("named sentinel must match its kind sentinel")
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := unavailableErr("rate guard backend", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause must survive wrapping")
	}
	wrapped := fmt.Errorf("login: %w", err)
	if !errors.Is(wrapped, ErrUnavailable) {
		t.Fatal("kind must match through further wrapping")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(conflictErr(nil)); got != KindConflict {
		t.Fatalf("KindOf = %v", got)
	}
	if got := KindOf(fmt.Errorf("outer: %w", ErrRateLimited)); got != KindLocked {
		t.Fatalf("KindOf through wrap = %v", got)
	}
	if got := KindOf(errors.New("plain")); got != 0 {
		t.Fatalf("foreign error: KindOf = %v", got)
	}
}

func TestErrorString(t *testing.T) {
	if s := ErrMFALocked.Error(); s != "locked: MFA attempts locked" {
		t.Fatalf("unexpected message: %q", s)
	}
	if s := (&Error{Kind: KindValidation}).Error(); s != "validation" {
		t.Fatalf("unexpected bare-kind message: %q", s)
	}
}
