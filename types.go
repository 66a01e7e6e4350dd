package authcore

import (
	"context"
	"fmt"
	"time"
)

// Method is the closed set of second-factor mechanisms. Backup is a recovery
// channel layered over the active method; it can authorize lifecycle
// operations but can never itself become the active method.
type Method uint8

const (
	// MethodTOTP is a time-based one-time-password authenticator.
	MethodTOTP Method = iota + 1
	// MethodSMS is a delivered one-time code.
	MethodSMS
	// MethodBackup is a stored single-use recovery code.
	MethodBackup
)

func (m Method) String() string {
	switch m {
	case MethodTOTP:
		return "totp"
	case MethodSMS:
		return "sms"
	case MethodBackup:
		return "backup"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// ParseMethod converts the wire spelling of a method. Unknown spellings are
// a validation error, not a fallback.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "totp":
		return MethodTOTP, nil
	case "sms":
		return MethodSMS, nil
	case "backup":
		return MethodBackup, nil
	default:
		return 0, validationErr(fmt.Sprintf("unknown MFA method %q", s), nil)
	}
}

// Enrollment is the per-method sub-state: whether the method has been
// verified by its owner, plus the material the checker needs.
type Enrollment struct {
	Verified bool
	// Secret is the base32 TOTP secret; empty for SMS.
	Secret string
	// Phone is the delivery number; empty for TOTP.
	Phone string
}

// MFAState is the second-factor state carried on the user record.
//
// Invariant: Enabled implies ActiveMethod is a verified, activatable method
// (TOTP or SMS); when Enabled is false, ActiveMethod is zero and meaningless.
type MFAState struct {
	Enabled      bool
	ActiveMethod Method

	TOTP Enrollment
	SMS  Enrollment

	// BackupCodes holds argon2 hashes of unused recovery codes. Consumed
	// codes are removed, never reused.
	BackupCodes []string

	// Lockout bookkeeping, co-located with the user for persistence
	// simplicity. LockUntil is compared lazily; no timers exist.
	FailedAttempts int
	FirstFailedAt  time.Time
	LockUntil      time.Time
}

func (s *MFAState) enrollment(m Method) *Enrollment {
	switch m {
	case MethodTOTP:
		return &s.TOTP
	case MethodSMS:
		return &s.SMS
	default:
		return nil
	}
}

// User is the account record the engine reads and mutates. Stores hand out
// value copies; the engine hands a mutated copy back through a
// version-conditional save.
type User struct {
	ID             string
	Identifier     string
	CredentialHash string
	MFA            MFAState

	// Version is the optimistic-concurrency counter checked by
	// [UserStore.Save].
	Version uint64
}

// UserStore is the persistence collaborator. Save must detect concurrent
// modification via User.Version and return [ErrVersionConflict]; the engine
// retries whole operations on conflict.
type UserStore interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByIdentifier(ctx context.Context, identifier string) (User, error)
	// Create fails with [ErrDuplicateIdentifier] when the identifier is taken.
	Create(ctx context.Context, user User) error
	// Save persists user iff the stored version still equals user.Version,
	// then increments it.
	Save(ctx context.Context, user User) error
}

// Store sentinel errors. Implementations return these (or wrap them) so the
// engine can map persistence outcomes onto its error taxonomy.
var (
	ErrStoreNotFound       = &Error{Kind: KindAuthorization, Reason: "record not found"}
	ErrVersionConflict     = &Error{Kind: KindConflict, Reason: "stale record version"}
	ErrDuplicateIdentifier = &Error{Kind: KindAuthorization, Reason: "duplicate identifier"}
)

// CodeProvider supplies the one-time-code primitives the verification
// gateway delegates to. The provider generates and delivers codes; the
// engine owns the accept/reject decision and all attempt bookkeeping.
// Backup codes never reach the provider.
type CodeProvider interface {
	// CheckCode reports whether code is currently valid for the user under
	// the given method (TOTP window comparison or SMS one-time-code
	// comparison).
	CheckCode(ctx context.Context, user User, method Method, code string) (bool, error)
	// ProvisionTOTP mints a fresh TOTP secret and otpauth:// URI for the
	// account identifier.
	ProvisionTOTP(identifier string) (secret string, uri string, err error)
	// SendSMSCode issues and delivers a one-time code to the user's
	// enrolled phone number.
	SendSMSCode(ctx context.Context, user User) error
}

// MFAStatus is the read-only projection returned by [Engine.MFAStatus].
type MFAStatus struct {
	Enabled      bool
	ActiveMethod Method
}

// TOTPProvision is returned by [Engine.ProvisionTOTP]. The secret is
// returned once for enrollment and stored unverified on the record.
type TOTPProvision struct {
	Secret string
	URI    string
}

// LoginResult is returned by [Engine.Login] and [Engine.CompleteLogin].
// When MFARequired is set, only TempToken is populated: the caller must
// complete the second factor before session tokens are issued.
type LoginResult struct {
	AccessToken  string
	RefreshToken string

	MFARequired bool
	MFAMethod   Method
	TempToken   string

	// RemainingBackupCodes is set when a backup code was consumed, so the
	// caller can warn the user of a dwindling set. -1 otherwise.
	RemainingBackupCodes int
}

// TokenPair is an access+refresh pair issued for an established session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Identifier string
	Password   string
}
