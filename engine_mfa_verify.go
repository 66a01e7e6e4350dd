package authcore

import (
	"context"
	"time"
)

// gatewayResult reports what a successful verification consumed.
// RemainingBackupCodes is -1 unless a backup code was spent, so callers can
// warn the user of a dwindling set.
type gatewayResult struct {
	BackupConsumed       bool
	RemainingBackupCodes int
}

// verifyCode is the MFA verification gateway: given the user's enrolled
// methods and a submitted code, it decides accept/reject per method and owns
// all attempt bookkeeping.
//
// The returned mutated flag tells the caller whether the user record changed
// (consumed backup code, failure counter, lock engagement, counter reset)
// and must be persisted even when the verification itself failed.
//
// An active lock rejects before any comparison: a correct code never
// bypasses it.
func (e *Engine) verifyCode(ctx context.Context, u *User, code string, method Method) (gatewayResult, bool, error) {
	res := gatewayResult{RemainingBackupCodes: -1}
	now := e.now()

	if now.Before(u.MFA.LockUntil) {
		return res, false, ErrMFALocked
	}

	var ok bool
	switch method {
	case MethodBackup:
		remaining, matched, err := e.consumeBackupCode(u, code)
		if err != nil {
			return res, false, err
		}
		ok = matched
		if matched {
			res.BackupConsumed = true
			res.RemainingBackupCodes = remaining
			e.metricInc(MetricBackupCodeUsed)
		}
	case MethodTOTP, MethodSMS:
		if e.codes == nil {
			return res, false, &Error{Kind: KindConfiguration, Reason: "no code provider configured"}
		}
		checked, err := e.codes.CheckCode(ctx, *u, method, code)
		if err != nil {
			return res, false, unavailableErr("code check failed", err)
		}
		ok = checked
	default:
		return res, false, validationErr("unknown MFA method", nil)
	}

	if !ok {
		e.registerMFAFailure(u)
		e.metricInc(MetricMFAFailure)
		return res, true, ErrInvalidMFACode
	}

	mutated := res.BackupConsumed || u.MFA.FailedAttempts != 0 ||
		!u.MFA.FirstFailedAt.IsZero() || !u.MFA.LockUntil.IsZero()
	u.MFA.FailedAttempts = 0
	u.MFA.FirstFailedAt = time.Time{}
	u.MFA.LockUntil = time.Time{}

	e.metricInc(MetricMFASuccess)
	return res, mutated, nil
}

// registerMFAFailure advances the rolling failure window and engages the
// lock at the configured threshold. Lockout expiry is computed lazily from
// LockUntil; no timers exist.
func (e *Engine) registerMFAFailure(u *User) {
	now := e.now()

	if u.MFA.FirstFailedAt.IsZero() || now.Sub(u.MFA.FirstFailedAt) > e.config.MFA.AttemptWindow {
		u.MFA.FailedAttempts = 0
		u.MFA.FirstFailedAt = now
	}
	u.MFA.FailedAttempts++

	if u.MFA.FailedAttempts >= e.config.MFA.MaxAttempts {
		u.MFA.LockUntil = now.Add(e.config.MFA.LockDuration)
		u.MFA.FailedAttempts = 0
		u.MFA.FirstFailedAt = time.Time{}
		e.metricInc(MetricMFALockout)
	}
}
