package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/hexlane/authcore/audit"
	"github.com/hexlane/authcore/internal/rate"
	"github.com/hexlane/authcore/password"
	"github.com/hexlane/authcore/token"
)

// Engine is the credential/MFA core. Construct it through [Builder.Build];
// afterward all methods are safe for concurrent use.
type Engine struct {
	config Config

	users  UserStore
	tokens *token.Manager
	codes  CodeProvider

	credentialHasher *password.Hasher
	backupHasher     *password.Hasher

	guard       rate.Guard
	memoryGuard *rate.MemoryGuard
	revocations *revocationList

	audit   *audit.Dispatcher
	metrics *Metrics

	nowFunc func() time.Time
}

// Close drains the audit buffer and stops background expiry loops.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.memoryGuard != nil {
		e.memoryGuard.Stop()
	}
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns the number of audit events discarded under pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) now() time.Time {
	if e != nil && e.nowFunc != nil {
		return e.nowFunc()
	}
	return time.Now()
}

func (e *Engine) metricInc(id MetricID) {
	if e != nil {
		e.metrics.Inc(id)
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, method Method, success bool, err error) {
	if e == nil || e.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
	}
	if method != 0 {
		event.Method = method.String()
	}
	if err != nil {
		event.Error = err.Error()
	}
	e.audit.Emit(ctx, event)
}

const saveAttempts = 3

// withUser runs fn against a fresh copy of the user record and, when fn
// reports a mutation, attempts a version-conditional save. Conflicts rerun
// the whole operation against a reloaded record, so no check ever acts on a
// stale state. Failure bookkeeping (attempt counters) is a mutation too and
// is persisted even when fn returns an error.
func (e *Engine) withUser(ctx context.Context, userID string, fn func(u *User) (bool, error)) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		user, err := e.users.GetByID(ctx, userID)
		if err != nil {
			return e.storeErr(err)
		}

		mutated, opErr := fn(&user)
		if !mutated {
			return opErr
		}

		if err := e.users.Save(ctx, user); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				e.metricInc(MetricStoreConflict)
				lastErr = err
				continue
			}
			return e.storeErr(err)
		}
		return opErr
	}
	return conflictErr(lastErr)
}

// storeErr maps persistence failures onto the engine taxonomy.
func (e *Engine) storeErr(err error) error {
	switch {
	case errors.Is(err, ErrStoreNotFound):
		return ErrUserNotFound
	case errors.Is(err, ErrVersionConflict):
		return conflictErr(err)
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return unavailableErr("user store failed", err)
}

// guardAllow composes the attempt guard before an operation. Disabled guards
// pass everything.
func (e *Engine) guardAllow(ctx context.Context, key string) error {
	if e.guard == nil {
		return nil
	}
	if err := e.guard.Allow(ctx, key); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			return ErrRateLimited
		}
		return unavailableErr("attempt guard failed", err)
	}
	return nil
}

func (e *Engine) guardFailure(ctx context.Context, key string) {
	if e.guard != nil {
		_ = e.guard.RecordFailure(ctx, key)
	}
}

func (e *Engine) guardSuccess(ctx context.Context, key string) {
	if e.guard != nil {
		_ = e.guard.RecordSuccess(ctx, key)
	}
}

// tokenErr maps token package failures onto the engine taxonomy.
func tokenErr(category token.Category, err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return &Error{Kind: KindExpired, Reason: category.String() + " token expired", cause: err}
	case errors.Is(err, token.ErrWrongCategory):
		return validationErr(err.Error(), err)
	default:
		return validationErr("malformed "+category.String()+" token", err)
	}
}
