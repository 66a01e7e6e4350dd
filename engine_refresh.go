package authcore

import (
	"context"
	"errors"

	"github.com/hexlane/authcore/token"
)

// Refresh exchanges a live refresh token for a fresh access+refresh pair.
// The old token is revoked on rotation when a revocation backend is
// configured, so a stolen-then-rotated token dies with the rotation. Live
// account state is re-checked; token claims alone never establish a session.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.tokens == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(token.Refresh, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, tokenErr(token.Refresh, err)
	}

	key := "refresh:" + claims.Subject
	if err := e.guardAllow(ctx, key); err != nil {
		return TokenPair{}, err
	}

	revoked, err := e.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		rerr := authzf("refresh token revoked")
		e.guardFailure(ctx, key)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, "session.refresh", claims.Subject, 0, false, rerr)
		return TokenPair{}, rerr
	}

	if _, err := e.users.GetByID(ctx, claims.Subject); err != nil {
		e.guardFailure(ctx, key)
		e.metricInc(MetricRefreshFailure)
		return TokenPair{}, e.storeErr(err)
	}

	if err := e.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt, e.now()); err != nil {
		return TokenPair{}, err
	}

	pair, err := e.issuePair(claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}

	e.guardSuccess(ctx, key)
	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, "session.refresh", claims.Subject, 0, true, nil)
	return pair, nil
}

// Logout revokes the presented refresh token. An already-expired token is a
// successful logout: nothing outstanding remains.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(token.Refresh, refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil
		}
		return tokenErr(token.Refresh, err)
	}

	if err := e.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt, e.now()); err != nil {
		return err
	}
	e.emitAudit(ctx, "session.logout", claims.Subject, 0, true, nil)
	return nil
}
