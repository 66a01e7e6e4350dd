package authcore

import (
	"context"
	"errors"

	"github.com/hexlane/authcore/token"
)

// RequestPasswordReset issues a reset-category token for the account. The
// token is returned to the caller, whose mailer owns delivery; the engine
// never sends anything itself.
func (e *Engine) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	if e == nil || e.users == nil {
		return "", ErrEngineNotReady
	}

	u, err := e.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return "", ErrUserNotFound
		}
		return "", e.storeErr(err)
	}

	resetToken, err := e.tokens.Issue(token.Reset, u.ID)
	if err != nil {
		return "", unavailableErr("reset token issuance failed", err)
	}
	e.emitAudit(ctx, "account.reset_requested", u.ID, 0, true, nil)
	return resetToken, nil
}

// ResetPassword consumes a reset token and installs a new credential hash.
// The token authorizes exactly one reset: with a revocation backend
// configured, replaying it fails even inside its lifetime.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}
	if newPassword == "" {
		return validationErr("new password is required", nil)
	}

	claims, err := e.tokens.Verify(token.Reset, resetToken)
	if err != nil {
		return tokenErr(token.Reset, err)
	}

	used, err := e.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return err
	}
	if used {
		return authzf("reset token already used")
	}

	err = e.withUser(ctx, claims.Subject, func(u *User) (bool, error) {
		hash, herr := e.credentialHasher.Hash(newPassword)
		if herr != nil {
			return false, unavailableErr("credential hashing failed", herr)
		}
		u.CredentialHash = hash
		return true, nil
	})
	e.emitAudit(ctx, "account.reset_password", claims.Subject, 0, err == nil, err)
	if err != nil {
		return err
	}

	return e.revocations.Revoke(ctx, claims.TokenID, claims.ExpiresAt, e.now())
}
