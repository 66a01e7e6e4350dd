package authcore

import (
	"context"
	"errors"

	"github.com/hexlane/authcore/token"
)

// Login checks the first factor. Accounts with MFA enabled receive a
// temp-category token scoped to the pending second factor instead of
// session tokens; when the active method is SMS a one-time code is issued
// on the spot. Unknown identifiers and wrong passwords are indistinguishable
// to the caller.
func (e *Engine) Login(ctx context.Context, identifier, passwd string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	key := "login:" + identifier
	if err := e.guardAllow(ctx, key); err != nil {
		e.metricInc(MetricLoginRateLimited)
		return nil, err
	}

	u, err := e.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			e.guardFailure(ctx, key)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, "login.first_factor", "", 0, false, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, e.storeErr(err)
	}

	ok, err := e.credentialHasher.Verify(passwd, u.CredentialHash)
	if err != nil {
		return nil, unavailableErr("credential verification failed", err)
	}
	if !ok {
		e.guardFailure(ctx, key)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, "login.first_factor", u.ID, 0, false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	e.guardSuccess(ctx, key)

	if u.MFA.Enabled {
		temp, terr := e.tokens.Issue(token.Temp, u.ID)
		if terr != nil {
			return nil, unavailableErr("temp token issuance failed", terr)
		}
		if u.MFA.ActiveMethod == MethodSMS && e.codes != nil {
			if serr := e.codes.SendSMSCode(ctx, u); serr != nil {
				return nil, unavailableErr("sms code delivery failed", serr)
			}
		}
		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, "login.mfa_required", u.ID, u.MFA.ActiveMethod, true, nil)
		return &LoginResult{
			MFARequired:          true,
			MFAMethod:            u.MFA.ActiveMethod,
			TempToken:            temp,
			RemainingBackupCodes: -1,
		}, nil
	}

	pair, err := e.issuePair(u.ID)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, "login.success", u.ID, 0, true, nil)
	return &LoginResult{
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		RemainingBackupCodes: -1,
	}, nil
}

// CompleteLogin finishes an MFA-pending login: the temp token proves the
// first factor passed, the code proves the second. The submitted method must
// be the active one, or Backup.
func (e *Engine) CompleteLogin(ctx context.Context, tempToken, code string, method Method) (*LoginResult, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(token.Temp, tempToken)
	if err != nil {
		return nil, tokenErr(token.Temp, err)
	}

	remaining := -1
	err = e.withUser(ctx, claims.Subject, func(u *User) (bool, error) {
		// Token claims are not trusted for account state: re-check the live
		// record, which can change between issuance and now.
		if !u.MFA.Enabled {
			return false, authzf("MFA is not enabled")
		}
		if method != MethodBackup && u.MFA.ActiveMethod != method {
			return false, authzf("%s MFA is not in use", method)
		}

		gw, mutated, verr := e.verifyCode(ctx, u, code, method)
		if verr != nil {
			return mutated, verr
		}
		remaining = gw.RemainingBackupCodes
		return mutated, nil
	})
	e.emitAudit(ctx, "login.second_factor", claims.Subject, method, err == nil, err)
	if err != nil {
		return nil, err
	}

	pair, err := e.issuePair(claims.Subject)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	return &LoginResult{
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		RemainingBackupCodes: remaining,
	}, nil
}

// ValidateAccess verifies an access-category token and returns its claims.
// Hot path: pure token work, no store round-trip.
func (e *Engine) ValidateAccess(tokenStr string) (*token.Claims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.Verify(token.Access, tokenStr)
	if err != nil {
		return nil, tokenErr(token.Access, err)
	}
	return claims, nil
}

func (e *Engine) issuePair(userID string) (TokenPair, error) {
	access, err := e.tokens.Issue(token.Access, userID)
	if err != nil {
		return TokenPair{}, unavailableErr("access token issuance failed", err)
	}
	refresh, err := e.tokens.Issue(token.Refresh, userID)
	if err != nil {
		return TokenPair{}, unavailableErr("refresh token issuance failed", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
