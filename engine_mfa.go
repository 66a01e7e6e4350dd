package authcore

import "context"

// All four lifecycle operations share the same guard order: load user →
// structural precondition checks → gateway verification → mutation →
// conditional save. Precondition failures short-circuit before the gateway
// so a structurally invalid request never consumes an attempt budget or a
// backup code.

// EnableMFA activates method as the account's second factor after the
// supplied code verifies. It returns the plaintext backup-code batch exactly
// once; only hashes persist.
//
// Backup is not an activatable method, the target method must already be
// verified, and re-enabling the already-active method is an error rather
// than a no-op, to surface caller misuse.
func (e *Engine) EnableMFA(ctx context.Context, userID, code string, method Method) ([]string, error) {
	var plain []string
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if method == MethodBackup {
			return false, authzf("backup codes cannot be enabled as an MFA method")
		}
		en := u.MFA.enrollment(method)
		if en == nil || !en.Verified {
			return false, authzf("%s MFA is not verified", method)
		}
		if u.MFA.Enabled && u.MFA.ActiveMethod == method {
			return false, authzf("%s MFA is already enabled", method)
		}

		_, mutated, err := e.verifyCode(ctx, u, code, method)
		if err != nil {
			return mutated, err
		}

		codes, hashes, err := e.newBackupCodes()
		if err != nil {
			return mutated, err
		}
		u.MFA.Enabled = true
		u.MFA.ActiveMethod = method
		u.MFA.BackupCodes = hashes
		plain = codes
		return true, nil
	})
	e.emitAudit(ctx, "mfa.enable", userID, method, err == nil, err)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// DisableMFA deactivates the second factor after the supplied code verifies.
// The code may belong to the active method or be a backup code. Disabling
// clears the active method and voids every outstanding backup code; a later
// re-enable mints new ones.
func (e *Engine) DisableMFA(ctx context.Context, userID, code string, method Method) error {
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if !u.MFA.Enabled {
			return false, authzf("MFA is not enabled")
		}
		if method != MethodBackup && u.MFA.ActiveMethod != method {
			return false, authzf("%s MFA is not in use", method)
		}

		_, mutated, err := e.verifyCode(ctx, u, code, method)
		if err != nil {
			return mutated, err
		}

		u.MFA.Enabled = false
		u.MFA.ActiveMethod = 0
		u.MFA.BackupCodes = nil
		return true, nil
	})
	e.emitAudit(ctx, "mfa.disable", userID, method, err == nil, err)
	return err
}

// MFAStatus returns the {enabled, active method} projection. Read-only: no
// side effects, no rate limiting.
func (e *Engine) MFAStatus(ctx context.Context, userID string) (MFAStatus, error) {
	if e == nil || e.users == nil {
		return MFAStatus{}, ErrEngineNotReady
	}
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return MFAStatus{}, e.storeErr(err)
	}
	return MFAStatus{Enabled: u.MFA.Enabled, ActiveMethod: u.MFA.ActiveMethod}, nil
}

// RegenerateBackupCodes atomically replaces the whole backup-code set and
// returns the new plaintext batch once. Old codes are void the moment the
// save lands. A backup code is itself accepted as proof of possession here,
// so a user down to their last codes can mint a fresh batch.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID, code string, method Method) ([]string, error) {
	var plain []string
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if !u.MFA.Enabled {
			return false, authzf("MFA is not enabled")
		}
		if method != MethodBackup && u.MFA.ActiveMethod != method {
			return false, authzf("%s MFA is not in use", method)
		}

		_, mutated, err := e.verifyCode(ctx, u, code, method)
		if err != nil {
			return mutated, err
		}

		codes, hashes, err := e.newBackupCodes()
		if err != nil {
			return mutated, err
		}
		u.MFA.BackupCodes = hashes
		plain = codes
		return true, nil
	})
	e.emitAudit(ctx, "mfa.backup_codes.regenerate", userID, method, err == nil, err)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricBackupCodesRegenerated)
	return plain, nil
}
