package authcore

import "context"

// ProvisionTOTP mints a fresh TOTP secret for the account, stores it
// unverified, and returns the secret and otpauth:// URI once for the
// authenticator handshake. Re-provisioning replaces any prior unconfirmed
// secret and clears the verified flag.
func (e *Engine) ProvisionTOTP(ctx context.Context, userID string) (TOTPProvision, error) {
	if e == nil || e.codes == nil {
		return TOTPProvision{}, &Error{Kind: KindConfiguration, Reason: "no code provider configured"}
	}

	var out TOTPProvision
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if u.MFA.Enabled && u.MFA.ActiveMethod == MethodTOTP {
			return false, authzf("totp MFA is already enabled")
		}
		secret, uri, err := e.codes.ProvisionTOTP(u.Identifier)
		if err != nil {
			return false, unavailableErr("totp provisioning failed", err)
		}
		u.MFA.TOTP = Enrollment{Secret: secret}
		out = TOTPProvision{Secret: secret, URI: uri}
		return true, nil
	})
	e.emitAudit(ctx, "mfa.totp.provision", userID, MethodTOTP, err == nil, err)
	if err != nil {
		return TOTPProvision{}, err
	}
	return out, nil
}

// ConfirmTOTPEnrollment verifies a first code against the provisioned secret
// and marks the method verified, making it activatable through
// [Engine.EnableMFA].
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error {
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if u.MFA.TOTP.Secret == "" {
			return false, authzf("totp enrollment not provisioned")
		}
		if u.MFA.TOTP.Verified {
			return false, authzf("totp is already verified")
		}
		_, mutated, err := e.verifyCode(ctx, u, code, MethodTOTP)
		if err != nil {
			return mutated, err
		}
		u.MFA.TOTP.Verified = true
		return true, nil
	})
	e.emitAudit(ctx, "mfa.totp.confirm", userID, MethodTOTP, err == nil, err)
	return err
}

// BeginSMSEnrollment records the delivery number unverified and issues a
// one-time code through the provider. Delivery transport is the provider's
// concern.
func (e *Engine) BeginSMSEnrollment(ctx context.Context, userID, phone string) error {
	if e == nil || e.codes == nil {
		return &Error{Kind: KindConfiguration, Reason: "no code provider configured"}
	}
	if phone == "" {
		return validationErr("empty phone number", nil)
	}

	var current User
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if u.MFA.Enabled && u.MFA.ActiveMethod == MethodSMS {
			return false, authzf("sms MFA is already enabled")
		}
		u.MFA.SMS = Enrollment{Phone: phone}
		current = *u
		return true, nil
	})
	if err == nil {
		if serr := e.codes.SendSMSCode(ctx, current); serr != nil {
			err = unavailableErr("sms code delivery failed", serr)
		}
	}
	e.emitAudit(ctx, "mfa.sms.begin", userID, MethodSMS, err == nil, err)
	return err
}

// ConfirmSMSEnrollment verifies the delivered code and marks the method
// verified.
func (e *Engine) ConfirmSMSEnrollment(ctx context.Context, userID, code string) error {
	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		if u.MFA.SMS.Phone == "" {
			return false, authzf("sms enrollment not started")
		}
		if u.MFA.SMS.Verified {
			return false, authzf("sms is already verified")
		}
		_, mutated, err := e.verifyCode(ctx, u, code, MethodSMS)
		if err != nil {
			return mutated, err
		}
		u.MFA.SMS.Verified = true
		return true, nil
	})
	e.emitAudit(ctx, "mfa.sms.confirm", userID, MethodSMS, err == nil, err)
	return err
}
