package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestProvisionThenConfirmTOTP(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)

	prov, err := engine.ProvisionTOTP(context.Background(), userID)
	if err != nil {
		t.Fatalf("ProvisionTOTP failed: %v", err)
	}
	if prov.Secret == "" || prov.URI == "" {
		t.Fatal("expected secret and otpauth URI")
	}

	u := store.mustGet(t, userID)
	if u.MFA.TOTP.Verified {
		t.Fatal("provisioned secret must start unverified")
	}
	if u.MFA.TOTP.Secret != prov.Secret {
		t.Fatal("provisioned secret must be stored for the checker")
	}

	if err := engine.ConfirmTOTPEnrollment(context.Background(), userID, "123456"); err != nil {
		t.Fatalf("ConfirmTOTPEnrollment failed: %v", err)
	}
	if u := store.mustGet(t, userID); !u.MFA.TOTP.Verified {
		t.Fatal("confirmation did not mark totp verified")
	}
}

func TestConfirmTOTPWithoutProvisionRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)

	if err := engine.ConfirmTOTPEnrollment(context.Background(), userID, "123456"); !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestSMSEnrollmentSendsAndConfirms(t *testing.T) {
	engine, store, provider := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)

	if err := engine.BeginSMSEnrollment(context.Background(), userID, "+15550100"); err != nil {
		t.Fatalf("BeginSMSEnrollment failed: %v", err)
	}
	if provider.sends() != 1 {
		t.Fatalf("expected one delivery, got %d", provider.sends())
	}

	if err := engine.ConfirmSMSEnrollment(context.Background(), userID, "123456"); err != nil {
		t.Fatalf("ConfirmSMSEnrollment failed: %v", err)
	}
	u := store.mustGet(t, userID)
	if !u.MFA.SMS.Verified || u.MFA.SMS.Phone != "+15550100" {
		t.Fatalf("expected verified sms enrollment, got %+v", u.MFA.SMS)
	}
}

func TestConfirmSMSWrongCodeCountsAttempt(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)

	if err := engine.BeginSMSEnrollment(context.Background(), userID, "+15550100"); err != nil {
		t.Fatalf("BeginSMSEnrollment failed: %v", err)
	}
	if err := engine.ConfirmSMSEnrollment(context.Background(), userID, "999999"); !errors.Is(err, ErrInvalidMFACode) {
		t.Fatalf("expected invalid code, got %v", err)
	}

	u := store.mustGet(t, userID)
	if u.MFA.FailedAttempts != 1 {
		t.Fatalf("expected attempt recorded, got %d", u.MFA.FailedAttempts)
	}
	if u.MFA.SMS.Verified {
		t.Fatal("wrong code must not verify the method")
	}
}
