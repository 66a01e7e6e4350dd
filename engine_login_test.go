package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	seedUser(t, engine)

	_, errWrong := engine.Login(context.Background(), "user@example.com", "wrong-password")
	_, errUnknown := engine.Login(context.Background(), "nobody@example.com", "wrong-password")

	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected uniform invalid-credentials, got %v / %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatal("wrong password and unknown user must be indistinguishable")
	}
}

func TestLoginIssuesSessionTokensWithoutMFA(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	seedUser(t, engine)

	res, err := engine.Login(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.MFARequired {
		t.Fatal("MFA must not be required for a fresh account")
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both session tokens")
	}

	claims, err := engine.ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if claims.Subject == "" {
		t.Fatal("access claims missing subject")
	}
}

func TestLoginWithMFAEnabledReturnsTempTokenOnly(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)
	enrollTOTP(t, store, userID)
	if _, err := engine.EnableMFA(context.Background(), userID, "123456", MethodTOTP); err != nil {
		t.Fatalf("EnableMFA failed: %v", err)
	}

	res, err := engine.Login(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.MFARequired || res.MFAMethod != MethodTOTP {
		t.Fatalf("expected MFA-required totp result, got %+v", res)
	}
	if res.TempToken == "" || res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("MFA-pending login must return only the temp token")
	}
}

func TestCompleteLoginWithTOTP(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)
	enrollTOTP(t, store, userID)
	if _, err := engine.EnableMFA(context.Background(), userID, "123456", MethodTOTP); err != nil {
		t.Fatalf("EnableMFA failed: %v", err)
	}

	res, err := engine.Login(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	finished, err := engine.CompleteLogin(context.Background(), res.TempToken, "123456", MethodTOTP)
	if err != nil {
		t.Fatalf("CompleteLogin failed: %v", err)
	}
	if finished.AccessToken == "" || finished.RefreshToken == "" {
		t.Fatal("expected session tokens after second factor")
	}
	if finished.RemainingBackupCodes != -1 {
		t.Fatalf("no backup code was spent, got remaining=%d", finished.RemainingBackupCodes)
	}
}

func TestCompleteLoginWithBackupCodeReportsRemaining(t *testing.T) {
	engine, store, _ := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)
	enrollTOTP(t, store, userID)
	codes, err := engine.EnableMFA(context.Background(), userID, "123456", MethodTOTP)
	if err != nil {
		t.Fatalf("EnableMFA failed: %v", err)
	}

	res, err := engine.Login(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	finished, err := engine.CompleteLogin(context.Background(), res.TempToken, codes[0], MethodBackup)
	if err != nil {
		t.Fatalf("CompleteLogin with backup code failed: %v", err)
	}
	if finished.RemainingBackupCodes != 9 {
		t.Fatalf("expected 9 codes remaining, got %d", finished.RemainingBackupCodes)
	}
}

func TestCompleteLoginRejectsAccessTokenAsTempToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	seedUser(t, engine)

	res, err := engine.Login(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	_, err = engine.CompleteLogin(context.Background(), res.AccessToken, "123456", MethodTOTP)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for cross-category token, got %v", err)
	}
}

func TestLoginRateLimitedAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxAttempts = 3
	engine, _, _ := newTestEngine(t, cfg)
	seedUser(t, engine)

	for i := 0; i < cfg.RateLimit.MaxAttempts; i++ {
		if _, err := engine.Login(context.Background(), "user@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}

	// The guard now rejects before the password is even checked, and gives
	// the same answer for correct and wrong passwords.
	if _, err := engine.Login(context.Background(), "user@example.com", "correct-horse"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit to reject correct password, got %v", err)
	}
}

func TestSMSLoginIssuesCodeOnFirstFactor(t *testing.T) {
	engine, store, provider := newTestEngine(t, testConfig())
	userID := seedUser(t, engine)
	store.mustUpdate(t, userID, func(u *User) {
		u.MFA.SMS = Enrollment{Verified: true, Phone: "+15550100"}
	})
	if _, err := engine.EnableMFA(context.Background(), userID, "123456", MethodSMS); err != nil {
		t.Fatalf("EnableMFA failed: %v", err)
	}

	before := provider.sends()
	if _, err := engine.Login(context.Background(), "user@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if provider.sends() != before+1 {
		t.Fatal("expected an SMS code to be issued with the temp token")
	}
}
