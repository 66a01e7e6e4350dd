package authcore

import (
	"errors"
	"os"
	"time"

	"github.com/hexlane/authcore/password"
	"github.com/hexlane/authcore/token"
)

// Config is the single configuration structure injected at construction
// time. Every token category carries its own secret; Build validates all of
// them non-empty so a missing secret fails fast rather than at first use.
type Config struct {
	Token     TokenConfig
	MFA       MFAConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TokenConfig holds per-category secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	TempSecret    []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	TempTTL    time.Duration

	Issuer string
	Leeway time.Duration
}

// MFAConfig tunes the verification gateway and lifecycle manager.
type MFAConfig struct {
	BackupCodeCount  int
	BackupCodeLength int

	// MaxAttempts failed verifications within AttemptWindow lock the user
	// out for LockDuration. A correct code never bypasses an active lock.
	MaxAttempts   int
	AttemptWindow time.Duration
	LockDuration  time.Duration

	TOTPIssuer string
}

// PasswordConfig selects the hashing cost profiles. Both default to the
// package-level named profiles; they exist as config so deployments can
// raise cost without a code change.
type PasswordConfig struct {
	Credential password.Profile
	BackupCode password.Profile
}

// RateLimitConfig tunes the fixed-window attempt guard applied to the
// register, login, and refresh paths.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// AuditConfig tunes the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15m access, 7d refresh,
// 1h reset, 10m temp; 10 backup codes; 5 attempts per 15m window with a
// 15m lock.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			ResetTTL:   time.Hour,
			TempTTL:    10 * time.Minute,
		},
		MFA: MFAConfig{
			BackupCodeCount:  10,
			BackupCodeLength: 10,
			MaxAttempts:      5,
			AttemptWindow:    15 * time.Minute,
			LockDuration:     15 * time.Minute,
			TOTPIssuer:       "authcore",
		},
		Password: PasswordConfig{
			Credential: password.ProfileCredential,
			BackupCode: password.ProfileBackupCode,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// ConfigFromEnv layers the conventional environment variables over
// DefaultConfig. Only secrets are read from the environment; durations and
// counts stay code-configured.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte(os.Getenv("ACCESS_TOKEN_SECRET"))
	cfg.Token.RefreshSecret = []byte(os.Getenv("REFRESH_TOKEN_SECRET"))
	cfg.Token.ResetSecret = []byte(os.Getenv("RESET_TOKEN_SECRET"))
	cfg.Token.TempSecret = []byte(os.Getenv("TEMP_TOKEN_SECRET"))
	return cfg
}

func (c Config) validate() error {
	if c.MFA.BackupCodeCount <= 0 {
		return errors.New("MFA.BackupCodeCount must be positive")
	}
	if c.MFA.BackupCodeLength < 8 {
		return errors.New("MFA.BackupCodeLength must be >= 8")
	}
	if c.MFA.MaxAttempts <= 0 {
		return errors.New("MFA.MaxAttempts must be positive")
	}
	if c.MFA.AttemptWindow <= 0 || c.MFA.LockDuration <= 0 {
		return errors.New("MFA attempt window and lock duration must be positive")
	}
	// Token secrets and TTLs are validated by token.NewManager; treat its
	// failure as the same fail-fast configuration error.
	_, err := token.NewManager(c.tokenManagerConfig())
	return err
}

func (c Config) tokenManagerConfig() token.Config {
	return token.Config{
		Access:  token.CategoryConfig{Secret: c.Token.AccessSecret, TTL: c.Token.AccessTTL},
		Refresh: token.CategoryConfig{Secret: c.Token.RefreshSecret, TTL: c.Token.RefreshTTL},
		Reset:   token.CategoryConfig{Secret: c.Token.ResetSecret, TTL: c.Token.ResetTTL},
		Temp:    token.CategoryConfig{Secret: c.Token.TempSecret, TTL: c.Token.TempTTL},
		Issuer:  c.Token.Issuer,
		Leeway:  c.Token.Leeway,
	}
}
