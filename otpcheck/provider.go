package otpcheck

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/hexlane/authcore"
)

const (
	defaultSMSCodeTTL    = 15 * time.Minute
	defaultSMSCodeDigits = 6
)

// Sender delivers an SMS one-time code. Transport is entirely the
// implementation's concern.
type Sender interface {
	SendSMS(ctx context.Context, phone, code string) error
}

// Config tunes the provider.
type Config struct {
	// Issuer names the service in otpauth:// URIs.
	Issuer string
	// SMSCodeTTL bounds how long a delivered code stays valid.
	SMSCodeTTL time.Duration
	// SMSCodeDigits is the delivered code length.
	SMSCodeDigits int
}

// Provider implements [authcore.CodeProvider] with pquerna/otp TOTP
// comparison and Redis-stored SMS codes.
type Provider struct {
	config Config
	redis  redis.UniversalClient
	sender Sender
}

// New creates a Provider. The Redis client backs SMS code storage; sender
// may be nil for TOTP-only deployments, in which case SMS issuance fails.
func New(client redis.UniversalClient, cfg Config, sender Sender) *Provider {
	if cfg.Issuer == "" {
		cfg.Issuer = "authcore"
	}
	if cfg.SMSCodeTTL <= 0 {
		cfg.SMSCodeTTL = defaultSMSCodeTTL
	}
	if cfg.SMSCodeDigits <= 0 {
		cfg.SMSCodeDigits = defaultSMSCodeDigits
	}
	return &Provider{config: cfg, redis: client, sender: sender}
}

// ProvisionTOTP mints a fresh secret and otpauth:// URI for the identifier.
func (p *Provider) ProvisionTOTP(identifier string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.config.Issuer,
		AccountName: identifier,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// CheckCode reports whether code is currently valid for the user under the
// given method.
func (p *Provider) CheckCode(ctx context.Context, user authcore.User, method authcore.Method, code string) (bool, error) {
	switch method {
	case authcore.MethodTOTP:
		secret := user.MFA.TOTP.Secret
		if secret == "" {
			return false, errors.New("no totp secret on record")
		}
		return totp.Validate(code, secret), nil
	case authcore.MethodSMS:
		return p.checkSMSCode(ctx, user.ID, code)
	default:
		return false, fmt.Errorf("method %s is not checker-verified", method)
	}
}

func smsCodeKey(userID string) string {
	return "smsotp:" + userID
}

// SendSMSCode issues a numeric one-time code, stores it with the configured
// TTL, and hands it to the Sender for delivery to the user's enrolled phone.
func (p *Provider) SendSMSCode(ctx context.Context, user authcore.User) error {
	if p.sender == nil {
		return errors.New("no SMS sender configured")
	}
	phone := user.MFA.SMS.Phone
	if phone == "" {
		return errors.New("no phone number on record")
	}

	code, err := numericCode(p.config.SMSCodeDigits)
	if err != nil {
		return err
	}
	if err := p.redis.Set(ctx, smsCodeKey(user.ID), code, p.config.SMSCodeTTL).Err(); err != nil {
		return fmt.Errorf("sms code store failed: %w", err)
	}
	return p.sender.SendSMS(ctx, phone, code)
}

// checkSMSCode compares and, on match, consumes the stored code so a
// delivered code verifies at most once.
func (p *Provider) checkSMSCode(ctx context.Context, userID, code string) (bool, error) {
	stored, err := p.redis.Get(ctx, smsCodeKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("sms code store failed: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := p.redis.Del(ctx, smsCodeKey(userID)).Err(); err != nil {
		return false, fmt.Errorf("sms code store failed: %w", err)
	}
	return true, nil
}

func numericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
