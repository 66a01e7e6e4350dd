package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Category identifies an isolated class of signed credential. Each category
// signs with its own secret and carries its own lifetime, so compromise or
// expiry of one category never affects another.
type Category uint8

const (
	// Access authorizes API calls. Short-lived.
	Access Category = iota
	// Refresh renews Access without re-login. Long-lived, cookie-carried.
	Refresh
	// Reset authorizes a single password-reset action.
	Reset
	// Temp authorizes a narrow follow-up step, such as the MFA leg of a login.
	Temp

	categoryCount
)

var categoryNames = [categoryCount]string{"access", "refresh", "reset", "temp"}

func (c Category) String() string {
	if c >= categoryCount {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

var (
	// ErrMalformed indicates a token that is structurally invalid or carries
	// a signature that no configured secret produced.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired indicates a well-formed token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrWrongCategory indicates a well-formed token presented under a
	// category it was not issued for.
	ErrWrongCategory = errors.New("token category mismatch")
)

// CategoryConfig holds the secret and lifetime for one token category.
type CategoryConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Config defines the per-category signing material for a [Manager].
// Every category must carry a non-empty secret; there is no fallback.
type Config struct {
	Access  CategoryConfig
	Refresh CategoryConfig
	Reset   CategoryConfig
	Temp    CategoryConfig

	Issuer string
	Leeway time.Duration
}

// Claims is the decoded payload of a verified token. It identifies the
// subject and nothing more: callers must re-check live account state before
// acting on it, because account state can change after issuance.
type Claims struct {
	Subject   string
	Category  Category
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Cat string `json:"cat"`
	jwt.RegisteredClaims
}

// Manager issues and verifies the four token categories. It is stateless
// and safe for concurrent use.
type Manager struct {
	config  Config
	perCat  [categoryCount]CategoryConfig
	nowFunc func() time.Time
}

// NewManager validates cfg and returns a ready Manager. A missing secret or
// non-positive TTL for any category is a configuration error; the engine
// fails closed here rather than at first use.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		config: cfg,
		perCat: [categoryCount]CategoryConfig{
			Access:  cfg.Access,
			Refresh: cfg.Refresh,
			Reset:   cfg.Reset,
			Temp:    cfg.Temp,
		},
		nowFunc: time.Now,
	}
	for c := Category(0); c < categoryCount; c++ {
		if len(m.perCat[c].Secret) == 0 {
			return nil, fmt.Errorf("missing secret for %s token", c)
		}
		if m.perCat[c].TTL <= 0 {
			return nil, fmt.Errorf("invalid TTL for %s token", c)
		}
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return m, nil
}

// Issue signs a token of the given category for subject. The payload is a
// subject identifier plus minimal claims; it carries no authorization
// decisions.
func (m *Manager) Issue(category Category, subject string) (string, error) {
	if category >= categoryCount {
		return "", fmt.Errorf("unknown token category %d", uint8(category))
	}
	if subject == "" {
		return "", errors.New("empty token subject")
	}

	cc := m.perCat[category]
	now := m.nowFunc()
	claims := wireClaims{
		Cat: category.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cc.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cc.Secret)
}

// Verify parses and checks a token against the given category's secret.
// Failures are typed: [ErrExpired] for a token past its lifetime,
// [ErrWrongCategory] for a token minted under another category, and
// [ErrMalformed] for everything else. Callers must be able to tell
// "try refreshing" apart from "reject the session entirely".
func (m *Manager) Verify(category Category, tokenStr string) (*Claims, error) {
	if category >= categoryCount {
		return nil, fmt.Errorf("unknown token category %d", uint8(category))
	}
	if tokenStr == "" {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &wireClaims{}, func(*jwt.Token) (interface{}, error) {
		return m.perCat[category].Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			// Distinct per-category secrets make a cross-category token fail
			// signature verification. Peek at the unverified cat claim so the
			// caller sees a category mismatch instead of a generic failure.
			if cat, ok := m.peekCategory(tokenStr); ok && cat != category {
				return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongCategory, cat, category)
			}
			return nil, ErrMalformed
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Cat != category.String() {
		// Same secret misconfigured across categories still cannot cross.
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongCategory, claims.Cat, category)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	out := &Claims{
		Subject:   claims.Subject,
		Category:  category,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func (m *Manager) peekCategory(tokenStr string) (Category, bool) {
	var peeked wireClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &peeked); err != nil {
		return 0, false
	}
	for c := Category(0); c < categoryCount; c++ {
		if peeked.Cat == c.String() {
			return c, true
		}
	}
	return 0, false
}
