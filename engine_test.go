package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hexlane/authcore/password"
)

// memUserStore is an in-package UserStore with the same version-CAS
// semantics as memstore; the root tests cannot import memstore without an
// import cycle.
type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]User
	byIdent map[string]string
	saves   int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    make(map[string]User),
		byIdent: make(map[string]string),
	}
}

func cloneTestUser(u User) User {
	if u.MFA.BackupCodes != nil {
		codes := make([]string, len(u.MFA.BackupCodes))
		copy(codes, u.MFA.BackupCodes)
		u.MFA.BackupCodes = codes
	}
	return u
}

func (s *memUserStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrStoreNotFound
	}
	return cloneTestUser(u), nil
}

func (s *memUserStore) GetByIdentifier(_ context.Context, identifier string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdent[identifier]
	if !ok {
		return User{}, ErrStoreNotFound
	}
	return cloneTestUser(s.byID[id]), nil
}

func (s *memUserStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIdent[user.Identifier]; taken {
		return ErrDuplicateIdentifier
	}
	user.Version = 1
	s.byID[user.ID] = cloneTestUser(user)
	s.byIdent[user.Identifier] = user.ID
	return nil
}

func (s *memUserStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[user.ID]
	if !ok {
		return ErrStoreNotFound
	}
	if current.Version != user.Version {
		return ErrVersionConflict
	}
	user.Version++
	s.byID[user.ID] = cloneTestUser(user)
	s.saves++
	return nil
}

// mustUpdate mutates a stored record through the same CAS path the engine
// uses, so test fixtures never bypass versioning.
func (s *memUserStore) mustUpdate(t *testing.T, id string, mutate func(*User)) {
	t.Helper()
	u, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	mutate(&u)
	if err := s.Save(context.Background(), u); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func (s *memUserStore) mustGet(t *testing.T, id string) User {
	t.Helper()
	u, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	return u
}

// fakeCodeProvider accepts a single configured code for TOTP/SMS checks.
type fakeCodeProvider struct {
	mu     sync.Mutex
	valid  string
	sentTo []string
}

func (f *fakeCodeProvider) CheckCode(_ context.Context, _ User, _ Method, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return code == f.valid, nil
}

func (f *fakeCodeProvider) ProvisionTOTP(string) (string, string, error) {
	return "JBSWY3DPEHPK3PXP", "otpauth://totp/test", nil
}

func (f *fakeCodeProvider) SendSMSCode(_ context.Context, u User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTo = append(f.sentTo, u.MFA.SMS.Phone)
	return nil
}

func (f *fakeCodeProvider) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentTo)
}

// fastProfile keeps argon2 at the floor so tests stay quick.
var fastProfile = password.Profile{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte("test-access-secret")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret")
	cfg.Token.ResetSecret = []byte("test-reset-secret")
	cfg.Token.TempSecret = []byte("test-temp-secret")
	cfg.Password.Credential = fastProfile
	cfg.Password.BackupCode = fastProfile
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memUserStore, *fakeCodeProvider) {
	t.Helper()

	store := newMemUserStore()
	provider := &fakeCodeProvider{valid: "123456"}

	engine, err := New().
		WithConfig(cfg).
		WithUserStore(store).
		WithCodeProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, store, provider
}

// seedUser registers an account with the password "correct-horse" and
// returns its ID.
func seedUser(t *testing.T, engine *Engine) string {
	t.Helper()
	user, err := engine.Register(context.Background(), RegisterRequest{
		Identifier: "user@example.com",
		Password:   "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user.ID
}

// enrollTOTP marks the TOTP method verified, the precondition for enabling.
func enrollTOTP(t *testing.T, store *memUserStore, userID string) {
	t.Helper()
	store.mustUpdate(t, userID, func(u *User) {
		u.MFA.TOTP = Enrollment{Verified: true, Secret: "JBSWY3DPEHPK3PXP"}
	})
}

// advanceClock pins the engine clock and returns a function to move it.
func advanceClock(engine *Engine) func(time.Duration) {
	current := time.Now()
	var mu sync.Mutex
	engine.nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	return func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}
}
