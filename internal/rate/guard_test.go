package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testGuardConfig() Config {
	return Config{MaxAttempts: 3, Window: time.Minute}
}

func runGuardContract(t *testing.T, g Guard) {
	t.Helper()
	ctx := context.Background()

	if err := g.Allow(ctx, "login:alice"); err != nil {
		t.Fatalf("fresh key must pass: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := g.RecordFailure(ctx, "login:alice"); err != nil {
			t.Fatalf("RecordFailure %d: %v", i, err)
		}
	}
	if err := g.Allow(ctx, "login:alice"); !errors.Is(err, ErrLimited) {
		t.Fatalf("exhausted budget: got %v, want ErrLimited", err)
	}

	// Budgets are per key.
	if err := g.Allow(ctx, "login:bob"); err != nil {
		t.Fatalf("unrelated key must pass: %v", err)
	}

	if err := g.RecordSuccess(ctx, "login:alice"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if err := g.Allow(ctx, "login:alice"); err != nil {
		t.Fatalf("cleared key must pass: %v", err)
	}
}

func TestRedisGuardContract(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	runGuardContract(t, NewRedisGuard(client, testGuardConfig()))
}

func TestRedisGuardWindowExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	g := NewRedisGuard(client, testGuardConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := g.RecordFailure(ctx, "login:alice"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := g.Allow(ctx, "login:alice"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited before expiry, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := g.Allow(ctx, "login:alice"); err != nil {
		t.Fatalf("expired window must pass: %v", err)
	}
}

func TestRedisGuardUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	g := NewRedisGuard(client, testGuardConfig())
	if err := g.Allow(context.Background(), "login:alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := g.RecordFailure(context.Background(), "login:alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryGuardContract(t *testing.T) {
	g := NewMemoryGuard(testGuardConfig())
	t.Cleanup(g.Stop)

	runGuardContract(t, g)
}

func TestMemoryGuardConcurrentFailures(t *testing.T) {
	g := NewMemoryGuard(Config{MaxAttempts: 100, Window: time.Minute})
	t.Cleanup(g.Stop)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.RecordFailure(ctx, "login:alice")
		}()
	}
	wg.Wait()

	if err := g.Allow(ctx, "login:alice"); err != nil {
		t.Fatalf("50 of 100 attempts must still pass: %v", err)
	}
	for i := 0; i < 50; i++ {
		_ = g.RecordFailure(ctx, "login:alice")
	}
	if err := g.Allow(ctx, "login:alice"); !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited at budget, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxAttempts != defaultMaxAttempts || cfg.Window != defaultWindow {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
