package authcore

import (
	"errors"

	"github.com/hexlane/authcore/audit"
	"github.com/hexlane/authcore/internal/rate"
	"github.com/hexlane/authcore/password"
	"github.com/hexlane/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build, which validates the configuration and fails closed on any missing
// secret.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users UserStore
	codes CodeProvider
	sink  audit.Sink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the Redis client backing the attempt guard and the
// refresh-token revocation list. Without it, Build falls back to in-process
// counters and disables revocation.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore supplies the persistence collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithCodeProvider supplies the TOTP/SMS comparator collaborator. Required
// for any MFA operation; an engine built without one still serves the
// password and token paths.
func (b *Builder) WithCodeProvider(provider CodeProvider) *Builder {
	b.codes = provider
	return b
}

// WithAuditSink supplies the audit destination. Defaults to [audit.NoOpSink].
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, &Error{Kind: KindConfiguration, Reason: "user store is required"}
	}
	if err := b.config.validate(); err != nil {
		return nil, &Error{Kind: KindConfiguration, Reason: err.Error(), cause: err}
	}

	tokens, err := token.NewManager(b.config.tokenManagerConfig())
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Reason: err.Error(), cause: err}
	}

	credentialHasher, err := password.NewHasher(b.config.Password.Credential)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Reason: "credential profile: " + err.Error(), cause: err}
	}
	backupHasher, err := password.NewHasher(b.config.Password.BackupCode)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Reason: "backup code profile: " + err.Error(), cause: err}
	}

	e := &Engine{
		config:           b.config,
		users:            b.users,
		tokens:           tokens,
		codes:            b.codes,
		credentialHasher: credentialHasher,
		backupHasher:     backupHasher,
		metrics:          NewMetrics(b.config.Metrics.Enabled),
	}

	if b.config.RateLimit.Enabled {
		guardCfg := rate.Config{
			MaxAttempts: b.config.RateLimit.MaxAttempts,
			Window:      b.config.RateLimit.Window,
		}
		if b.redis != nil {
			e.guard = rate.NewRedisGuard(b.redis, guardCfg)
		} else {
			e.memoryGuard = rate.NewMemoryGuard(guardCfg)
			e.guard = e.memoryGuard
		}
	}

	if b.redis != nil {
		e.revocations = newRevocationList(b.redis)
	}

	if b.config.Audit.Enabled {
		e.audit = audit.NewDispatcher(audit.DispatcherConfig{
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.sink)
	}

	b.built = true
	return e, nil
}
