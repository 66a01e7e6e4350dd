package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// revocationList denylists refresh-token IDs until their natural expiry.
// Entries carry a TTL equal to the token's remaining lifetime, so the list
// never grows past the outstanding-token horizon.
type revocationList struct {
	redis redis.UniversalClient
}

func newRevocationList(client redis.UniversalClient) *revocationList {
	return &revocationList{redis: client}
}

func revocationKey(tokenID string) string {
	return "rvk:" + tokenID
}

func (r *revocationList) Revoke(ctx context.Context, tokenID string, expiresAt, now time.Time) error {
	if r == nil || tokenID == "" {
		return nil
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		// Already expired; nothing to deny.
		return nil
	}
	if err := r.redis.Set(ctx, revocationKey(tokenID), "1", remaining).Err(); err != nil {
		return unavailableErr("revocation list failed", err)
	}
	return nil
}

func (r *revocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r == nil || tokenID == "" {
		return false, nil
	}
	_, err := r.redis.Get(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailableErr("revocation list failed", err)
	}
	return true, nil
}
