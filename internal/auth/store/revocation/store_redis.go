package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Redis key prefix for revoked tokens
const revokedTokenKeyPrefix = "devconnect:trl:jti:"

// RedisTRL is a Redis-backed revocation list, shared by every instance that
// points at the same Redis.
type RedisTRL struct {
	client  redis.Cmdable
	latency prometheus.Observer
}

// RedisTRLOption configures a RedisTRL instance.
type RedisTRLOption func(*RedisTRL)

// WithLatencyObserver records IsRevoked latency in milliseconds.
func WithLatencyObserver(obs prometheus.Observer) RedisTRLOption {
	return func(t *RedisTRL) {
		t.latency = obs
	}
}

// NewRedisTRL constructs a Redis-backed token revocation list.
func NewRedisTRL(client redis.Cmdable, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(trl)
		}
	}
	return trl
}

// RevokeToken stores a marker that expires with the token.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	return t.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the marker exists.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if t.latency != nil {
		start := time.Now()
		defer func() {
			t.latency.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}()
	}

	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
