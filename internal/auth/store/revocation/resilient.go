package revocation

import (
	"context"
	"log/slog"
	"time"

	"devconnect/pkg/platform/circuit"
)

// Store is implemented by every revocation backend.
type Store interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// ResilientTRL fronts a shared backend with a local fallback. Revocations are
// always recorded locally too, so a token revoked on this instance stays
// revoked while the shared backend is unreachable. Once the breaker opens,
// backend errors are absorbed and the local list answers.
type ResilientTRL struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewResilientTRL(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *ResilientTRL {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResilientTRL{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (t *ResilientTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := t.fallback.RevokeToken(ctx, jti, ttl); err != nil {
		return err
	}
	if err := t.primary.RevokeToken(ctx, jti, ttl); err != nil {
		if t.failed(ctx, err) {
			return nil
		}
		return err
	}
	t.succeeded(ctx)
	return nil
}

func (t *ResilientTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := t.primary.IsRevoked(ctx, jti)
	if err != nil {
		if !t.failed(ctx, err) {
			return false, err
		}
		return t.fallback.IsRevoked(ctx, jti)
	}
	t.succeeded(ctx)
	if revoked {
		return true, nil
	}
	return t.fallback.IsRevoked(ctx, jti)
}

// Health returns circuit.ErrOpen while the local fallback is answering.
func (t *ResilientTRL) Health(context.Context) error {
	return t.breaker.Err()
}

func (t *ResilientTRL) failed(ctx context.Context, err error) bool {
	useFallback, change := t.breaker.RecordFailure()
	if change.Opened {
		t.logger.WarnContext(ctx, "revocation backend unavailable; using local fallback",
			"breaker", t.breaker.Name(),
			"error", err,
		)
	}
	return useFallback
}

func (t *ResilientTRL) succeeded(ctx context.Context) {
	if _, change := t.breaker.RecordSuccess(); change.Closed {
		t.logger.InfoContext(ctx, "revocation backend recovered", "breaker", t.breaker.Name())
	}
}
