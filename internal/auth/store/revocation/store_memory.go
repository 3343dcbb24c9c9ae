package revocation

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = 5 * time.Minute

// InMemoryTRL keeps revoked token ids in process memory. Entries expire on
// their own once the token's lifetime has passed.
type InMemoryTRL struct {
	cache *gocache.Cache
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{cache: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if jti == "" {
		return nil
	}
	t.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, found := t.cache.Get(jti)
	return found, nil
}
