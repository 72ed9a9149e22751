package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-checkout/internal/domain"
)

// Preference is the durable shipping choice carried across sessions: the
// last destination and the full selected quote (not just its id, so the
// selection survives provider catalog changes).
type Preference struct {
	PostalCode string                `json:"postalCode"`
	Quote      *domain.ShippingQuote `json:"quote,omitempty"`
}

// PreferenceStore loads and saves shipping preferences. Persistence is a
// convenience: implementations may fail and callers must not let that
// interrupt checkout.
type PreferenceStore interface {
	Load(ctx context.Context, key string) (*Preference, error)
	Save(ctx context.Context, key string, pref Preference) error
}

const preferenceTTL = 30 * 24 * time.Hour

// RedisStore keeps preferences in Redis as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key string) string {
	return "checkout:shipping-pref:" + key
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Preference, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var pref Preference
	if err := json.Unmarshal(data, &pref); err != nil {
		return nil, fmt.Errorf("unmarshal preference failed: %w", err)
	}
	return &pref, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, pref Preference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("marshal preference failed: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, preferenceTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
