package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// inFlightSentinel marks a claimed key whose response is not stored yet.
// The leading NUL keeps it distinct from any JSON response body.
const inFlightSentinel = "\x00in-flight"

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "playerbank:idempotency:",
	}
}

// Begin claims key with a single SETNX. When the claim is lost, the stored
// value tells the caller whether to replay a finished response or report the
// original request as still in flight.
func (s *IdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	set, err := s.client.SetNX(ctx, fullKey, inFlightSentinel, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if set {
		return true, nil, nil
	}

	existing, err := s.client.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		// The owner's claim expired between our SETNX and the read.
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if string(existing) == inFlightSentinel {
		return false, nil, nil
	}

	return false, existing, nil
}

// Update stores the final response under a claimed key.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
}

// Release drops a claim whose request did not produce a cacheable response.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
