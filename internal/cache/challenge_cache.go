package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Challenge is a pending one-time-password check. Payload carries whatever
// the owner needs once the code is confirmed.
type Challenge struct {
	ID        string          `json:"id"`
	Email     string          `json:"email,omitempty"`
	CodeHash  string          `json:"codeHash"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// ChallengeCache stores OTP challenges under a namespace.
type ChallengeCache struct {
	redis     *RedisClient
	namespace string
	ttl       time.Duration
}

// NewChallengeCache creates a ChallengeCache, e.g. namespace "admin:login".
func NewChallengeCache(redis *RedisClient, namespace string, ttl time.Duration) *ChallengeCache {
	return &ChallengeCache{redis: redis, namespace: namespace, ttl: ttl}
}

func (c *ChallengeCache) key(id string) string {
	return fmt.Sprintf("otp:%s:%s", c.namespace, id)
}

// Save stores ch with the cache TTL and stamps ExpiresAt.
func (c *ChallengeCache) Save(ctx context.Context, ch *Challenge) error {
	ch.ExpiresAt = time.Now().Add(c.ttl)
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(ch.ID), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

// Get loads a challenge. Missing or expired challenges return ErrNotFound.
func (c *ChallengeCache) Get(ctx context.Context, id string) (*Challenge, error) {
	raw, err := c.redis.Get(ctx, c.key(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &ch, nil
}

// Consume deletes a challenge. It reports false if it was already gone,
// which callers treat as a lost race with another confirmation.
func (c *ChallengeCache) Consume(ctx context.Context, id string) (bool, error) {
	n, err := c.redis.Delete(ctx, c.key(id))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
