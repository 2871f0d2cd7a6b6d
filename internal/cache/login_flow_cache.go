package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/intertool/cardinsight_api/internal/models"
)

// LoginFlowCache keeps login flow state between requests.
type LoginFlowCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewLoginFlowCache creates a LoginFlowCache whose entries expire after ttl
// of inactivity.
func NewLoginFlowCache(redis *RedisClient, ttl time.Duration) *LoginFlowCache {
	return &LoginFlowCache{redis: redis, ttl: ttl}
}

func (c *LoginFlowCache) key(flowID string) string {
	return fmt.Sprintf("login:flow:%s", flowID)
}

// TTL returns the inactivity timeout applied on every Save.
func (c *LoginFlowCache) TTL() time.Duration {
	return c.ttl
}

// Save stores flow and refreshes its TTL.
func (c *LoginFlowCache) Save(ctx context.Context, flow *models.LoginFlow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal login flow: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(flow.ID), string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to save login flow: %w", err)
	}
	return nil
}

// Get loads a flow. Missing or expired flows return ErrNotFound.
func (c *LoginFlowCache) Get(ctx context.Context, flowID string) (*models.LoginFlow, error) {
	raw, err := c.redis.Get(ctx, c.key(flowID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load login flow: %w", err)
	}

	var flow models.LoginFlow
	if err := json.Unmarshal([]byte(raw), &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login flow: %w", err)
	}
	return &flow, nil
}

// Delete removes a flow.
func (c *LoginFlowCache) Delete(ctx context.Context, flowID string) error {
	_, err := c.redis.Delete(ctx, c.key(flowID))
	return err
}
