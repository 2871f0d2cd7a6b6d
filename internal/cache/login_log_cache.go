package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/intertool/cardinsight_api/internal/models"
)

const (
	// LoginLogsKey is the list holding recent access logs, newest first.
	LoginLogsKey = "loginLogs"
	// MaxLoginLogs is how many entries the list keeps.
	MaxLoginLogs = 10
)

// LoginLogCache stores the most recent login log entries.
type LoginLogCache struct {
	redis *RedisClient
}

// NewLoginLogCache creates a new LoginLogCache.
func NewLoginLogCache(redis *RedisClient) *LoginLogCache {
	return &LoginLogCache{redis: redis}
}

// Append records entry as the newest log and drops anything past MaxLoginLogs.
func (c *LoginLogCache) Append(ctx context.Context, entry *models.LoginLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal login log: %w", err)
	}
	if err := c.redis.PushCapped(ctx, LoginLogsKey, string(data), MaxLoginLogs); err != nil {
		return fmt.Errorf("failed to push login log: %w", err)
	}
	return nil
}

// Recent returns the stored logs, newest first. Entries that fail to decode
// are skipped.
func (c *LoginLogCache) Recent(ctx context.Context) ([]models.LoginLog, error) {
	raw, err := c.redis.Range(ctx, LoginLogsKey, 0, MaxLoginLogs-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read login logs: %w", err)
	}

	logs := make([]models.LoginLog, 0, len(raw))
	for _, item := range raw {
		var entry models.LoginLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed login log entry")
			continue
		}
		logs = append(logs, entry)
	}
	return logs, nil
}
