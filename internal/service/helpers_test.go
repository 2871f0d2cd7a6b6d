package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/intertool/cardinsight_api/internal/cache"
	"github.com/intertool/cardinsight_api/internal/models"
)

func newTestRedis(t *testing.T) (*cache.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return cache.WrapRedisClient(rdb), mr
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type recordingNotifier struct {
	logs     []*models.LoginLog
	analyses []*models.CardAnalysis
}

func (n *recordingNotifier) NotifyLoginLogged(entry *models.LoginLog) {
	n.logs = append(n.logs, entry)
}

func (n *recordingNotifier) NotifyAnalysisRecorded(record *models.CardAnalysis) {
	n.analyses = append(n.analyses, record)
}
