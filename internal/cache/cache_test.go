package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/intertool/cardinsight_api/internal/models"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
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
	return WrapRedisClient(rdb), mr
}

func TestLoginLogCacheCapsAndOrdersNewestFirst(t *testing.T) {
	rc, _ := newTestRedis(t)
	logs := NewLoginLogCache(rc)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		entry := &models.LoginLog{
			ID:        fmt.Sprintf("log-%02d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			IPAddress: "192.168.1.1",
			Status:    models.LoginStatusSuccess,
			Step:      models.StepCredentials,
		}
		if err := logs.Append(ctx, entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := logs.Recent(ctx)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != MaxLoginLogs {
		t.Fatalf("expected %d logs, got %d", MaxLoginLogs, len(got))
	}
	if got[0].ID != "log-14" || got[len(got)-1].ID != "log-05" {
		t.Fatalf("unexpected order: first=%s last=%s", got[0].ID, got[len(got)-1].ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("logs not newest-first at %d", i)
		}
	}

	n, err := rc.client.LLen(ctx, LoginLogsKey).Result()
	if err != nil {
		t.Fatalf("llen: %v", err)
	}
	if n != MaxLoginLogs {
		t.Fatalf("expected stored list length %d, got %d", MaxLoginLogs, n)
	}
}

func TestLoginLogCacheSkipsMalformed(t *testing.T) {
	rc, _ := newTestRedis(t)
	logs := NewLoginLogCache(rc)
	ctx := context.Background()

	if err := rc.PushCapped(ctx, LoginLogsKey, "{not json", MaxLoginLogs); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := logs.Append(ctx, &models.LoginLog{ID: "ok", Status: models.LoginStatusFailed}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := logs.Recent(ctx)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("expected only the valid entry, got %+v", got)
	}
}

func TestLoginFlowCacheExpires(t *testing.T) {
	rc, mr := newTestRedis(t)
	flows := NewLoginFlowCache(rc, time.Minute)
	ctx := context.Background()

	flow := &models.LoginFlow{ID: "f1", Step: models.StepAuthenticator, Email: "demo@company.com"}
	if err := flows.Save(ctx, flow); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := flows.Get(ctx, "f1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != models.StepAuthenticator || got.Email != flow.Email {
		t.Fatalf("unexpected flow: %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := flows.Get(ctx, "f1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestChallengeCacheConsumeOnce(t *testing.T) {
	rc, _ := newTestRedis(t)
	challenges := NewChallengeCache(rc, "admin:login", time.Minute)
	ctx := context.Background()

	ch := &Challenge{ID: "c1", Email: "admin@company.com", CodeHash: "hash"}
	if err := challenges.Save(ctx, ch); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ch.ExpiresAt.IsZero() {
		t.Fatal("expected ExpiresAt to be stamped")
	}
	got, err := challenges.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CodeHash != "hash" {
		t.Fatalf("unexpected challenge %+v", got)
	}

	ok, err := challenges.Consume(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("first consume: ok=%v err=%v", ok, err)
	}
	ok, err = challenges.Consume(ctx, "c1")
	if err != nil || ok {
		t.Fatalf("second consume: ok=%v err=%v", ok, err)
	}
	if _, err := challenges.Get(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
