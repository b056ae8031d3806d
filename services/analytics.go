package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"knowledge-retrieval-platform/internal/logger"
)

const analyticsTTL = 30 * 24 * time.Hour

// Analytics keeps per-organization usage counters in Redis. An in-process
// map would reset on restart and diverge across instances, so the counters
// live in the shared cache. A nil *Analytics is a no-op, counters are
// best-effort and never fail a request.
type Analytics struct {
	rdb *redis.Client
}

func NewAnalytics(rdb *redis.Client) *Analytics {
	if rdb == nil {
		return nil
	}
	return &Analytics{rdb: rdb}
}

func (a *Analytics) RecordSearch(ctx context.Context, organizationID, mode string) {
	a.increment(ctx, fmt.Sprintf("analytics:%s:searches:%s", organizationID, mode), 1)
}

func (a *Analytics) RecordDocumentIndexed(ctx context.Context, organizationID string) {
	a.increment(ctx, fmt.Sprintf("analytics:%s:indexed", organizationID), 1)
}

func (a *Analytics) RecordVectorsReclaimed(ctx context.Context, organizationID string, count int) {
	a.increment(ctx, fmt.Sprintf("analytics:%s:reclaimed", organizationID), int64(count))
}

// SearchCount returns today's search counter for an organization and mode.
func (a *Analytics) SearchCount(ctx context.Context, organizationID, mode string) (int64, error) {
	if a == nil {
		return 0, nil
	}
	key := dailyKey(fmt.Sprintf("analytics:%s:searches:%s", organizationID, mode))
	n, err := a.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (a *Analytics) increment(ctx context.Context, key string, delta int64) {
	if a == nil {
		return
	}
	key = dailyKey(key)
	pipe := a.rdb.Pipeline()
	pipe.IncrBy(ctx, key, delta)
	pipe.Expire(ctx, key, analyticsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Debug("Analytics increment failed", "key", key, "error", err)
	}
}

func dailyKey(prefix string) string {
	return fmt.Sprintf("%s:%s", prefix, time.Now().UTC().Format("2006-01-02"))
}
