package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"advisor_analytics_backend/internal/analytics/aggregation"
	"advisor_analytics_backend/internal/analytics/domain"
	"advisor_analytics_backend/internal/analytics/service"
	"advisor_analytics_backend/platform/logger"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(rdb, 5*time.Minute, logger.New("development"))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func sampleResult() *service.StatsResult {
	return &service.StatsResult{
		Aggregates: []domain.AdvisorAggregate{{
			AdvisorKey:      "a1",
			AdvisorName:     "Berater a1",
			PlannedCount:    4,
			DocumentedCount: 3,
			CompletionRate:  75,
			MissingCount:    1,
			OutcomeCounts:   map[domain.OutcomeBucket]int{domain.BucketTookPlace: 3},
			TotalClassified: 3,
			Status:          domain.StatusModerate,
		}},
		Source:   aggregation.SourcePrimary,
		Insights: []service.Insight{},
	}
}

func TestGetStatsMissesOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(t)

	if _, ok := c.GetStats(context.Background(), "stats:none"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetStats(ctx, "stats:a", sampleResult())

	got, ok := c.GetStats(ctx, "stats:a")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got.Source != aggregation.SourcePrimary {
		t.Fatalf("expected primary source, got %s", got.Source)
	}
	if len(got.Aggregates) != 1 || got.Aggregates[0].CompletionRate != 75 {
		t.Fatalf("unexpected aggregates: %+v", got.Aggregates)
	}
	if got.Aggregates[0].OutcomeCounts[domain.BucketTookPlace] != 3 {
		t.Fatalf("outcome counts lost in round trip: %v", got.Aggregates[0].OutcomeCounts)
	}
}

func TestInvalidateOrphansExistingEntries(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.SetStats(ctx, "stats:a", sampleResult())
	c.Invalidate(ctx)

	if _, ok := c.GetStats(ctx, "stats:a"); ok {
		t.Fatal("expected miss after invalidation")
	}

	// New writes under the bumped version are visible again.
	c.SetStats(ctx, "stats:a", sampleResult())
	if _, ok := c.GetStats(ctx, "stats:a"); !ok {
		t.Fatal("expected hit after re-set")
	}
}

func TestRedisDownDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.SetStats(ctx, "stats:a", sampleResult())
	mr.Close()

	if _, ok := c.GetStats(ctx, "stats:a"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	// Writes must not panic either.
	c.SetStats(ctx, "stats:b", sampleResult())
	c.Invalidate(ctx)
}
