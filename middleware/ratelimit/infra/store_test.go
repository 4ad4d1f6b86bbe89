package infra

import (
	"context"
	"testing"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStore_BurstThenRefill(t *testing.T) {
	clk := newFakeClock()
	s := NewBucketStore(WithBucketClock(clk.Now))
	ctx := context.Background()
	q := domain.Quota{Limit: 2, Window: 2 * time.Second} // 1 token/s, burst 2

	r1, _ := s.Hit(ctx, "k", q)
	r2, _ := s.Hit(ctx, "k", q)
	r3, _ := s.Hit(ctx, "k", q)
	require.True(t, r1.Allowed)
	require.True(t, r2.Allowed)
	require.False(t, r3.Allowed)
	assert.Equal(t, clk.Now().Add(time.Second), r3.ResetAt)

	clk.Advance(time.Second)
	r4, err := s.Hit(ctx, "k", q)
	require.NoError(t, err)
	assert.True(t, r4.Allowed)
}

func TestBucketStore_SameKeyKeepsLimiterUnlessQuotaChanges(t *testing.T) {
	clk := newFakeClock()
	s := NewBucketStore(WithBucketClock(clk.Now))
	ctx := context.Background()

	q1 := domain.Quota{Limit: 1, Window: time.Hour}
	r, _ := s.Hit(ctx, "k", q1)
	require.True(t, r.Allowed)
	r, _ = s.Hit(ctx, "k", q1)
	require.False(t, r.Allowed)

	// quota nova recria o limiter.
	r, _ = s.Hit(ctx, "k", domain.Quota{Limit: 5, Window: time.Hour})
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, s.Len())
}

func TestBucketStore_CleanupRemovesIdleEntries(t *testing.T) {
	clk := newFakeClock()
	s := NewBucketStore(WithBucketClock(clk.Now), WithIdleTTL(time.Minute), WithCleanupEvery(0))
	ctx := context.Background()

	_, _ = s.Hit(ctx, "idle", domain.Quota{Limit: 1, Window: time.Second})
	clk.Advance(2 * time.Minute)
	_, _ = s.Hit(ctx, "fresh", domain.Quota{Limit: 1, Window: time.Second})

	s.Cleanup()
	assert.Equal(t, 1, s.Len())
}

func TestBucketStore_InvalidQuotaDenies(t *testing.T) {
	s := NewBucketStore()
	r, err := s.Hit(context.Background(), "k", domain.Quota{})
	require.NoError(t, err)
	assert.False(t, r.Allowed)
}

func TestBucketStore_TinyWindowStillLimitsBurst(t *testing.T) {
	clk := newFakeClock()
	s := NewBucketStore(WithBucketClock(clk.Now))
	q := domain.Quota{Limit: 10, Window: 5 * time.Nanosecond}

	allowed := 0
	for i := 0; i < 20; i++ {
		r, err := s.Hit(context.Background(), "k", q)
		require.NoError(t, err)
		if r.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}
