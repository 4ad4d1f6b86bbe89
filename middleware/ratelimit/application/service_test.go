package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	res     domain.Result
	err     error
	gotKey  domain.Key
	gotCall int
}

func (f *fakeLimiter) Hit(_ context.Context, key domain.Key, _ domain.Quota) (domain.Result, error) {
	f.gotKey = key
	f.gotCall++
	return f.res, f.err
}

var quoteRule = domain.Rule{Name: "quote", Quota: domain.Quota{Limit: 5, Window: time.Minute}}

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	dec := Service{}.Decide(context.Background(), quoteRule, "k")
	require.True(t, dec.Allowed)
	assert.Zero(t, dec.RetryAfter)
}

func TestService_Decide_UsesScopedKeyAndFixedWindowByDefault(t *testing.T) {
	fw := &fakeLimiter{res: domain.Result{Allowed: true, Limit: 5, Remaining: 4}}
	tb := &fakeLimiter{}
	svc := Service{Limiters: map[domain.Algorithm]domain.Limiter{
		domain.AlgorithmFixedWindow: fw,
		domain.AlgorithmTokenBucket: tb,
	}}

	dec := svc.Decide(context.Background(), quoteRule, "1.2.3.4")
	require.True(t, dec.Allowed)
	assert.Equal(t, 4, dec.Remaining)
	assert.Equal(t, domain.Key("quote:1.2.3.4"), fw.gotKey)
	assert.Zero(t, tb.gotCall)
}

func TestService_Decide_BlocksWithRetryAfterUntilReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fw := &fakeLimiter{res: domain.Result{Allowed: false, Limit: 5, ResetAt: now.Add(42 * time.Second)}}
	svc := Service{
		Limiters: map[domain.Algorithm]domain.Limiter{domain.AlgorithmFixedWindow: fw},
		Now:      func() time.Time { return now },
	}

	dec := svc.Decide(context.Background(), quoteRule, "k")
	require.False(t, dec.Allowed)
	assert.Equal(t, 42*time.Second, dec.RetryAfter)
}

func TestService_Decide_BlocksWithRetryAfterFloor(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fw := &fakeLimiter{res: domain.Result{Allowed: false, ResetAt: now.Add(100 * time.Millisecond)}}
	svc := Service{
		Limiters: map[domain.Algorithm]domain.Limiter{domain.AlgorithmFixedWindow: fw},
		Now:      func() time.Time { return now },
	}

	dec := svc.Decide(context.Background(), quoteRule, "k")
	require.False(t, dec.Allowed)
	assert.Equal(t, 1*time.Second, dec.RetryAfter)
}

func TestService_Decide_FailurePolicy(t *testing.T) {
	boom := errors.New("redis down")
	lims := map[domain.Algorithm]domain.Limiter{domain.AlgorithmFixedWindow: &fakeLimiter{err: boom}}

	open := Service{Limiters: lims, FailOpen: true}.Decide(context.Background(), quoteRule, "k")
	assert.True(t, open.Allowed)
	assert.ErrorIs(t, open.Err, boom)

	closed := Service{Limiters: lims, RetryAfter: 3 * time.Second}.Decide(context.Background(), quoteRule, "k")
	assert.False(t, closed.Allowed)
	assert.Equal(t, 3*time.Second, closed.RetryAfter)
	assert.ErrorIs(t, closed.Err, boom)
}
