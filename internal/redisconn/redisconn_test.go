package redisconn

import (
	"context"
	"testing"
	"time"

	"storefront-guard/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConnect_OK(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), config.RedisConfig{Addr: mr.Addr(), MaxRetries: 0}, nil)
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestConnect_GivesUpAfterRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	core, logs := observer.New(zap.WarnLevel)
	_, err := Connect(context.Background(), config.RedisConfig{
		Addr:        addr,
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  2,
	}, zap.New(core))
	require.Error(t, err)
	assert.Contains(t, err.Error(), addr)
	assert.Equal(t, 2, logs.FilterMessage("redis not ready, retrying").Len())
}

func TestConnect_StopsOnContextCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Connect(ctx, config.RedisConfig{Addr: addr, MaxRetries: 100}, nil)
	require.Error(t, err)
}
