// Package redisconn abre o cliente Redis compartilhado pelo rate limit e pelas estatísticas.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"storefront-guard/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 2 * time.Second

// Connect cria o cliente e espera o primeiro PING responder, com backoff
// exponencial de até cfg.MaxRetries tentativas extras.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	var b backoff.BackOff = eb
	if cfg.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(eb, uint64(cfg.MaxRetries))
	}
	bctx := backoff.WithContext(b, ctx)

	op := func() error {
		pingCtx, cancel := context.WithTimeout(bctx.Context(), pingTimeout)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("redis not ready, retrying",
			zap.String("addr", cfg.Addr),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, bctx, notify); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
