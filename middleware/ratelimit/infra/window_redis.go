package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// Mesma semântica da FixedWindow em memória, mas atômica no Redis:
// negar não incrementa nem mexe no TTL; a primeira hit da janela define o PEXPIRE.
var fixedWindowScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if cur > 0 and cur >= limit then
  return {0, cur, redis.call('PTTL', KEYS[1])}
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, n, redis.call('PTTL', KEYS[1])}
`)

// RedisWindow é uma janela fixa compartilhada entre instâncias do guard.
// O TTL da chave no Redis é o próprio fim da janela, então não há janitor.
type RedisWindow struct {
	rdb    redis.Scripter
	prefix string
	now    func() time.Time
}

var _ domain.Limiter = (*RedisWindow)(nil)

type RedisWindowOption func(*RedisWindow)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(w *RedisWindow) { w.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisWindowOption {
	return func(w *RedisWindow) { w.now = now }
}

func NewRedisWindow(rdb redis.Scripter, opts ...RedisWindowOption) *RedisWindow {
	w := &RedisWindow{
		rdb:    rdb,
		prefix: "ratelimit:window",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *RedisWindow) Hit(ctx context.Context, key domain.Key, q domain.Quota) (domain.Result, error) {
	if !q.Valid() {
		return domain.Result{Allowed: false, Limit: max(q.Limit, 0)}, nil
	}

	windowMs := q.Window.Milliseconds()
	if windowMs < 1 {
		windowMs = 1
	}

	vals, err := fixedWindowScript.Run(ctx, w.rdb, []string{w.prefix + ":" + string(key)}, q.Limit, windowMs).Int64Slice()
	if err != nil {
		return domain.Result{}, fmt.Errorf("redis fixed window %q: %w", key, err)
	}
	if len(vals) != 3 {
		return domain.Result{}, fmt.Errorf("redis fixed window %q: unexpected reply %v", key, vals)
	}

	ttl := time.Duration(vals[2]) * time.Millisecond
	if ttl < 0 {
		// chave sem TTL (não deveria acontecer); trata como janela inteira.
		ttl = q.Window
	}
	return domain.Result{
		Allowed:   vals[0] == 1,
		Limit:     q.Limit,
		Remaining: max(q.Limit-int(vals[1]), 0),
		ResetAt:   w.now().Add(ttl),
	}, nil
}
