package application

import (
	"context"
	"time"

	"storefront-guard/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit: escolhe o limiter da regra,
// aplica a política de falha e calcula o Retry-After.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Limiters map[domain.Algorithm]domain.Limiter
	// FailOpen libera a requisição quando o limiter falha (ex: Redis fora).
	FailOpen bool
	// RetryAfter é o piso usado quando o limiter não sabe quando a janela reabre.
	RetryAfter time.Duration
	Now        func() time.Time
}

func (s Service) Decide(ctx context.Context, rule domain.Rule, client domain.Key) domain.Decision {
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}

	alg := rule.Algorithm
	if alg == "" {
		alg = domain.AlgorithmFixedWindow
	}
	lim := s.Limiters[alg]
	if lim == nil {
		return domain.Decision{Allowed: true}
	}

	res, err := lim.Hit(ctx, rule.ScopedKey(client), rule.Quota)
	if err != nil {
		dec := domain.Decision{Allowed: s.FailOpen, Limit: rule.Quota.Limit, Err: err}
		if !dec.Allowed {
			dec.RetryAfter = s.RetryAfter
		}
		return dec
	}

	dec := domain.Decision{Allowed: res.Allowed, Limit: res.Limit, Remaining: res.Remaining}
	if !res.Allowed {
		dec.RetryAfter = s.RetryAfter
		if wait := res.ResetAt.Sub(s.now()); wait > dec.RetryAfter {
			dec.RetryAfter = wait
		}
	}
	return dec
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
