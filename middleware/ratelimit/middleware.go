package ratelimit

import (
	"net/http"
	"time"

	"storefront-guard/internal/httpjson"
	"storefront-guard/middleware/ratelimit/application"
	"storefront-guard/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

type Options struct {
	Limiters            map[domain.Algorithm]domain.Limiter
	Rules               domain.RuleSet
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	FailOpen            bool
	AddRateLimitHeaders bool
	Logger              *zap.Logger
	Metrics             *Metrics
}

// Middleware aplica a primeira regra que casar com método+caminho.
// Requisições sem regra passam direto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.Service{
		Limiters:   opts.Limiters,
		FailOpen:   opts.FailOpen,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := opts.Rules.Match(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			key := opts.KeyFn(r)

			dec := svc.Decide(r.Context(), rule, domain.Key(key))
			if dec.Err != nil {
				opts.Logger.Warn("rate limiter failure",
					zap.String("rule", rule.Name),
					zap.String("key", key),
					zap.Bool("fail_open", opts.FailOpen),
					zap.Error(dec.Err))
			}
			opts.Metrics.observeDecision(rule.Name, dec)

			if opts.Stats != nil {
				// prefixo da regra, não o caminho completo: segura a cardinalidade.
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Rule:    rule.Name,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    rule.PathPrefix,
					At:      time.Now(),
				})
				if err != nil {
					opts.Logger.Warn("rate limit stats not recorded", zap.Error(err))
				}
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Rule", rule.Name)
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				if dec.Err != nil {
					httpjson.Error(w, http.StatusServiceUnavailable, "rate limiter unavailable")
					return
				}
				opts.Logger.Info("rate limit exceeded",
					zap.String("rule", rule.Name),
					zap.String("key", key),
					zap.String("path", r.URL.Path))
				httpjson.Error(w, opts.RejectStatus, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
