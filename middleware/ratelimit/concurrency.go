package ratelimit

import (
	"net/http"
	"time"

	"storefront-guard/internal/httpjson"
	"storefront-guard/middleware/ratelimit/application"
	"storefront-guard/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Metrics        *Metrics
}

// ConcurrencyMiddleware limita quantas requisições seguem em paralelo para o upstream.
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
		OnReject:       opts.Metrics.observeInFlightReject,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				httpjson.Error(w, opts.RejectStatus, "")
				return
			}
			defer release()
			defer opts.Metrics.trackInFlight()()

			next.ServeHTTP(w, r)
		})
	}
}
