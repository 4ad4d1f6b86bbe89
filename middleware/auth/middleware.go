package auth

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"storefront-guard/internal/httpjson"
	"storefront-guard/middleware/ratelimit"
	"storefront-guard/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// FailureWindow conta tentativas falhas por cliente. infra.FixedWindow satisfaz.
//
// Hit reserva a vaga de forma atômica antes da comparação; Refund devolve a vaga
// quando o token confere.
type FailureWindow interface {
	Hit(ctx context.Context, key domain.Key, q domain.Quota) (domain.Result, error)
	Refund(key string, resetAt time.Time)
}

type Options struct {
	// Token é o segredo esperado. Vazio rejeita toda requisição protegida.
	Token             string
	ProtectedPrefixes []string

	Failures     FailureWindow
	FailureQuota domain.Quota

	KeyFn   ratelimit.KeyFunc
	Logger  *zap.Logger
	Metrics *Metrics
}

// Middleware exige "Authorization: Bearer <token>" nos prefixes protegidos.
//
// Token inválido responde 401 com WWW-Authenticate. Depois de FailureQuota.Limit
// falhas na janela o cliente recebe 429 sem que o token seja comparado. Cada
// comparação ocupa uma vaga da janela enquanto roda, então requisições
// simultâneas do mesmo cliente não passam de FailureQuota.Limit comparações.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("", false)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	throttle := opts.Failures != nil && opts.FailureQuota.Valid()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !protected(opts.ProtectedPrefixes, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key := opts.KeyFn(r)

			var slot domain.Result
			if throttle {
				// FixedWindow em memória não devolve erro.
				slot, _ = opts.Failures.Hit(r.Context(), domain.Key(key), opts.FailureQuota)
				if !slot.Allowed {
					opts.Metrics.observe(resultThrottled)
					w.Header().Set("Retry-After", retryAfter(time.Until(slot.ResetAt)))
					httpjson.Error(w, http.StatusTooManyRequests, "too many failed authentication attempts")
					return
				}
			}

			if Verify(BearerToken(r.Header.Get("Authorization")), opts.Token) {
				if throttle {
					opts.Failures.Refund(key, slot.ResetAt)
				}
				opts.Metrics.observe(resultAccepted)
				next.ServeHTTP(w, r)
				return
			}

			opts.Metrics.observe(resultRejected)
			opts.Logger.Warn("authentication failed",
				zap.String("key", key),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path))

			w.Header().Set("WWW-Authenticate", `Bearer realm="storefront-guard"`)
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func protected(prefixes []string, path string) bool {
	for _, p := range prefixes {
		if p != "" && domain.PathHasPrefix(path, p) {
			return true
		}
	}
	return false
}

func retryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
