package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-guard/internal/httpjson"
	"storefront-guard/middleware/auth"
	"storefront-guard/middleware/ratelimit"
	"storefront-guard/middleware/ratelimit/domain"
	"storefront-guard/middleware/ratelimit/infra"
	"storefront-guard/middleware/reqlog"

	"go.uber.org/zap"
)

// Exemplo: os guards embutidos direto num webserver, sem reverse proxy.
func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	window := infra.NewFixedWindow()
	window.StartJanitor(ctx)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(window, os.Getenv("ADMIN_TOKEN"), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newHandler(window *infra.FixedWindow, adminToken string, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/quote", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusAccepted, map[string]string{"status": "quote received"})
	})
	mux.HandleFunc("GET /api/admin/quotes", func(w http.ResponseWriter, r *http.Request) {
		httpjson.Write(w, http.StatusOK, []string{})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = ratelimit.Middleware(ratelimit.Options{
		Limiters: map[domain.Algorithm]domain.Limiter{domain.AlgorithmFixedWindow: window},
		Rules: domain.RuleSet{
			{Name: "quote-request", PathPrefix: "/api/quote", Methods: []string{http.MethodPost}, Quota: domain.Quota{Limit: 5, Window: 10 * time.Minute}},
		},
		KeyHeader:           "X-Api-Key", // ou vazio para usar IP
		TrustXForwardedFor:  true,
		AddRateLimitHeaders: true,
		Logger:              logger,
	})(h)
	h = auth.Middleware(auth.Options{
		Token:             adminToken,
		ProtectedPrefixes: []string{"/api/admin"},
		Logger:            logger,
	})(h)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(h)
	return reqlog.RequestID(h)
}
