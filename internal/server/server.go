// Package server monta o guard: roteador chi, cadeia de middlewares e reverse
// proxy para o storefront.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"storefront-guard/internal/config"
	"storefront-guard/internal/httpjson"
	"storefront-guard/middleware/auth"
	"storefront-guard/middleware/ratelimit"
	"storefront-guard/middleware/ratelimit/domain"
	"storefront-guard/middleware/ratelimit/infra"
	"storefront-guard/middleware/reqlog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const guardPrefix = "/guard/"

type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	router chi.Router
	http   *http.Server

	registry     *prometheus.Registry
	window       *infra.FixedWindow
	buckets      *infra.BucketStore
	authFailures *infra.FixedWindow
	stats        *infra.MemoryStatsStore
}

// New monta o servidor. rdb só é usado quando cfg.UsesRedis(); pode ser nil caso contrário.
func New(cfg *config.Config, logger *zap.Logger, rdb redis.UniversalClient) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UsesRedis() && rdb == nil {
		return nil, errors.New("redis backend selected but no redis client given")
	}
	target, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		window: infra.NewFixedWindow(
			infra.WithMaxKeys(cfg.RateLimit.MaxKeys),
			infra.WithSweepEvery(cfg.RateLimit.SweepInterval),
		),
		buckets: infra.NewBucketStore(infra.WithBucketMaxKeys(cfg.RateLimit.MaxKeys)),
		authFailures: infra.NewFixedWindow(
			infra.WithMaxKeys(cfg.RateLimit.MaxKeys),
			infra.WithSweepEvery(cfg.RateLimit.SweepInterval),
		),
	}

	ns := cfg.Server.MetricsNamespace
	rlMetrics := ratelimit.NewMetrics(ns)
	authMetrics := auth.NewMetrics(ns)
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rlMetrics.MustRegister(s.registry)
	authMetrics.MustRegister(s.registry)
	s.registry.MustRegister(ratelimit.NewWindowCollectors(ns, s.window)...)

	keyFn := ratelimit.DefaultKeyFunc(cfg.RateLimit.KeyHeader, cfg.RateLimit.TrustXFF)

	// a cadeia é montada de dentro para fora: proxy <- ratelimit <- auth <- concorrência.
	var h http.Handler = newProxy(target, logger)
	if cfg.RateLimit.Enabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Limiters:            s.limiters(rdb),
			Rules:               cfg.RuleSet(),
			Stats:               s.statsStore(rdb),
			KeyFn:               keyFn,
			RetryAfter:          cfg.RateLimit.RetryAfter,
			FailOpen:            cfg.RateLimit.FailOpen,
			AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
			Logger:              logger.Named("ratelimit"),
			Metrics:             rlMetrics,
		})(h)
	}
	authOpts := auth.Options{
		Token:             cfg.Auth.AdminToken,
		ProtectedPrefixes: cfg.Auth.ProtectedPrefixes,
		Failures:          s.authFailures,
		FailureQuota:      domain.Quota{Limit: cfg.Auth.FailureLimit, Window: cfg.Auth.FailureWindow},
		KeyFn:             keyFn,
		Logger:            logger.Named("auth"),
		Metrics:           authMetrics,
	}
	h = auth.Middleware(authOpts)(h)

	// /guard/ exige token sempre, independente de auth.protected_prefixes.
	guardOpts := authOpts
	guardOpts.ProtectedPrefixes = []string{guardPrefix}
	guardAuth := auth.Middleware(guardOpts)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Server.MaxInFlight,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Server.AcquireTimeout,
		Metrics:        rlMetrics,
	})(h)

	r := chi.NewRouter()
	if cfg.RateLimit.TrustXFF {
		r.Use(middleware.RealIP)
	}
	r.Use(reqlog.RequestID)
	r.Use(reqlog.AccessLog(logger.Named("access")))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	r.With(guardAuth).Get(guardPrefix+"stats", s.handleStats)
	r.Handle("/*", h)
	s.router = r

	s.http = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) limiters(rdb redis.UniversalClient) map[domain.Algorithm]domain.Limiter {
	lims := map[domain.Algorithm]domain.Limiter{
		domain.AlgorithmFixedWindow: s.window,
		domain.AlgorithmTokenBucket: s.buckets,
	}
	if s.cfg.RateLimit.Backend == config.BackendRedis {
		lims[domain.AlgorithmFixedWindow] = infra.NewRedisWindow(rdb,
			infra.WithWindowPrefix(s.cfg.Redis.Prefix+":window"))
	}
	return lims
}

func (s *Server) statsStore(rdb redis.UniversalClient) domain.StatsStore {
	if !s.cfg.Stats.Enabled {
		return nil
	}
	s.stats = infra.NewMemoryStatsStore(infra.WithTrackKeys(s.cfg.Stats.TrackKeys))
	if s.cfg.Stats.Backend != config.BackendRedis {
		return s.stats
	}
	return infra.MultiStats{
		s.stats,
		infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(s.cfg.Stats.Prefix),
			infra.WithStatsTTL(s.cfg.Stats.TTL),
			infra.WithStatsBucket(s.cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(s.cfg.Stats.TrackKeys),
		),
	}
}

func newProxy(target *url.URL, logger *zap.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy error",
			zap.String("request_id", reqlog.FromContext(r.Context())),
			zap.String("upstream", target.String()),
			zap.Error(err))
		httpjson.Error(w, http.StatusBadGateway, "bad gateway")
	}
	return proxy
}

func (s *Server) Handler() http.Handler { return s.router }

// Registry expõe o registro Prometheus (testes e coletores extras).
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Run escuta até ctx ser cancelado e então faz shutdown gracioso.
// Os janitors das janelas em memória vivem o mesmo tempo que ctx.
func (s *Server) Run(ctx context.Context) error {
	s.window.StartJanitor(ctx)
	s.authFailures.StartJanitor(ctx)
	s.buckets.StartJanitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("guard listening",
			zap.String("addr", s.cfg.Server.ListenAddr),
			zap.String("upstream", s.cfg.Upstream.URL),
			zap.Bool("rate_limit", s.cfg.RateLimit.Enabled),
			zap.String("rate_limit_backend", s.cfg.RateLimit.Backend),
			zap.Int("rules", len(s.cfg.RateLimit.Rules)),
			zap.Int("max_in_flight", s.cfg.Server.MaxInFlight))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", s.cfg.Server.ListenAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", s.cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Os campos da janela em memória só aparecem quando ela é a janela ativa.
type statsResponse struct {
	infra.Snapshot
	TrackedKeys *int      `json:"tracked_keys,omitempty"`
	MaxKeys     *int      `json:"max_keys,omitempty"`
	Evictions   *uint64   `json:"evictions,omitempty"`
	At          time.Time `json:"at"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		httpjson.Error(w, http.StatusNotFound, "stats disabled")
		return
	}
	resp := statsResponse{
		Snapshot: s.stats.Snapshot(),
		At:       time.Now().UTC(),
	}
	if s.cfg.RateLimit.Backend != config.BackendRedis {
		tracked, maxKeys, evictions := s.window.Len(), s.window.MaxKeys(), s.window.Evictions()
		resp.TrackedKeys = &tracked
		resp.MaxKeys = &maxKeys
		resp.Evictions = &evictions
	}
	httpjson.Write(w, http.StatusOK, resp)
}
