package infra

import (
	"context"
	"sync"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"
)

// BucketStore é a alternativa token-bucket (x/time/rate) para regras que toleram
// rajadas: a quota vira taxa Limit/Window com burst Limit.
// Cache por chave limitado por LRU e limpeza periódica de chaves ociosas.
type BucketStore struct {
	mu           sync.Mutex
	entries      *simplelru.LRU[string, *bucketEntry]
	now          func() time.Time
	maxKeys      int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	quota    domain.Quota
	lastSeen time.Time
}

var _ domain.Limiter = (*BucketStore)(nil)

type StoreOption func(*BucketStore)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

func WithBucketMaxKeys(n int) StoreOption {
	return func(s *BucketStore) { s.maxKeys = n }
}

func WithBucketClock(now func() time.Time) StoreOption {
	return func(s *BucketStore) { s.now = now }
}

func NewBucketStore(opts ...StoreOption) *BucketStore {
	s := &BucketStore{
		now:          time.Now,
		maxKeys:      DefaultMaxKeys,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxKeys <= 0 {
		s.maxKeys = DefaultMaxKeys
	}
	s.entries, _ = simplelru.NewLRU[string, *bucketEntry](s.maxKeys, nil)
	return s
}

func (s *BucketStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Hit implementa domain.Limiter.
func (s *BucketStore) Hit(_ context.Context, key domain.Key, q domain.Quota) (domain.Result, error) {
	if !q.Valid() {
		return domain.Result{Allowed: false, Limit: max(q.Limit, 0)}, nil
	}
	now := s.now()
	lim := s.get(string(key), q, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	resetAt := now
	if tokens < 1 {
		perToken := max(q.Window/time.Duration(q.Limit), time.Nanosecond)
		resetAt = now.Add(time.Duration((1 - tokens) * float64(perToken)))
	}
	return domain.Result{
		Allowed:   allowed,
		Limit:     q.Limit,
		Remaining: max(int(tokens), 0),
		ResetAt:   resetAt,
	}, nil
}

func (s *BucketStore) get(key string, q domain.Quota, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries.Get(key); ok && ent.quota == q {
		ent.lastSeen = now
		return ent.lim
	}

	// Window < Limit ns daria 0, que rate.Every trata como taxa infinita.
	every := max(q.Window/time.Duration(q.Limit), time.Nanosecond)
	lim := rate.NewLimiter(rate.Every(every), q.Limit)
	s.entries.Add(key, &bucketEntry{lim: lim, quota: q, lastSeen: now})
	return lim
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Cleanup remove chaves sem uso há mais de idleTTL.
func (s *BucketStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.entries.Keys() {
		if ent, ok := s.entries.Peek(k); ok && ent.lastSeen.Before(cutoff) {
			s.entries.Remove(k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *BucketStore) StartJanitor(ctx DoneContext) {
	startTicker(ctx, s.cleanupEvery, s.Cleanup)
}
