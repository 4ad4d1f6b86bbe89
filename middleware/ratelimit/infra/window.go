package infra

import (
	"context"
	"sync"
	"time"

	"storefront-guard/middleware/ratelimit/domain"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultMaxKeys é a capacidade padrão do store em memória.
const DefaultMaxKeys = 10000

type windowEntry struct {
	count   int
	resetAt time.Time
}

// FixedWindow é o guard de admissão por janela fixa: conta requisições por chave
// em intervalos não sobrepostos de tamanho `window`.
//
// O store é limitado: acima de maxKeys a chave usada menos recentemente é
// descartada (LRU) e, se voltar, começa uma janela nova. Entradas com janela
// vencida também podem ser removidas pelo Sweep/StartJanitor.
type FixedWindow struct {
	mu        sync.Mutex
	entries   *simplelru.LRU[string, *windowEntry]
	evictions uint64

	now        func() time.Time
	maxKeys    int
	sweepEvery time.Duration
}

var _ domain.Limiter = (*FixedWindow)(nil)

type WindowOption func(*FixedWindow)

// WithClock troca o relógio (útil em testes).
func WithClock(now func() time.Time) WindowOption {
	return func(w *FixedWindow) { w.now = now }
}

func WithMaxKeys(n int) WindowOption {
	return func(w *FixedWindow) { w.maxKeys = n }
}

// WithSweepEvery define o intervalo do janitor. 0 desliga.
func WithSweepEvery(d time.Duration) WindowOption {
	return func(w *FixedWindow) { w.sweepEvery = d }
}

func NewFixedWindow(opts ...WindowOption) *FixedWindow {
	w := &FixedWindow{
		now:        time.Now,
		maxKeys:    DefaultMaxKeys,
		sweepEvery: time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.maxKeys <= 0 {
		w.maxKeys = DefaultMaxKeys
	}
	// NewLRU só falha com tamanho <= 0.
	w.entries, _ = simplelru.NewLRU[string, *windowEntry](w.maxKeys, nil)
	return w
}

// Allow decide se mais uma requisição de `key` cabe em `limit` por `window`.
//
// Nunca falha: quota inválida (limit <= 0 ou window <= 0) nega sem alterar estado.
func (w *FixedWindow) Allow(key string, limit int, window time.Duration) bool {
	return w.hit(key, domain.Quota{Limit: limit, Window: window}).Allowed
}

// Hit implementa domain.Limiter.
func (w *FixedWindow) Hit(_ context.Context, key domain.Key, q domain.Quota) (domain.Result, error) {
	return w.hit(string(key), q), nil
}

func (w *FixedWindow) hit(key string, q domain.Quota) domain.Result {
	if !q.Valid() {
		return domain.Result{Allowed: false, Limit: max(q.Limit, 0)}
	}
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	ent, ok := w.entries.Get(key)
	if !ok || !now.Before(ent.resetAt) {
		// janela nova: a entrada é substituída, nunca "rebobinada".
		ent = &windowEntry{count: 1, resetAt: now.Add(q.Window)}
		if w.entries.Add(key, ent) {
			w.evictions++
		}
		return windowResult(true, q, ent)
	}
	if ent.count >= q.Limit {
		return windowResult(false, q, ent)
	}
	ent.count++
	return windowResult(true, q, ent)
}

// Refund devolve uma vaga tomada por Hit, desde que a janela ainda seja a mesma
// (resetAt igual ao do Result). Janela já trocada ou entrada evictada: nada a fazer.
func (w *FixedWindow) Refund(key string, resetAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ent, ok := w.entries.Peek(key)
	if !ok || !ent.resetAt.Equal(resetAt) || ent.count == 0 {
		return
	}
	ent.count--
}

func windowResult(allowed bool, q domain.Quota, ent *windowEntry) domain.Result {
	return domain.Result{
		Allowed:   allowed,
		Limit:     q.Limit,
		Remaining: max(q.Limit-ent.count, 0),
		ResetAt:   ent.resetAt,
	}
}

// Len retorna quantas chaves estão sendo rastreadas.
func (w *FixedWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries.Len()
}

// Evictions retorna quantas chaves foram descartadas por capacidade.
func (w *FixedWindow) Evictions() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evictions
}

func (w *FixedWindow) MaxKeys() int { return w.maxKeys }

// Sweep remove entradas cuja janela já fechou e retorna quantas saíram.
func (w *FixedWindow) Sweep() int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for _, k := range w.entries.Keys() {
		ent, ok := w.entries.Peek(k)
		if ok && !now.Before(ent.resetAt) {
			w.entries.Remove(k)
			removed++
		}
	}
	return removed
}

// StartJanitor inicia uma goroutine que chama Sweep periodicamente.
// Pare cancelando o contexto.
func (w *FixedWindow) StartJanitor(ctx DoneContext) {
	startTicker(ctx, w.sweepEvery, func() { w.Sweep() })
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}

func startTicker(ctx DoneContext, every time.Duration, fn func()) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}
