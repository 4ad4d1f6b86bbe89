package infra

import (
	"context"
	"sync"

	"storefront-guard/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c Counters) add(allowed bool) Counters {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	return c
}

// Snapshot é a cópia das estatísticas servida em /guard/stats.
type Snapshot struct {
	Total   Counters            `json:"total"`
	ByRule  map[string]Counters `json:"by_rule"`
	ByRoute map[string]Counters `json:"by_route"`
	ByKey   map[string]Counters `json:"by_key,omitempty"`
}

// MemoryStatsStore é uma implementação simples em memória.
//
// Não faz expiração: com trackKeys ligado a cardinalidade cresce por cliente.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRule  map[string]Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRule:  make(map[string]Counters),
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = s.total.add(ev.Allowed)
	s.byRoute[route] = s.byRoute[route].add(ev.Allowed)
	if ev.Rule != "" {
		s.byRule[ev.Rule] = s.byRule[ev.Rule].add(ev.Allowed)
	}
	if s.trackKeys {
		k := string(ev.Key)
		s.byKey[k] = s.byKey[k].add(ev.Allowed)
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Total:   s.total,
		ByRule:  copyCounters(s.byRule),
		ByRoute: copyCounters(s.byRoute),
	}
	if s.trackKeys {
		snap.ByKey = copyCounters(s.byKey)
	}
	return snap
}

func copyCounters(in map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MultiStats grava o mesmo evento em vários stores; devolve o primeiro erro.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
