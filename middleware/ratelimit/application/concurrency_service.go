package application

import (
	"context"
	"time"

	"storefront-guard/middleware/ratelimit/domain"
)

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
	// OnReject é chamado quando nenhuma vaga foi obtida (métricas/log).
	OnReject func()
}

// Acquire tenta adquirir uma vaga.
// - Se `AcquireTimeout <= 0`, espera até ctx cancelar.
// - Se `AcquireTimeout > 0`, espera até o timeout.
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok && s.OnReject != nil {
		s.OnReject()
	}
	return release, ok
}
