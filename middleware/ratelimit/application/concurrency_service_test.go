package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingPool struct{}

func (p *blockingPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case <-time.After(5 * time.Second):
		return nil, false
	}
}

type immediatePool struct {
	acquired int
}

func (p *immediatePool) Acquire(context.Context) (func(), bool) {
	p.acquired++
	return func() {}, true
}

func TestConcurrencyService_Acquire_AllowsWhenNoPool(t *testing.T) {
	release, ok := ConcurrencyService{}.Acquire(context.Background())
	require.True(t, ok)
	release()
}

func TestConcurrencyService_Acquire_UsesTimeoutAndReportsReject(t *testing.T) {
	rejects := 0
	svc := ConcurrencyService{
		Pool:           &blockingPool{},
		AcquireTimeout: 10 * time.Millisecond,
		OnReject:       func() { rejects++ },
	}

	_, ok := svc.Acquire(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 1, rejects)
}

func TestConcurrencyService_Acquire_NoTimeoutDelegatesToPool(t *testing.T) {
	pool := &immediatePool{}
	svc := ConcurrencyService{Pool: pool}

	_, ok := svc.Acquire(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, pool.acquired)
}
