package pool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/imamik/hstack/internal/metrics"
)

// Pool bounds the number of concurrently running creation tasks.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	metrics  *metrics.Metrics
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolMetrics reports slot usage.
func WithPoolMetrics(m *metrics.Metrics) PoolOption {
	return func(p *Pool) {
		p.metrics = m
	}
}

// NewPool creates a pool with the given capacity. Sizes below 1 are raised
// to 1.
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.size }

// InFlight returns the number of slots currently held.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inFlight.Add(1)
	p.metrics.PoolAcquired()
	return nil
}

// Release frees a slot taken by Acquire.
func (p *Pool) Release() {
	p.inFlight.Add(-1)
	p.metrics.PoolReleased()
	p.sem.Release(1)
}

// Do runs fn while holding a slot.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}
	defer p.Release()
	return fn(ctx)
}
