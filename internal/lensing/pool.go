package lensing

import "sync"

// TracerPool reuses Tracer evaluation contexts across sweeps so
// parallel workers avoid rebuilding them on every task. A worker
// takes a tracer with Get, keeps it for the whole task (a sweep phase
// or a root search, never returning it mid-task), and gives it back
// with Put. Pooled tracers persist until Clear.
//
// Not a sync.Pool: pooled tracers must survive GC, and Clear must
// actually empty the pool.
type TracerPool[T any] struct {
	mu      sync.Mutex
	free    []Tracer[T]
	factory func() Tracer[T]
}

// NewTracerPool returns an empty pool over the given factory.
func NewTracerPool[T any](factory func() Tracer[T]) *TracerPool[T] {
	return &TracerPool[T]{factory: factory}
}

// Get returns a tracer for the caller's exclusive use, creating one
// if the free list is empty.
func (p *TracerPool[T]) Get() Tracer[T] {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		t := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return t
	}
	p.mu.Unlock()
	return p.factory()
}

// Put returns a tracer to the pool once its task has finished.
func (p *TracerPool[T]) Put(t Tracer[T]) {
	if t == nil {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, t)
	p.mu.Unlock()
}

// Clear discards every pooled tracer. Tracers currently held by
// workers are unaffected and rejoin the pool on their next Put.
func (p *TracerPool[T]) Clear() {
	p.mu.Lock()
	p.free = nil
	p.mu.Unlock()
}

// Idle reports how many tracers sit on the free list.
func (p *TracerPool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
