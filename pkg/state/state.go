// Package state tracks a value that is loaded asynchronously after process
// start, such as the server's retriever.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotInitialized = errors.New("not initialized yet")
	ErrInitFailed     = errors.New("initialization failed")
)

// Status is the lifecycle position of a Future.
type Status int

const (
	Uninitialized Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "initializing"
	}
}

// Future holds the outcome of a single load. It is resolved exactly once
// and never reloaded.
type Future[T any] struct {
	once   sync.Once
	mu     sync.RWMutex
	status Status
	value  T
	err    error
	done   chan struct{}
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Start runs load in its own goroutine. Calls after the first are ignored.
func (f *Future[T]) Start(ctx context.Context, load func(context.Context) (T, error)) {
	f.once.Do(func() {
		go func() {
			value, err := load(ctx)
			f.resolve(value, err)
		}()
	})
}

func (f *Future[T]) resolve(value T, err error) {
	f.mu.Lock()
	if err != nil {
		f.status = Failed
		f.err = err
	} else {
		f.status = Ready
		f.value = value
	}
	f.mu.Unlock()
	close(f.done)
}

// Status reports the current state without blocking.
func (f *Future[T]) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// Get returns the loaded value, ErrNotInitialized while loading, or an
// error wrapping ErrInitFailed if the load failed.
func (f *Future[T]) Get() (T, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var zero T
	switch f.status {
	case Ready:
		return f.value, nil
	case Failed:
		return zero, fmt.Errorf("%w: %w", ErrInitFailed, f.err)
	default:
		return zero, ErrNotInitialized
	}
}

// Await blocks until the future resolves or ctx is done, then behaves like Get.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
	}
	return f.Get()
}

// Done is closed once the future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
