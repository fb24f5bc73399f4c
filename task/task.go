// Package task schedules independent units of work and collects their
// results without short-circuiting on failure.
package task

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/semaphore"
)

// Result is the tagged outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the task succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// PanicError is returned for a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Future is a handle on a submitted task.
type Future[T any] struct {
	done   chan struct{}
	result Result[T]
}

// Wait blocks until the task finishes and returns its result.
func (f *Future[T]) Wait() Result[T] {
	<-f.done
	return f.result
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Pool bounds how many submitted tasks run at once. A zero limit means
// unbounded.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool builds a pool running at most limit tasks concurrently.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		return &Pool{}
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Submit runs fn on its own goroutine and returns immediately.
// A panic inside fn is converted into a *PanicError result.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if p != nil && p.sem != nil {
			// Background never cancels, so Acquire only fails on misuse.
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				f.result.Err = err
				return
			}
			defer p.sem.Release(1)
		}
		defer func() {
			if r := recover(); r != nil {
				f.result = Result[T]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
			}
		}()
		value, err := fn()
		f.result = Result[T]{Value: value, Err: err}
	}()
	return f
}

// JoinAll waits for every future and returns the results in submission order.
func JoinAll[T any](futures []*Future[T]) []Result[T] {
	out := make([]Result[T], len(futures))
	for i, f := range futures {
		out[i] = f.Wait()
	}
	return out
}
