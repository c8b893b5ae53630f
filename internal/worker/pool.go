package worker

import (
	"context"
	"sync"
)

// Pool dispatches tasks across a bounded number of goroutines. Dispatch
// observes context cancellation between tasks: work not yet started is
// abandoned, tasks already running finish naturally and are never killed.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewPool returns a pool running at most size tasks concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Run dispatches every task in order, blocking when the pool is full, and
// returns the number of tasks dispatched. On cancellation it stops
// dispatching, waits for in-flight tasks, and returns early.
func (p *Pool) Run(ctx context.Context, tasks []func()) int {
	dispatched := 0
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return dispatched
		case p.sem <- struct{}{}:
		}
		dispatched++
		p.wg.Add(1)
		go func(fn func()) {
			defer p.wg.Done()
			defer func() { <-p.sem }()
			fn()
		}(task)
	}
	p.wg.Wait()
	return dispatched
}
