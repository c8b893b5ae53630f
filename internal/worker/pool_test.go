package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunAllTasks(t *testing.T) {
	var count int32
	tasks := make([]func(), 20)
	for i := range tasks {
		tasks[i] = func() { atomic.AddInt32(&count, 1) }
	}

	dispatched := NewPool(4).Run(context.Background(), tasks)
	if dispatched != len(tasks) {
		t.Errorf("dispatched %d of %d tasks", dispatched, len(tasks))
	}
	if got := atomic.LoadInt32(&count); got != int32(len(tasks)) {
		t.Errorf("ran %d of %d tasks", got, len(tasks))
	}
}

func TestConcurrencyIsBounded(t *testing.T) {
	const size = 3
	var active, peak int32
	var mu sync.Mutex

	tasks := make([]func(), 30)
	for i := range tasks {
		tasks[i] = func() {
			n := atomic.AddInt32(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}
	}

	NewPool(size).Run(context.Background(), tasks)
	if peak > size {
		t.Errorf("observed %d concurrent tasks, limit is %d", peak, size)
	}
}

func TestCancelStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ran int32
	release := make(chan struct{})
	tasks := make([]func(), 10)
	for i := range tasks {
		tasks[i] = func() {
			atomic.AddInt32(&ran, 1)
			<-release
		}
	}

	done := make(chan int)
	go func() { done <- NewPool(2).Run(ctx, tasks) }()

	// let the first two tasks start, then cancel while they block
	for atomic.LoadInt32(&ran) < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	// the pool is full and both slots block on release, so the dispatcher
	// can only observe the cancellation; let it do so before unblocking
	time.Sleep(10 * time.Millisecond)
	close(release)

	dispatched := <-done
	if dispatched >= len(tasks) {
		t.Errorf("expected early stop, dispatched %d", dispatched)
	}
	if got := atomic.LoadInt32(&ran); got != int32(dispatched) {
		t.Errorf("dispatched %d but ran %d; in-flight tasks must finish and no more", dispatched, got)
	}
}

func TestZeroSizeStillRuns(t *testing.T) {
	ran := false
	NewPool(0).Run(context.Background(), []func(){func() { ran = true }})
	if !ran {
		t.Error("task did not run")
	}
}
