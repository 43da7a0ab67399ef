package download

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const width = 3
	pool := NewPool(context.Background(), width)

	var running, peak atomic.Int32
	var done atomic.Int32
	for range 12 {
		pool.Submit(func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
		})
	}
	pool.Wait()

	if got := done.Load(); got != 12 {
		t.Errorf("completed %d jobs, want 12", got)
	}
	if got := peak.Load(); got > width {
		t.Errorf("peak concurrency %d exceeds width %d", got, width)
	}
	if pool.InFlight() != 0 {
		t.Errorf("InFlight = %d after Wait", pool.InFlight())
	}
}

func TestPool_JobsSeeContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	var sawCancel atomic.Bool
	pool.Submit(func(ctx context.Context) {
		defer wg.Done()
		<-ctx.Done()
		sawCancel.Store(true)
	})
	cancel()
	pool.Wait()
	wg.Wait()

	if !sawCancel.Load() {
		t.Error("job did not observe cancellation")
	}
}

func TestNewPool_DefaultWidth(t *testing.T) {
	t.Parallel()

	pool := NewPool(context.Background(), 0)
	var count atomic.Int32
	for range DefaultWorkers {
		pool.Submit(func(context.Context) { count.Add(1) })
	}
	pool.Wait()
	if count.Load() != DefaultWorkers {
		t.Errorf("ran %d jobs, want %d", count.Load(), DefaultWorkers)
	}
}
