package download

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the default pool width.
const DefaultWorkers = 5

// Pool runs jobs with bounded concurrency. Submit blocks while all workers
// are busy, which keeps the producer from racing ahead of the disk.
//
// Jobs report their own outcome; a failing job never cancels the others.
type Pool struct {
	group    *errgroup.Group
	ctx      context.Context
	inFlight atomic.Int64
}

// NewPool creates a pool of the given width. A non-positive width uses
// DefaultWorkers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)
	return &Pool{group: g, ctx: ctx}
}

// Submit schedules job. The job receives the pool's context.
func (p *Pool) Submit(job func(ctx context.Context)) {
	p.inFlight.Add(1)
	p.group.Go(func() error {
		defer p.inFlight.Add(-1)
		job(p.ctx)
		return nil
	})
}

// InFlight returns the number of submitted jobs that have not finished.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Wait blocks until every submitted job has finished.
func (p *Pool) Wait() {
	_ = p.group.Wait() //nolint:errcheck // jobs never return errors
}
