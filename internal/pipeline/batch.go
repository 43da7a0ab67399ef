package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/routescan/internal/model"
)

// Factory creates the pipeline for one target. Each target gets a fresh
// pipeline so that per-site settings and state do not leak between scans.
type Factory func(target string) (*Pipeline, error)

// BatchProcessor scans multiple targets concurrently.
type BatchProcessor struct {
	factory Factory

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor that scans one target at a
// time unless WithConcurrency says otherwise.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch scans targets and returns one Scan per target, in input
// order. Failed scans carry their errors in Scan.StepErrors. Targets that
// were not started before ctx was cancelled have a nil entry, and the
// cancellation error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Scan, error) {
	results := make([]*model.Scan, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(scan *model.Scan, index int) {
		results[index] = scan
	})
	return results, err
}

// ProcessBatchWithCallback scans targets and calls callback for each
// finished scan. The callback runs on the goroutine that finished the
// scan and must be safe for concurrent use when concurrency is above 1.
// The scan is closed after the callback returns.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, targets []string, callback func(scan *model.Scan, index int)) error {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			scan := bp.run(ctx, target, i, len(targets))
			callback(scan, i)
			if err := scan.Close(); err != nil {
				bp.logger.Warn("failed to close scan", "target", target, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)
	return err
}

// run executes the pipeline of one target. Errors end up on the scan.
func (bp *BatchProcessor) run(ctx context.Context, target string, index, total int) *model.Scan {
	scan := model.NewScan(target)

	bp.logger.Info("scanning target", "target", target, "index", index+1, "total", total)

	p, err := bp.factory(target)
	if err != nil {
		scan.StepErrors = append(scan.StepErrors, err)
		bp.logger.Warn("scan failed", "target", target, "error", err)
		return scan
	}

	if err := p.Execute(ctx, scan); err != nil {
		bp.logger.Warn("scan failed", "target", target, "error", err)
		return scan
	}
	if scan.Err() != nil {
		bp.logger.Warn("scan finished with errors", "target", target, "error", scan.Err())
		return scan
	}

	bp.logger.Info("scan completed", "target", target)
	return scan
}
