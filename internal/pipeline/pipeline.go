package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/routescan/internal/model"
)

// Step is one stage of a scan.
type Step interface {
	// Do executes the step. Non-critical problems that do not prevent the
	// step from producing its result should be logged, not returned.
	Do(ctx context.Context, scan *model.Scan) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// CriticalStep is implemented by steps whose failure must stop the
// pipeline even when it continues on error.
type CriticalStep interface {
	Critical() bool
}

// FinalizingStep is implemented by steps that must still run after the
// context is cancelled. They run with a context that is not cancelled.
type FinalizingStep interface {
	Finalizing() bool
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after a non-critical one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used until the scan has its own.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a non-critical step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in order.
//
// It returns the error of a critical step, or of any step when the
// pipeline does not continue on error. If ctx is cancelled, the remaining
// non-finalizing steps are skipped, scan.Cancelled is set and ctx.Err() is
// returned after the finalizing steps have run.
func (p *Pipeline) Execute(ctx context.Context, scan *model.Scan) error {
	for _, step := range p.steps {
		logger := p.loggerFor(scan)

		stepCtx := ctx
		if ctx.Err() != nil {
			scan.Cancelled = true
			if !isFinalizing(step) {
				logger.Warn("skipping step", "step", step.Name(), "reason", ctx.Err())
				continue
			}
			stepCtx = context.WithoutCancel(ctx)
		}

		logger.Debug("executing step", "step", step.Name(), "target", scan.Target)

		if err := step.Do(stepCtx, scan); err != nil {
			logger = p.loggerFor(scan)
			logger.Error("step failed",
				"step", step.Name(),
				"target", scan.Target,
				"error", err,
			)
			scan.StepErrors = append(scan.StepErrors, err)

			if isCritical(step) || !p.continueOnError {
				return err
			}
			continue
		}

		p.loggerFor(scan).Debug("step completed", "step", step.Name(), "target", scan.Target)
	}

	if err := ctx.Err(); err != nil {
		scan.Cancelled = true
		return err
	}
	return nil
}

// loggerFor prefers the scan's session logger.
func (p *Pipeline) loggerFor(scan *model.Scan) *slog.Logger {
	if scan.Logger != nil {
		return scan.Logger
	}
	return p.logger
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func isCritical(step Step) bool {
	c, ok := step.(CriticalStep)
	return ok && c.Critical()
}

func isFinalizing(step Step) bool {
	f, ok := step.(FinalizingStep)
	return ok && f.Finalizing()
}
