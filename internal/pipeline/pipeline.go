package pipeline

import (
	"context"
	"log/slog"

	"github.com/quietwire/linkcheck/internal/model"
)

// Step is one stage of document processing.
type Step interface {
	// Do runs the step on doc. Link failures are recorded as findings;
	// an error means the document could not be processed further.
	Do(ctx context.Context, doc *model.Document) error

	// Name returns the step name for logging.
	Name() string
}

// Pipeline executes its steps in order on one document.
type Pipeline struct {
	steps []Step

	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps on doc. Cancellation is checked before each step.
// The first step error stops the pipeline and is recorded in doc.Err.
func (p *Pipeline) Execute(ctx context.Context, doc *model.Document) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"document", doc.Path,
				"reason", err,
			)
			doc.Err = err
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"document", doc.Path,
		)

		if err := step.Do(ctx, doc); err != nil {
			p.logger.Warn("step failed",
				"step", step.Name(),
				"document", doc.Path,
				"error", err,
			)
			doc.Err = err
			return err
		}
	}
	return nil
}
