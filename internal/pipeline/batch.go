package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/quietwire/linkcheck/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the worker pool width used when none is configured.
const DefaultConcurrency = 16

// BatchProcessor processes many documents concurrently, one fresh
// pipeline per document.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of documents processed at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor. pipelineFactory is
// called once per document.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs the pipeline for every path. The returned slice is
// indexed like paths; an entry is nil only if the batch was cancelled
// before that document started. Pipeline failures are recorded on the
// document and never stop the other documents.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*model.Document, error) {
	bp.logger.Debug("starting batch processing",
		"documents", len(paths),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	// Each goroutine writes only its own index.
	docs := make([]*model.Document, len(paths))

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			doc := model.NewDocument(path)
			if err := bp.pipelineFactory().Execute(ctx, doc); err != nil {
				bp.logger.Debug("document failed", "document", path, "error", err)
			}
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	bp.logger.Debug("batch processing complete",
		"documents", len(paths),
		"elapsed", time.Since(start),
	)
	return docs, ctx.Err()
}
