package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quietwire/linkcheck/internal/cache"
	"github.com/quietwire/linkcheck/internal/model"
)

// Engine validates a set of documents and owns the cache lifecycle.
type Engine struct {
	steps   []Step
	cache   *cache.Store
	workers int
	root    string
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineCache loads store before a run and saves it afterwards.
func WithEngineCache(store *cache.Store) EngineOption {
	return func(e *Engine) {
		e.cache = store
	}
}

// WithWorkers sets how many documents are processed concurrently.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRoot records the corpus root in the result.
func WithRoot(root string) EngineOption {
	return func(e *Engine) {
		e.root = root
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine that runs steps on every document.
// The steps are shared by all workers and must be safe for concurrent use.
func NewEngine(steps []Step, opts ...EngineOption) *Engine {
	e := &Engine{
		steps:   steps,
		workers: DefaultConcurrency,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultSteps returns the read, extract and validate steps.
func NewDefaultSteps(validate *ValidateStep) []Step {
	return []Step{NewReadStep(), NewExtractStep(nil), validate}
}

// Run validates the documents at paths and returns every finding.
// The cache is loaded once before and saved once after the batch; cache
// failures are logged and ignored. The result is always non-nil. The error
// is non-nil only if ctx was cancelled, in which case the result holds the
// documents finished so far.
func (e *Engine) Run(ctx context.Context, paths []string) (*model.Result, error) {
	start := time.Now()

	if e.cache != nil {
		if err := e.cache.Load(); err != nil {
			e.logger.Warn("failed to load cache, starting empty", "path", e.cache.Path(), "error", err)
		}
	}

	bp := NewBatchProcessor(func() *Pipeline {
		p := New(WithLogger(e.logger))
		p.AddSteps(e.steps...)
		return p
	}, WithConcurrency(e.workers), WithBatchLogger(e.logger))

	docs, runErr := bp.ProcessBatch(ctx, paths)

	if e.cache != nil {
		if err := e.cache.Save(); err != nil {
			e.logger.Warn("failed to save cache", "path", e.cache.Path(), "error", err)
		}
	}

	result := &model.Result{Root: e.root, StartedAt: start}
	processed := 0
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		processed++
		result.Findings = append(result.Findings, documentFindings(doc)...)
		result.Documents = append(result.Documents, model.DocumentDigest{
			Path:   doc.Path,
			Digest: doc.Digest,
			Links:  len(doc.Occurrences),
		})
	}
	result.Summary = model.Summarize(processed, result.Findings)
	result.Duration = time.Since(start)

	e.logger.Info("run complete",
		"documents", processed,
		"findings", len(result.Findings),
		"errors", result.Summary.Errors,
		"elapsed", result.Duration,
	)
	return result, runErr
}

// documentFindings returns the findings of a processed document. A document
// that could not be read yields one error finding instead.
func documentFindings(doc *model.Document) []model.Finding {
	if errors.Is(doc.Err, ErrUnreadableDocument) {
		return []model.Finding{{
			Path:     doc.Path,
			LinkType: model.LinkInternal,
			Status:   model.StatusError,
			Reason:   model.ReasonUnreadableDocument,
		}}
	}
	return doc.Findings
}
