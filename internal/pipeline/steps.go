package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/quietwire/linkcheck/internal/classify"
	"github.com/quietwire/linkcheck/internal/model"
	"github.com/quietwire/linkcheck/internal/parser"
	"golang.org/x/crypto/blake2b"
)

// ErrUnreadableDocument is returned by ReadStep when a document cannot be read.
var ErrUnreadableDocument = errors.New("unreadable document")

// ExternalChecker checks a normalized external URL.
type ExternalChecker interface {
	Check(ctx context.Context, url string) model.Outcome
}

// InternalResolver checks a relative link found in a document.
type InternalResolver interface {
	Resolve(docPath, docText, target, anchor string) string
}

// ReadStep loads the document text and computes its digest.
type ReadStep struct{}

// NewReadStep creates a ReadStep.
func NewReadStep() *ReadStep {
	return &ReadStep{}
}

// Name returns the step name.
func (s *ReadStep) Name() string {
	return "read"
}

// Do reads doc.Path. Invalid UTF-8 sequences are dropped.
func (s *ReadStep) Do(_ context.Context, doc *model.Document) error {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	sum := blake2b.Sum256(data)
	doc.Digest = hex.EncodeToString(sum[:])
	doc.Text = strings.ToValidUTF8(string(data), "")
	return nil
}

// ExtractStep finds the links of a document.
type ExtractStep struct {
	extractor parser.Extractor
}

// NewExtractStep creates an ExtractStep. A nil extractor selects the
// regular expression extractor.
func NewExtractStep(extractor parser.Extractor) *ExtractStep {
	if extractor == nil {
		extractor = parser.NewRegexExtractor()
	}
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do fills doc.Occurrences.
func (s *ExtractStep) Do(_ context.Context, doc *model.Document) error {
	doc.Occurrences = parser.Links(s.extractor, doc.Path, doc.Text)
	return nil
}

// ValidateStep turns every occurrence of a document into exactly one
// finding, except internal links when only external links are checked.
type ValidateStep struct {
	classifier   *classify.Classifier
	policy       classify.HostPolicy
	checker      ExternalChecker
	resolver     InternalResolver
	allowPrivate bool
	externalOnly bool
	internalOnly bool
	logger       *slog.Logger
}

// ValidateStepOption configures a ValidateStep.
type ValidateStepOption func(*ValidateStep)

// WithClassifier replaces the default classifier.
func WithClassifier(c *classify.Classifier) ValidateStepOption {
	return func(s *ValidateStep) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithHostPolicy sets the allow and deny host suffixes.
func WithHostPolicy(p classify.HostPolicy) ValidateStepOption {
	return func(s *ValidateStep) {
		s.policy = p
	}
}

// WithAllowPrivateHosts lets links to private and loopback hosts be checked.
func WithAllowPrivateHosts(allow bool) ValidateStepOption {
	return func(s *ValidateStep) {
		s.allowPrivate = allow
	}
}

// WithExternalOnly skips internal links entirely.
func WithExternalOnly(v bool) ValidateStepOption {
	return func(s *ValidateStep) {
		s.externalOnly = v
	}
}

// WithInternalOnly records external links as skipped without network I/O.
func WithInternalOnly(v bool) ValidateStepOption {
	return func(s *ValidateStep) {
		s.internalOnly = v
	}
}

// WithValidateLogger sets the logger.
func WithValidateLogger(logger *slog.Logger) ValidateStepOption {
	return func(s *ValidateStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewValidateStep creates a ValidateStep using checker for external links
// and resolver for internal ones.
func NewValidateStep(checker ExternalChecker, resolver InternalResolver, opts ...ValidateStepOption) *ValidateStep {
	s := &ValidateStep{
		classifier: classify.New(),
		checker:    checker,
		resolver:   resolver,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ValidateStep) Name() string {
	return "validate"
}

// Do validates every occurrence and publishes the findings at once.
func (s *ValidateStep) Do(ctx context.Context, doc *model.Document) error {
	findings := make([]model.Finding, 0, len(doc.Occurrences))
	for _, occ := range doc.Occurrences {
		if f, ok := s.validate(ctx, doc, occ); ok {
			findings = append(findings, f)
		}
	}
	doc.Findings = findings
	return nil
}

func (s *ValidateStep) validate(ctx context.Context, doc *model.Document, occ model.LinkOccurrence) (model.Finding, bool) {
	cl := s.classifier.Classify(occ.RawURL)
	f := model.Finding{
		Path:     doc.Path,
		Line:     occ.Line,
		URL:      cl.Normalized,
		LinkType: model.LinkExternal,
	}

	switch cl.Disposition {
	case classify.Forbidden:
		f.Status, f.Reason = model.StatusError, model.ReasonForbiddenScheme
	case classify.Skip:
		f.Status, f.Reason = model.StatusSkip, model.ReasonSkippedScheme
	case classify.External:
		s.external(ctx, cl, &f)
	default:
		if s.externalOnly {
			return model.Finding{}, false
		}
		f.LinkType = model.LinkInternal
		f.Reason = s.resolver.Resolve(doc.Path, doc.Text, cl.Target, cl.Anchor)
		f.Status = model.StatusError
		if f.Reason == model.ReasonOK {
			f.Status = model.StatusOK
		}
	}
	return f, true
}

func (s *ValidateStep) external(ctx context.Context, cl classify.Classification, f *model.Finding) {
	switch {
	case s.policy.Denied(cl.Host):
		f.Status, f.Reason = model.StatusError, model.ReasonDeniedHost
		return
	case s.internalOnly:
		f.Status, f.Reason = model.StatusSkip, model.ReasonExternalChecksOff
		return
	case !s.allowPrivate && classify.IsPrivateHost(cl.Host):
		f.Status, f.Reason = model.StatusError, model.ReasonPrivateHost
		return
	}

	outcome := s.checker.Check(ctx, cl.Normalized)
	f.HTTPCode = outcome.Code
	f.FinalURL = outcome.FinalURL
	f.Reason = outcome.Reason

	switch {
	case outcome.OK && !s.policy.Allowed(cl.Host):
		f.Status, f.Reason = model.StatusWarning, model.ReasonNotInAllowlist
	case outcome.OK:
		f.Status = model.StatusOK
	case outcome.Code == http.StatusTooManyRequests:
		f.Status = model.StatusWarning
	default:
		f.Status = model.StatusError
	}
}
