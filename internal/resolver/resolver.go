package resolver

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/quietwire/linkcheck/internal/model"
	"github.com/quietwire/linkcheck/internal/parser"
)

// Resolver checks internal links relative to the documents that contain them.
type Resolver struct {
	root        string
	htmlAnchors bool
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRoot sets the directory that targets starting with "/" resolve against.
func WithRoot(root string) Option {
	return func(r *Resolver) {
		r.root = root
	}
}

// WithHTMLAnchors also accepts fragments naming inline HTML anchors such as
// <a id="x"></a>. By default only heading slugs are anchors.
func WithHTMLAnchors() Option {
	return func(r *Resolver) {
		r.htmlAnchors = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver. Without WithRoot, absolute targets resolve
// against the current directory.
func New(opts ...Option) *Resolver {
	r := &Resolver{root: ".", logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve checks one internal link found in the document at docPath whose
// text is docText. target is the path part of the link and anchor the
// fragment without "#". It returns model.ReasonOK or the failure reason.
func (r *Resolver) Resolve(docPath, docText, target, anchor string) string {
	anchor = unescape(anchor)

	if target == "" {
		if anchor != "" && !r.anchors(docText).Has(anchor) {
			r.logger.Debug("missing in-page anchor", "document", docPath, "anchor", anchor)
			return model.ReasonMissingAnchor
		}
		return model.ReasonOK
	}

	path := r.targetPath(docPath, target)
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("missing link target", "document", docPath, "target", path)
		return model.ReasonMissingPath
	}
	if anchor == "" {
		return model.ReasonOK
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Debug("unreadable link target", "target", path, "error", err)
		return model.ReasonUnreadableTarget
	}
	if !r.anchors(string(data)).Has(anchor) {
		r.logger.Debug("missing anchor", "document", docPath, "target", path, "anchor", anchor)
		return model.ReasonMissingAnchor
	}
	return model.ReasonOK
}

func (r *Resolver) anchors(text string) parser.AnchorSet {
	set := parser.Anchors(text)
	if r.htmlAnchors {
		set = append(set, parser.HTMLAnchors(text)...)
	}
	return set
}

// targetPath maps a link target to a file system path.
func (r *Resolver) targetPath(docPath, target string) string {
	target, _, _ = strings.Cut(target, "?")
	target = filepath.FromSlash(unescape(target))

	if strings.HasPrefix(target, string(filepath.Separator)) {
		return filepath.Join(r.root, target)
	}
	return filepath.Join(filepath.Dir(docPath), target)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
