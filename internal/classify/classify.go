package classify

import (
	"net/url"
	"strings"
)

// Disposition is what the orchestrator does with a link.
type Disposition int

const (
	// Internal links are resolved against the local file tree.
	Internal Disposition = iota

	// External links are probed over HTTP.
	External

	// Skip links are recorded and never checked.
	Skip

	// Forbidden links are always an error.
	Forbidden
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case Internal:
		return "internal"
	case External:
		return "external"
	case Skip:
		return "skip"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

var (
	forbiddenSchemes = map[string]bool{"javascript": true, "file": true, "data": true}
	skipSchemes      = map[string]bool{"mailto": true, "tel": true}
)

// Classification is the classifier's verdict for one raw URL.
type Classification struct {
	Disposition Disposition

	// Normalized is the canonical URL; findings carry this form.
	Normalized string

	// Scheme is the lowercase scheme, empty for relative links.
	Scheme string

	// Host is the lowercase hostname of an external link, without port.
	Host string

	// Target and Anchor split an internal link at the first '#'.
	// An empty Target with HasAnchor set is an in-page reference.
	Target    string
	Anchor    string
	HasAnchor bool
}

// Classifier assigns dispositions to raw URLs. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	forbidden map[string]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithStrictSchemes also forbids vbscript: links.
func WithStrictSchemes() Option {
	return func(c *Classifier) {
		c.forbidden["vbscript"] = true
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{forbidden: make(map[string]bool, len(forbiddenSchemes)+1)}
	for s := range forbiddenSchemes {
		c.forbidden[s] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify normalizes raw and decides how it is validated.
// A URL that fails to parse is treated as a relative link.
func (c *Classifier) Classify(raw string) Classification {
	normalized := Normalize(raw)
	cl := Classification{Normalized: normalized}

	u, err := url.Parse(normalized)
	if err != nil {
		return c.internal(cl)
	}

	cl.Scheme = strings.ToLower(u.Scheme)
	switch {
	case c.forbidden[cl.Scheme]:
		cl.Disposition = Forbidden
	case skipSchemes[cl.Scheme]:
		cl.Disposition = Skip
	case cl.Scheme == "http" || cl.Scheme == "https":
		cl.Disposition = External
		cl.Host = strings.ToLower(u.Hostname())
	default:
		return c.internal(cl)
	}
	return cl
}

func (c *Classifier) internal(cl Classification) Classification {
	cl.Disposition = Internal
	cl.Target, cl.Anchor, cl.HasAnchor = strings.Cut(cl.Normalized, "#")
	return cl
}
