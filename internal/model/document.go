package model

import "time"

// Document is the unit of work handed to a pipeline. Steps fill it in
// place; its Findings are published only after every step has run.
type Document struct {
	// Path is the document location as given by discovery.
	Path string

	// Text is the document content, set by the read step.
	Text string

	// Digest is the hex BLAKE2b-256 of Text.
	Digest string

	// Occurrences are the links found in Text, in document order.
	Occurrences []LinkOccurrence

	// Findings holds exactly one entry per occurrence once validated.
	Findings []Finding

	// Err records a failure that stopped the document's pipeline.
	Err error
}

// NewDocument creates an empty work item for path.
func NewDocument(path string) *Document {
	return &Document{Path: path}
}

// Summary counts findings by status.
type Summary struct {
	Documents int `json:"documents"`
	OK        int `json:"ok"`
	Warnings  int `json:"warnings"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of findings counted.
func (s Summary) Total() int {
	return s.OK + s.Warnings + s.Errors + s.Skipped
}

// Add counts one finding.
func (s *Summary) Add(f Finding) {
	switch f.Status {
	case StatusOK:
		s.OK++
	case StatusWarning:
		s.Warnings++
	case StatusError:
		s.Errors++
	case StatusSkip:
		s.Skipped++
	}
}

// Summarize counts findings over a set of documents.
func Summarize(documents int, findings []Finding) Summary {
	s := Summary{Documents: documents}
	for _, f := range findings {
		s.Add(f)
	}
	return s
}

// Result is everything a run produces.
type Result struct {
	Root      string        `json:"root"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Summary   Summary       `json:"summary"`
	Findings  []Finding     `json:"findings"`

	// Documents lists the processed documents with their digests, for history.
	Documents []DocumentDigest `json:"documents,omitempty"`
}

// DocumentDigest pairs a document path with its content digest.
type DocumentDigest struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Links  int    `json:"links"`
}

// Failed reports whether the run should exit non-zero.
func (r *Result) Failed(strict bool) bool {
	if r.Summary.Errors > 0 {
		return true
	}
	return strict && r.Summary.Warnings > 0
}

// ByStatus returns the findings with the given status, preserving order.
func (r *Result) ByStatus(status Status) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}
