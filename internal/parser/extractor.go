package parser

import (
	"iter"
	"regexp"
	"strings"

	"github.com/quietwire/linkcheck/internal/model"
)

// Extractor finds link occurrences in document text.
// Implementations must yield occurrences in document order and keep no
// state between calls.
type Extractor interface {
	Extract(document, text string) iter.Seq[model.LinkOccurrence]
}

// linkPattern matches, in order of preference at a given position:
// [text](dest) and ![alt](dest), <http(s)://...> autolinks, and bare URLs.
// RE2 has no lookbehind, so the "not preceded by (" rule for bare URLs is
// applied in matchLine.
var linkPattern = regexp.MustCompile(
	`!?\[[^\]]*\]\(([^)]+)\)` +
		`|<(https?://[^>\s]+)>` +
		`|(https?://[^\s)]+)`,
)

// prosePunctuation is trimmed from the end of autolinks and bare URLs.
const prosePunctuation = ".,;)"

// RegexExtractor is the pattern-matching Extractor.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract returns a lazy sequence of the links in text, with 1-based line
// numbers. The sequence may be ranged over more than once.
func (e *RegexExtractor) Extract(document, text string) iter.Seq[model.LinkOccurrence] {
	return func(yield func(model.LinkOccurrence) bool) {
		lineNo := 0
		for line := range strings.Lines(text) {
			lineNo++
			line = strings.TrimRight(line, "\r\n")
			for _, raw := range matchLine(line) {
				occ := model.LinkOccurrence{Document: document, Line: lineNo, RawURL: raw}
				if !yield(occ) {
					return
				}
			}
		}
	}
}

// matchLine returns the link destinations found on one line.
func matchLine(line string) []string {
	var urls []string
	pos := 0
	for pos < len(line) {
		m := linkPattern.FindStringSubmatchIndex(line[pos:])
		if m == nil {
			break
		}
		start, end := pos+m[0], pos+m[1]

		var url string
		switch {
		case m[2] >= 0:
			url = markdownDestination(line[pos+m[2] : pos+m[3]])
		case m[4] >= 0:
			url = strings.TrimRight(line[pos+m[4]:pos+m[5]], prosePunctuation)
		default:
			if start > 0 && line[start-1] == '(' {
				pos = start + 1
				continue
			}
			url = strings.TrimRight(line[pos+m[6]:pos+m[7]], prosePunctuation)
		}

		if url = strings.TrimSpace(url); url != "" {
			urls = append(urls, url)
		}
		pos = end
	}
	return urls
}

// markdownDestination drops an optional link title and angle brackets
// from the inside of (...).
func markdownDestination(dest string) string {
	dest = strings.TrimSpace(dest)
	if strings.HasPrefix(dest, "<") {
		if i := strings.IndexByte(dest, '>'); i > 0 {
			return dest[1:i]
		}
	}
	if i := strings.IndexAny(dest, " \t"); i > 0 {
		rest := strings.TrimSpace(dest[i:])
		if rest != "" && (rest[0] == '"' || rest[0] == '\'') {
			return dest[:i]
		}
	}
	return dest
}

// Links collects every occurrence produced by ex for text.
func Links(ex Extractor, document, text string) []model.LinkOccurrence {
	var out []model.LinkOccurrence
	for occ := range ex.Extract(document, text) {
		out = append(out, occ)
	}
	return out
}
