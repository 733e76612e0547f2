package parser

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var headingPattern = regexp.MustCompile(`^\s{0,3}(#{1,6})\s+(.+?)\s*#*\s*$`)

// AnchorSet is the ordered list of heading slugs of one document.
// It is computed on demand and never cached, since files change between calls.
type AnchorSet []string

// Anchors derives the slug of every ATX heading in text, in order.
func Anchors(text string) AnchorSet {
	var slugs AnchorSet
	for line := range strings.Lines(text) {
		m := headingPattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		slugs = append(slugs, Slugify(m[2]))
	}
	return slugs
}

// HTMLAnchors returns the slugs of explicit anchors written as inline HTML
// (id attributes, and name attributes of <a> elements), in document order.
func HTMLAnchors(text string) AnchorSet {
	if !strings.Contains(text, "<") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil
	}

	var slugs AnchorSet
	doc.Find("[id], a[name]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			slugs = append(slugs, Slugify(id))
		}
		if goquery.NodeName(s) != "a" {
			return
		}
		if name, ok := s.Attr("name"); ok && name != "" {
			slugs = append(slugs, Slugify(name))
		}
	})
	return slugs
}

// Has reports whether fragment, slugified the same way as headings, names
// a heading in the set.
func (s AnchorSet) Has(fragment string) bool {
	return slices.Contains(s, Slugify(fragment))
}

// Slugify turns heading text into the identifier used as a URL fragment.
//
//	"Hello, World!"   -> "hello-world"
//	"Caf&eacute; Menu" -> "café-menu"
func Slugify(text string) string {
	text = html.UnescapeString(text)
	text = norm.NFC.String(text)
	text = strings.TrimSpace(text)
	text = cases.Lower(language.Und).String(text)

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case r == ' ':
			pendingSpace = b.Len() > 0
			continue
		case r == '-' || r == '_' ||
			unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r):
		default:
			continue
		}
		if pendingSpace {
			b.WriteByte('-')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "-")
}
