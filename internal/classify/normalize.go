package classify

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// trailingPunctuation is removed from the end of every raw URL.
const trailingPunctuation = ").,;"

var duplicateSlashes = regexp.MustCompile(`//+`)

// Normalize returns the canonical form of a raw link destination.
//
// Surrounding whitespace and trailing ").,;" are always removed. For http
// and https URLs the host is lowercased and IDNA-encoded and duplicate
// slashes in the path are collapsed, with an empty path becoming "/".
// Other URLs are returned trimmed. Two URLs with the same normalized form
// share one cache entry and one check.
func Normalize(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), trailingPunctuation)

	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return s
	}

	u.Host = normalizeHost(u)

	escaped := duplicateSlashes.ReplaceAllString(u.EscapedPath(), "/")
	if escaped == "" {
		escaped = "/"
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return s
	}
	u.Path = path
	u.RawPath = escaped

	return u.String()
}

// normalizeHost lowercases the host and converts internationalized names
// to their ASCII form. The port, if any, is preserved.
func normalizeHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if host != "" && net.ParseIP(host) == nil {
		if ascii, err := idna.Lookup.ToASCII(host); err == nil {
			host = ascii
		}
	}

	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
