package log

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds http(s) URLs embedded in free text such as error messages.
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// sensitiveParams are query parameter names whose values are masked.
var sensitiveParams = map[string]bool{
	"access_token": true,
	"api_key":      true,
	"apikey":       true,
	"auth":         true,
	"code":         true,
	"key":          true,
	"password":     true,
	"secret":       true,
	"sig":          true,
	"signature":    true,
	"token":        true,

	// pre-signed object storage links
	"x-amz-credential": true,
	"x-amz-signature":  true,
	"x-goog-signature": true,
}

// RedactURL masks the userinfo and the values of
// credential-like query parameters. Strings that do not parse as an
// absolute URL are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	changed := false
	if _, ok := u.User.Password(); ok {
		changed = true
	} else if u.User.Username() != "" {
		// A bare username is usually a token.
		u.User = url.User("xxxxx")
		changed = true
	}

	if u.RawQuery != "" {
		if q, ok := redactQuery(u.RawQuery); ok {
			u.RawQuery = q
			changed = true
		}
	}

	if !changed {
		return raw
	}
	return u.Redacted()
}

// redactQuery masks sensitive parameter values in place, keeping the
// order and encoding of the other parameters.
func redactQuery(raw string) (string, bool) {
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if !hasValue || !sensitiveParams[strings.ToLower(name)] {
			continue
		}
		parts[i] = part[:strings.IndexByte(part, '=')+1] + MaskValue
		changed = true
	}
	return strings.Join(parts, "&"), changed
}

// RedactURLs applies RedactURL to every URL found in s.
func RedactURLs(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, RedactURL)
}
