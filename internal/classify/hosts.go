package classify

import (
	"net/netip"
	"strings"
)

// privatePrefixes are address ranges that must never be probed.
var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

var privateHostnames = map[string]bool{
	"localhost":             true,
	"localhost.localdomain": true,
	"0.0.0.0":               true,
}

// IsPrivateHost reports whether host is loopback, link-local, private,
// unspecified, or empty. Only literal addresses and the fixed names are
// recognized; no DNS lookup is made.
func IsPrivateHost(host string) bool {
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	if host == "" {
		return true
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return privateHostnames[strings.ToLower(host)]
	}

	addr = addr.WithZone("").Unmap()
	if addr.IsUnspecified() {
		return true
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// HostPolicy holds the allow and deny host-suffix lists.
// Matching is a case-insensitive suffix test on the hostname.
type HostPolicy struct {
	allow []string
	deny  []string
}

// NewHostPolicy builds a policy from the configured suffix lists.
// Empty entries are ignored.
func NewHostPolicy(allow, deny []string) HostPolicy {
	return HostPolicy{allow: cleanSuffixes(allow), deny: cleanSuffixes(deny)}
}

func cleanSuffixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Denied reports whether host matches a deny suffix.
func (p HostPolicy) Denied(host string) bool {
	return hasSuffix(strings.ToLower(host), p.deny)
}

// Allowed reports whether host passes the allow-list. With no allow-list
// configured every host is allowed.
func (p HostPolicy) Allowed(host string) bool {
	if len(p.allow) == 0 {
		return true
	}
	return hasSuffix(strings.ToLower(host), p.allow)
}

func hasSuffix(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}
