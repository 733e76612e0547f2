package classify

import "testing"

// TestNormalize tests canonical URL derivation.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses duplicate slashes", "https://example.com//a///b", "https://example.com/a/b"},
		{"empty path becomes slash", "https://example.com", "https://example.com/"},
		{"trims whitespace and trailing punctuation", "  https://example.com/a).;  ", "https://example.com/a"},
		{"lowercases host", "https://Example.COM/Path", "https://example.com/Path"},
		{"keeps query and fragment", "https://example.com//x?q=1#frag", "https://example.com/x?q=1#frag"},
		{"keeps escaped path", "https://example.com/a%20b", "https://example.com/a%20b"},
		{"encodes internationalized host", "http://bücher.example/", "http://xn--bcher-kva.example/"},
		{"keeps ipv6 literal and port", "http://[::1]:8080//x", "http://[::1]:8080/x"},
		{"keeps dot-slash prefix", "./docs/x.md", "./docs/x.md"},
		{"keeps parent references", "../x.md#top", "../x.md#top"},
		{"non-http trimmed only", "mailto:a@example.com,", "mailto:a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q): expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

// TestClassify tests disposition assignment.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		strict      bool
		disposition Disposition
		target      string
		anchor      string
		hasAnchor   bool
		host        string
	}{
		{name: "javascript forbidden", input: "javascript:alert(1)", disposition: Forbidden},
		{name: "scheme case ignored", input: "JavaScript:void(0)", disposition: Forbidden},
		{name: "file forbidden", input: "file:///etc/passwd", disposition: Forbidden},
		{name: "data forbidden", input: "data:text/html,hi", disposition: Forbidden},
		{name: "vbscript internal by default", input: "vbscript:msgbox", disposition: Internal, target: "vbscript:msgbox"},
		{name: "vbscript forbidden when strict", input: "vbscript:msgbox", strict: true, disposition: Forbidden},
		{name: "mailto skipped", input: "mailto:someone@example.com", disposition: Skip},
		{name: "tel skipped", input: "tel:+15551234", disposition: Skip},
		{name: "https external", input: "https://Docs.Example.com/x", disposition: External, host: "docs.example.com"},
		{name: "http external", input: "http://127.0.0.1/", disposition: External, host: "127.0.0.1"},
		{name: "relative with anchor", input: "other.md#section-two", disposition: Internal, target: "other.md", anchor: "section-two", hasAnchor: true},
		{name: "in-page anchor", input: "#intro", disposition: Internal, anchor: "intro", hasAnchor: true},
		{name: "plain relative", input: "dir/file.md", disposition: Internal, target: "dir/file.md"},
		{name: "unknown scheme is internal", input: "ftp://example.com/f", disposition: Internal, target: "ftp://example.com/f"},
		{name: "unparsable is internal", input: "http://[::1", disposition: Internal, target: "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []Option
			if tt.strict {
				opts = append(opts, WithStrictSchemes())
			}
			cl := New(opts...).Classify(tt.input)

			if cl.Disposition != tt.disposition {
				t.Fatalf("expected %s, got %s", tt.disposition, cl.Disposition)
			}
			if cl.Disposition == Internal {
				if cl.Target != tt.target || cl.Anchor != tt.anchor || cl.HasAnchor != tt.hasAnchor {
					t.Errorf("expected target=%q anchor=%q has=%v, got target=%q anchor=%q has=%v",
						tt.target, tt.anchor, tt.hasAnchor, cl.Target, cl.Anchor, cl.HasAnchor)
				}
			}
			if cl.Disposition == External && cl.Host != tt.host {
				t.Errorf("expected host %q, got %q", tt.host, cl.Host)
			}
		})
	}
}

// TestIsPrivateHost tests the private address denylist.
func TestIsPrivateHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"LOCALHOST", true},
		{"localhost.", true},
		{"localhost.localdomain", true},
		{"0.0.0.0", true},
		{"127.0.0.1", true},
		{"127.5.5.5", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"::1", true},
		{"[::1]", true},
		{"fd00::1", true},
		{"fe80::1%eth0", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
		{"example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := IsPrivateHost(tt.host); got != tt.expected {
				t.Errorf("IsPrivateHost(%q): expected %v, got %v", tt.host, tt.expected, got)
			}
		})
	}
}

// TestHostPolicy tests allow/deny suffix matching.
func TestHostPolicy(t *testing.T) {
	t.Parallel()

	t.Run("empty policy allows everything", func(t *testing.T) {
		t.Parallel()

		p := NewHostPolicy(nil, nil)
		if p.Denied("example.com") {
			t.Error("expected nothing denied")
		}
		if !p.Allowed("example.com") {
			t.Error("expected everything allowed")
		}
	})

	t.Run("suffix matching is case-insensitive", func(t *testing.T) {
		t.Parallel()

		p := NewHostPolicy([]string{" Example.org ", ""}, []string{"BAD.example"})
		if !p.Denied("www.bad.example") {
			t.Error("expected deny suffix match")
		}
		if !p.Allowed("docs.example.org") {
			t.Error("expected allow suffix match")
		}
		if p.Allowed("example.net") {
			t.Error("expected allow-list miss")
		}
	})
}
