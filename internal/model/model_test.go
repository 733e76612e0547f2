package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
)

// TestStatusString tests the String and Tag methods of Status.
func TestStatusString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status   Status
		expected string
		tag      string
	}{
		{StatusOK, "ok", "OK"},
		{StatusWarning, "warning", "WARNING"},
		{StatusError, "error", "ERROR"},
		{StatusSkip, "skip", "SKIP"},
		{Status(42), "unknown", "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.status.String(); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
			if got := tc.status.Tag(); got != tc.tag {
				t.Errorf("got tag %q, expected %q", got, tc.tag)
			}
		})
	}
}

// TestParseStatus tests round-tripping through the textual form.
func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusOK, StatusWarning, StatusError, StatusSkip} {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", s, err)
		}
		if got != s {
			t.Errorf("expected %s, got %s", s, got)
		}
	}

	if _, err := ParseStatus("broken"); err == nil {
		t.Error("expected error for unknown status")
	}
}

// TestFindingJSON tests that findings serialize with the documented keys.
func TestFindingJSON(t *testing.T) {
	t.Parallel()

	t.Run("external finding carries code and final url", func(t *testing.T) {
		t.Parallel()

		f := Finding{
			Path:     "docs/a.md",
			Line:     3,
			URL:      "https://example.com/",
			LinkType: LinkExternal,
			Status:   StatusError,
			Reason:   HTTPReason(404),
			HTTPCode: 404,
			FinalURL: "https://example.com/missing",
		}

		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		s := string(data)
		for _, want := range []string{
			`"path":"docs/a.md"`,
			`"line":3`,
			`"link_type":"external"`,
			`"status":"error"`,
			`"reason":"http_404"`,
			`"http_code":404`,
			`"final_url":"https://example.com/missing"`,
		} {
			if !strings.Contains(s, want) {
				t.Errorf("expected %s in %s", want, s)
			}
		}
	})

	t.Run("internal finding omits absent fields", func(t *testing.T) {
		t.Parallel()

		f := Finding{Path: "a.md", Line: 1, URL: "#x", LinkType: LinkInternal, Status: StatusOK, Reason: ReasonOK}
		data, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(string(data), "http_code") || strings.Contains(string(data), "final_url") {
			t.Errorf("expected optional fields to be omitted, got %s", data)
		}

		var back Finding
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back != f {
			t.Errorf("expected %+v, got %+v", f, back)
		}
	})
}

// TestSortFindings tests the reporting-boundary ordering.
func TestSortFindings(t *testing.T) {
	t.Parallel()

	findings := []Finding{
		{Path: "b.md", Line: 1, URL: "x"},
		{Path: "a.md", Line: 10, URL: "y"},
		{Path: "a.md", Line: 2, URL: "z"},
		{Path: "a.md", Line: 2, URL: "a"},
	}
	SortFindings(findings)

	expected := []string{"a.md:2:a", "a.md:2:z", "a.md:10:y", "b.md:1:x"}
	for i, f := range findings {
		got := f.Path + ":" + strconv.Itoa(f.Line) + ":" + f.URL
		if got != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], got)
		}
	}
}

// TestResultFailed tests exit status semantics.
func TestResultFailed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		findings []Finding
		strict   bool
		expected bool
	}{
		{name: "no findings", expected: false},
		{name: "only ok and skip", findings: []Finding{{Status: StatusOK}, {Status: StatusSkip}}, expected: false},
		{name: "warning lenient", findings: []Finding{{Status: StatusWarning}}, expected: false},
		{name: "warning strict", findings: []Finding{{Status: StatusWarning}}, strict: true, expected: true},
		{name: "error", findings: []Finding{{Status: StatusError}}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &Result{Findings: tt.findings, Summary: Summarize(1, tt.findings)}
			if got := r.Failed(tt.strict); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestResultByStatus tests filtering findings by status.
func TestResultByStatus(t *testing.T) {
	t.Parallel()

	r := &Result{Findings: []Finding{
		{Path: "a.md", Line: 1, Status: StatusError},
		{Path: "a.md", Line: 2, Status: StatusOK},
		{Path: "b.md", Line: 1, Status: StatusError},
	}}

	errs := r.ByStatus(StatusError)
	if len(errs) != 2 || errs[0].Path != "a.md" || errs[1].Path != "b.md" {
		t.Errorf("ByStatus(error) = %+v", errs)
	}
	if got := r.ByStatus(StatusWarning); len(got) != 0 {
		t.Errorf("ByStatus(warning) = %+v, expected none", got)
	}
}

// TestSummarize tests status counting.
func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(2, []Finding{
		{Status: StatusOK}, {Status: StatusOK}, {Status: StatusWarning},
		{Status: StatusError}, {Status: StatusSkip},
	})

	if s.Documents != 2 || s.OK != 2 || s.Warnings != 1 || s.Errors != 1 || s.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Total() != 5 {
		t.Errorf("expected total 5, got %d", s.Total())
	}
}
