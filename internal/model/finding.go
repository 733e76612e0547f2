package model

import (
	"cmp"
	"slices"
	"strconv"
)

// Reason codes attached to findings. Transport failure kinds produced by the
// external checker are also valid reasons.
const (
	ReasonOK                    = "ok"
	ReasonForbiddenScheme       = "forbidden_scheme"
	ReasonSkippedScheme         = "skipped_scheme"
	ReasonDeniedHost            = "denied_host"
	ReasonNotInAllowlist        = "not_in_allowlist"
	ReasonPrivateHost           = "private_or_localhost"
	ReasonRedirectLoop          = "redirect_loop"
	ReasonMissingAnchor         = "missing_anchor"
	ReasonMissingPath           = "missing_relative_path"
	ReasonUnreadableTarget      = "unreadable_target_for_anchor_check"
	ReasonUnreadableDocument    = "unreadable_document"
	ReasonExternalChecksOff     = "external_checks_disabled"
	ReasonTimeout               = "timeout"
	ReasonDNSError              = "dns_error"
	ReasonConnectionRefused     = "connection_refused"
	ReasonConnectionReset       = "connection_reset"
	ReasonTLSError              = "tls_error"
	ReasonInvalidURL            = "invalid_url"
	ReasonTransportError        = "transport_error"
	ReasonCanceled              = "canceled"
)

// HTTPReason returns the reason code for a terminal non-success status.
func HTTPReason(code int) string {
	return "http_" + strconv.Itoa(code)
}

// LinkOccurrence is one link as it appears in a document.
type LinkOccurrence struct {
	// Document is the path of the document containing the link.
	Document string

	// Line is the 1-based line number of the link.
	Line int

	// RawURL is the link destination exactly as captured.
	RawURL string
}

// Finding is the verdict for one link occurrence. Findings are created once
// and never modified afterwards.
type Finding struct {
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	URL      string   `json:"url"`
	LinkType LinkType `json:"link_type"`
	Status   Status   `json:"status"`
	Reason   string   `json:"reason"`

	// HTTPCode is the last HTTP status seen, 0 when none was received.
	HTTPCode int `json:"http_code,omitempty"`

	// FinalURL is where the link ended up after redirects.
	FinalURL string `json:"final_url,omitempty"`
}

// Key identifies a finding across runs for history comparison.
func (f Finding) Key() string {
	return f.Path + "|" + strconv.Itoa(f.Line) + "|" + f.URL
}

// IsFailure reports whether the finding counts against the run.
// Warnings count only when strict is set.
func (f Finding) IsFailure(strict bool) bool {
	return f.Status == StatusError || (strict && f.Status == StatusWarning)
}

// SortFindings orders findings by path, then line, then URL.
// The engine makes no ordering promise; this is applied at the reporting boundary.
func SortFindings(findings []Finding) {
	slices.SortStableFunc(findings, func(a, b Finding) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.URL, b.URL),
		)
	})
}

// Outcome is the result of checking one external URL.
type Outcome struct {
	OK       bool
	Code     int
	FinalURL string
	Reason   string
}
