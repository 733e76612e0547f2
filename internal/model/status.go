package model

import "fmt"

// Status is the verdict recorded for a single link occurrence.
// The set of values is closed; Reason carries the open-ended detail.
type Status int

const (
	// StatusOK means the link resolved.
	StatusOK Status = iota

	// StatusWarning is advisory: the link may be fine but deserves a look
	// (allow-list miss, rate limiting). Warnings fail the run only in strict mode.
	StatusWarning

	// StatusError means the link is broken or violates policy.
	StatusError

	// StatusSkip marks links that are recorded but never checked, such as mailto:.
	StatusSkip
)

// String returns the lowercase name used in reports and JSON.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	case StatusSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Tag returns the bracketed upper-case label used by the text report.
func (s Status) Tag() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusError:
		return "ERROR"
	case StatusSkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusOK || s > StatusSkip {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus converts the textual form back into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "ok":
		return StatusOK, nil
	case "warning":
		return StatusWarning, nil
	case "error":
		return StatusError, nil
	case "skip":
		return StatusSkip, nil
	default:
		return StatusOK, fmt.Errorf("unknown status %q", s)
	}
}

// LinkType distinguishes links checked over the network from links
// resolved against the local file tree.
type LinkType int

const (
	// LinkExternal is any link carrying a URL scheme, including forbidden
	// and skipped schemes that never reach the network.
	LinkExternal LinkType = iota

	// LinkInternal is a relative path or an in-page anchor.
	LinkInternal
)

// String returns "external" or "internal".
func (t LinkType) String() string {
	switch t {
	case LinkExternal:
		return "external"
	case LinkInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t LinkType) MarshalText() ([]byte, error) {
	if t != LinkExternal && t != LinkInternal {
		return nil, fmt.Errorf("invalid link type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LinkType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "external":
		*t = LinkExternal
	case "internal":
		*t = LinkInternal
	default:
		return fmt.Errorf("unknown link type %q", string(text))
	}
	return nil
}
