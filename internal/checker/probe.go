package checker

import (
	"net/http"
	"net/url"

	"github.com/quietwire/linkcheck/internal/model"
)

// fallbackCodes are HEAD responses that mean "try again with GET".
var fallbackCodes = map[int]bool{
	http.StatusBadRequest:       true,
	http.StatusUnauthorized:     true,
	http.StatusForbidden:        true,
	http.StatusMethodNotAllowed: true,
	http.StatusNotImplemented:   true,
}

// probeState is the position of one reachability probe.
//
// The probe terminates: Method only ever moves from HEAD to GET, and every
// other transition increments Redirects, which is capped by maxRedirects.
type probeState struct {
	Method    string
	Current   string
	Redirects int
}

// attempt is what one request produced.
type attempt struct {
	// Code is the response status, 0 if Err is set.
	Code int

	// Location is the absolute redirect target of a 3xx response.
	Location string

	// Err is a transport-level failure.
	Err error
}

func initialState(url string) probeState {
	return probeState{Method: http.MethodHead, Current: url}
}

// advance applies one attempt to the state. It returns either the next
// state with done=false, or the final outcome with done=true.
func advance(s probeState, a attempt, maxRedirects int) (probeState, model.Outcome, bool) {
	if a.Err != nil {
		if s.Method == http.MethodHead {
			s.Method = http.MethodGet
			return s, model.Outcome{}, false
		}
		return s, model.Outcome{Reason: failureKind(a.Err)}, true
	}

	switch {
	case a.Code >= 200 && a.Code < 300:
		return s, model.Outcome{OK: true, Code: a.Code, FinalURL: s.Current, Reason: model.ReasonOK}, true

	case a.Code >= 300 && a.Code < 400:
		s.Current = a.Location
		s.Redirects++
		if s.Redirects > maxRedirects {
			return s, model.Outcome{FinalURL: s.Current, Reason: model.ReasonRedirectLoop}, true
		}
		return s, model.Outcome{}, false

	case s.Method == http.MethodHead && fallbackCodes[a.Code]:
		s.Method = http.MethodGet
		return s, model.Outcome{}, false

	default:
		return s, model.Outcome{Code: a.Code, FinalURL: s.Current, Reason: model.HTTPReason(a.Code)}, true
	}
}

// resolveLocation resolves a Location header against the URL that
// returned it. A missing or unparsable header resolves to base itself.
func resolveLocation(base *url.URL, location string) string {
	if location == "" {
		return base.String()
	}
	ref, err := url.Parse(location)
	if err != nil {
		return base.String()
	}
	return base.ResolveReference(ref).String()
}
