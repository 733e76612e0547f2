// Package checker verifies that external links are reachable.
//
// A probe starts with HEAD, falls back to GET for servers that reject HEAD
// or fail at the transport level, and follows redirects itself up to a
// fixed limit. The probe is a small state machine (see advance) so its
// termination bound can be tested without a network.
//
// Checker.Check puts a reachability cache in front of the probe. The HTTP
// client built by NewHTTPClient can route through a SOCKS5 proxy and inject
// per-host cookies and headers; HostLimiter throttles requests per host.
package checker
