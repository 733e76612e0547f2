// Package cache provides the reachability cache: a time-bounded store of
// external link outcomes keyed by normalized URL, persisted as JSON between
// runs. The cache only saves work. A cold store gives the same findings as
// a warm one, so load and save failures are never fatal.
package cache
