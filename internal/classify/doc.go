// Package classify normalizes raw link destinations and decides whether
// each one is forbidden, skipped, external, or internal. It also holds the
// host policies applied before any network I/O: the private address
// denylist and the configured allow/deny host suffixes.
package classify
