package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrEmptyRoot is returned when the corpus root is empty.
	ErrEmptyRoot = errors.New("invalid root: must not be empty")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when the redirect limit is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxAge is returned when the cache max age is negative.
	ErrInvalidMaxAge = errors.New("invalid cache max age: must be non-negative")

	// ErrInvalidHostRate is returned when the per-host rate is negative.
	ErrInvalidHostRate = errors.New("invalid host rate: must be non-negative")

	// ErrConflictingScopes is returned when both --external-only and
	// --internal-only are set. Together they would check nothing.
	ErrConflictingScopes = errors.New("conflicting scopes: --external-only and --internal-only cannot be used together")

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = errors.New("invalid report format: must be text, json or markdown")
)
