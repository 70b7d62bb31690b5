package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinels so callers can match with errors.Is().
var (
	// ErrNoTargets is returned when the configuration names no target
	// sites. The crawl has nothing to seed without at least one.
	ErrNoTargets = errors.New("no targets configured: provide at least one target site")

	// ErrInvalidTimeout is returned when the request timeout is not
	// positive. A zero timeout would fail every fetch immediately.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidDepth is returned when MaxDepth is negative or the
	// admission depth is smaller than the regular depth.
	ErrInvalidDepth = errors.New("invalid depth limits: max depth must be non-negative and admission depth must not be smaller")

	// ErrInvalidDelay is returned when the politeness delay is negative.
	// Use 0 to disable pacing between requests.
	ErrInvalidDelay = errors.New("invalid request delay: must be non-negative")

	// ErrInvalidBatch is returned when the checkpoint batch bounds are
	// not positive or the minimum exceeds the maximum.
	ErrInvalidBatch = errors.New("invalid checkpoint batch sizes: need 0 < min <= max")

	// ErrInvalidLimits is returned when a URL or queue cap is not positive.
	ErrInvalidLimits = errors.New("invalid crawl limits: URL and queue caps must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified for the final report.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrTargetIncomplete is returned when a target is missing its
	// name, base URL, or domain.
	ErrTargetIncomplete = errors.New("incomplete target: name, base_url, and domain are all required")
)
