// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// JobQueueSize bounds the in-memory reconciliation job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of reconciliation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the report submission dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PreGraceMin is the check-in grace window before meeting start, minutes.
	PreGraceMin int `koanf:"pre_grace_min"`

	// PostGraceMin is the check-out grace window after meeting end, minutes.
	PostGraceMin int `koanf:"post_grace_min"`

	// RoundingIncrementMin is the accrual rounding increment, minutes.
	// Durations round down to the nearest multiple.
	RoundingIncrementMin int `koanf:"rounding_increment_min"`

	// MeetingHourCap caps credited hours per meeting. Zero disables the cap.
	MeetingHourCap float64 `koanf:"meeting_hour_cap"`

	// DisputeThreshold is the minimum per-field agreement ratio before an
	// aggregate field is considered disputed.
	DisputeThreshold float64 `koanf:"dispute_threshold"`

	// NumericTolerance is the absolute tolerance used when checking whether
	// a numeric observation agrees with the merged value.
	NumericTolerance float64 `koanf:"numeric_tolerance"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		JobQueueSize:         10_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           100_000,
		PreGraceMin:          10,
		PostGraceMin:         10,
		RoundingIncrementMin: 15,
		MeetingHourCap:       0,
		DisputeThreshold:     0.5,
		NumericTolerance:     1e-9,
	}
}
