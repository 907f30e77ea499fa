package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors: caller contract violations, surfaced as hard
	// failures before any computation begins.
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrEmptyHourBuckets    = fmt.Errorf("%w: hour buckets must not be empty", ErrInvalidConfig)
	ErrNoTargets           = fmt.Errorf("%w: targets mapping must not be empty", ErrInvalidConfig)
	ErrNoProbes            = fmt.Errorf("%w: probes mapping must not be empty", ErrInvalidConfig)
	ErrUnknownAggregation  = fmt.Errorf("%w: unknown aggregation", ErrInvalidConfig)
	ErrHourBucketRange     = fmt.Errorf("%w: hour bucket outside [0,23]", ErrInvalidConfig)
	ErrDuplicateHourBucket = fmt.Errorf("%w: duplicate hour bucket", ErrInvalidConfig)
	ErrThresholdRange      = fmt.Errorf("%w: multi-match threshold outside [0,1]", ErrInvalidConfig)

	// Data errors raised by the ingest and alignment collaborators. The
	// statistical engine itself never raises these; degenerate pairs resolve
	// to neutral scores instead.
	ErrNoObservations      = errors.New("series has no observations")
	ErrSeriesTooSparse     = errors.New("series too sparse for alignment")
	ErrUnknownFillStrategy = errors.New("unknown fill strategy")

	// Archive errors
	ErrRunNotFound = errors.New("run not found")
)

// Error constructors with context
func NewAggregationError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownAggregation, name)
}

func NewBucketRangeError(bucket int) error {
	return fmt.Errorf("%w: %d", ErrHourBucketRange, bucket)
}

func NewDuplicateBucketError(bucket int) error {
	return fmt.Errorf("%w: %d", ErrDuplicateHourBucket, bucket)
}

func NewFillStrategyError(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownFillStrategy, name)
}

func NewThresholdError(value float64) error {
	return fmt.Errorf("%w: %g", ErrThresholdRange, value)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsDataError(err error) bool {
	return errors.Is(err, ErrNoObservations) ||
		errors.Is(err, ErrSeriesTooSparse) ||
		errors.Is(err, ErrUnknownFillStrategy)
}
