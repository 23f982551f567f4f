package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrJobNotFound     = fmt.Errorf("%w: forecast job", ErrNotFound)

	// Validation errors
	ErrInvalidFilter     = errors.New("invalid filter specification")
	ErrDateRangeInverted = fmt.Errorf("%w: date-from after date-to", ErrInvalidFilter)
	ErrUnknownPipeline   = errors.New("unknown forecast pipeline")
	ErrUnknownDimension  = errors.New("unknown grouping dimension")

	// Job lifecycle errors. ErrJobTerminal wraps ErrIllegalTransition so
	// callers matching the broader sentinel keep working.
	ErrIllegalTransition = errors.New("illegal job state transition")
	ErrJobTerminal       = fmt.Errorf("%w: job already in terminal state", ErrIllegalTransition)

	// Pipeline errors
	ErrPipelineTransport = errors.New("pipeline transport failure")
	ErrPipelineTimeout   = errors.New("pipeline timeout")
	ErrPipelineModel     = errors.New("pipeline model error")
	ErrNoSeasonHistory   = errors.New("no historical data for season type")
)

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidFilter, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrUnknownPipeline) ||
		errors.Is(err, ErrUnknownDimension)
}

func IsPipelineError(err error) bool {
	return errors.Is(err, ErrPipelineTransport) ||
		errors.Is(err, ErrPipelineTimeout) ||
		errors.Is(err, ErrPipelineModel)
}
