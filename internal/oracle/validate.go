package oracle

import (
	"fmt"
	"unicode/utf8"
)

const (
	MaxJobIDLength   = 64
	MinMonikerLength = 3
	MaxMonikerLength = 20
)

// validateJobID limits the job id to MaxJobIDLength bytes.
func validateJobID(jobID string) error {
	if len(jobID) > MaxJobIDLength {
		return fmt.Errorf("%w: %d > %d bytes", ErrJobIDTooLong, len(jobID), MaxJobIDLength)
	}
	return nil
}

func validateMoniker(moniker string) error {
	n := utf8.RuneCountInString(moniker)
	if n < MinMonikerLength {
		return fmt.Errorf("%w: %d < %d characters", ErrMonikerTooShort, n, MinMonikerLength)
	}
	if n > MaxMonikerLength {
		return fmt.Errorf("%w: %d > %d characters", ErrMonikerTooLong, n, MaxMonikerLength)
	}
	return nil
}
