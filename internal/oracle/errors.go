package oracle

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrJobIDTooLong    = errors.New("job id exceeds the maximum length")
	ErrMonikerTooShort = errors.New("moniker is too short")
	ErrMonikerTooLong  = errors.New("moniker is too long")
	// ErrInvalidRandomness is returned for trusted randomness of the wrong size.
	ErrInvalidRandomness = errors.New("invalid randomness")
)

// Domain errors
var (
	ErrNotInstantiated     = errors.New("oracle is not instantiated")
	ErrAlreadyInstantiated = errors.New("oracle is already instantiated")
	ErrSubmissionExists    = errors.New("round already submitted by this submitter")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrFundsSent           = errors.New("do not send funds")
	ErrDrandAddrAlreadySet = errors.New("drand address already set")
	// ErrMalformedDeliveryAck is returned for a success acknowledgement whose
	// result is not a delivered job.
	ErrMalformedDeliveryAck = errors.New("result is not a deliver beacon acknowledgement")
)

// ForeignError is an error acknowledgement returned by the counterparty for
// a packet sent by the oracle.
type ForeignError struct {
	Err string
}

func (e *ForeignError) Error() string {
	return fmt.Sprintf("error from other side: %s", e.Err)
}
