package proxy

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTarget is returned when a request is neither absolute-form nor
	// covered by a configured upstream target.
	ErrNoTarget = errors.New("no upstream target for request")

	// ErrQueryPassthrough is returned when the outbound request would not
	// carry the inbound query string byte for byte.
	ErrQueryPassthrough = errors.New("query string is not passed through unchanged")
)

// Rejection reasons reported by AdmissionError.
const (
	ReasonUnparseable  = "unparseable"
	ReasonUnresolvable = "unresolvable"
	ReasonNotLoopback  = "not_loopback"
)

// AdmissionError is returned by Guard.Admit for a refused caller.
type AdmissionError struct {
	RemoteAddr string
	Reason     string
	Cause      error
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote address %q refused (%s): %v", e.RemoteAddr, e.Reason, e.Cause)
	}
	return fmt.Sprintf("remote address %q refused (%s)", e.RemoteAddr, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *AdmissionError) Unwrap() error {
	return e.Cause
}
