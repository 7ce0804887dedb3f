package ca

import (
	"errors"
	"fmt"
)

// Sentinel errors for CA submission.
// Use errors.Is() to check for these errors through the error chain.
var (
	// ErrTransport indicates the CA could not be reached: connection
	// refused, timeout, TLS failure, or an unusable response stream.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse indicates the CA reported success but its
	// response body did not decode as a PEM certificate. Distinct from a
	// rejection: the CA said yes but sent something unusable.
	ErrMalformedResponse = errors.New("malformed CA response")
)

// RejectionError is returned when the CA is reachable but refuses to sign.
// Reason carries the CA's response body verbatim so operators see exactly
// what the CA said.
type RejectionError struct {
	StatusCode int
	Reason     string
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return fmt.Sprintf("CA rejected request (HTTP %d): %s", e.StatusCode, e.Reason)
}

// ClientError wraps the failure of a single client operation with its
// context. It supports errors.Is() and errors.As() through Unwrap.
type ClientError struct {
	Op  string // Operation: "submit", "fetch-cacert"
	URL string // Endpoint the operation targeted
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("ca %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ClientError) Unwrap() error { return e.Err }
