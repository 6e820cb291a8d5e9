package x402

import (
	"errors"
	"fmt"
)

// Sentinel errors for x402 payment operations.
var (
	// ErrNoMatchingRequirements indicates no advertised requirement passed
	// selection. This error is terminal: retrying cannot change the outcome.
	ErrNoMatchingRequirements = errors.New("x402: no matching payment requirements")

	// ErrMalformedHeader indicates the X-Payment header or a payment envelope
	// is malformed or fails variant field validation.
	ErrMalformedHeader = errors.New("x402: malformed payment header")

	// ErrUnsupportedVersion indicates an unsupported x402 protocol version.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrUnsupportedScheme indicates an unsupported payment scheme.
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")

	// ErrUnsupportedNetwork indicates a network the scheme codec does not support.
	ErrUnsupportedNetwork = errors.New("x402: unsupported network for scheme")

	// ErrInvalidAddress indicates an address that is invalid for its network.
	ErrInvalidAddress = errors.New("x402: invalid address")

	// ErrInvalidAmount indicates an amount string that does not parse.
	ErrInvalidAmount = errors.New("x402: invalid amount")

	// ErrAmountPrecision indicates a price that cannot be represented exactly
	// at the asset's decimal precision.
	ErrAmountPrecision = errors.New("x402: amount not representable at asset precision")

	// ErrSigningFailed indicates the signer capability returned an error.
	ErrSigningFailed = errors.New("x402: payment signing failed")

	// ErrInvalidRequirements indicates the payment requirements from the
	// server are invalid.
	ErrInvalidRequirements = errors.New("x402: invalid payment requirements")

	// ErrFacilitatorUnavailable indicates a transport failure or timeout
	// talking to the facilitator. Safe for the caller to retry: verify and
	// settle are keyed by nonce.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator service unavailable")

	// ErrVerificationFailed indicates payment verification failed.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates payment settlement failed.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")
)

// ErrorCode represents payment error codes for programmatic handling.
type ErrorCode string

const (
	// ErrCodeSelectionFailed indicates no requirement qualified.
	ErrCodeSelectionFailed ErrorCode = "SELECTION_FAILED"

	// ErrCodeInvalidRequirements indicates invalid server requirements.
	ErrCodeInvalidRequirements ErrorCode = "INVALID_REQUIREMENTS"

	// ErrCodeSigningFailed indicates payload construction or signing failed.
	ErrCodeSigningFailed ErrorCode = "SIGNING_FAILED"

	// ErrCodeEncodingFailed indicates header encoding or decoding failed.
	ErrCodeEncodingFailed ErrorCode = "ENCODING_FAILED"

	// ErrCodeUnsupportedScheme indicates an unsupported scheme or network.
	ErrCodeUnsupportedScheme ErrorCode = "UNSUPPORTED_SCHEME"

	// ErrCodeUnsupportedVersion indicates an unsupported protocol version.
	ErrCodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"

	// ErrCodeNetworkError indicates a network communication error.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"
)

// PaymentError provides structured error information.
type PaymentError struct {
	// Code is the error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// FacilitatorError is a terminal error from the facilitator: either a
// non-success HTTP status, or an explicit isValid=false / success=false
// result with a reason code. It is never retried automatically.
type FacilitatorError struct {
	// Operation is "verify" or "settle".
	Operation string

	// StatusCode is the HTTP status, or 200 when the facilitator returned a
	// well-formed rejection.
	StatusCode int

	// Reason is the facilitator's invalidReason or errorReason, when present.
	Reason string

	// Body is the raw response body for non-success statuses.
	Body string
}

// Error implements the error interface.
func (e *FacilitatorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("x402: facilitator %s rejected payment: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("x402: facilitator %s failed with status %d", e.Operation, e.StatusCode)
}

// Unwrap maps the error onto the matching sentinel so callers can use
// errors.Is without inspecting fields.
func (e *FacilitatorError) Unwrap() error {
	if e.Operation == "settle" {
		return ErrSettlementFailed
	}
	return ErrVerificationFailed
}
