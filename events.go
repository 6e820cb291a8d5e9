package x402

import "time"

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	// PaymentEventAttempt indicates a payment is being attempted.
	PaymentEventAttempt PaymentEventType = "attempt"

	// PaymentEventSuccess indicates a payment settled.
	PaymentEventSuccess PaymentEventType = "success"

	// PaymentEventFailure indicates a payment failed.
	PaymentEventFailure PaymentEventType = "failure"
)

// PaymentEvent represents a payment lifecycle event emitted by the HTTP
// transport, for logging, monitoring, and debugging.
type PaymentEvent struct {
	// Type is the event type (attempt, success, failure).
	Type PaymentEventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// CorrelationID ties the events of one payment attempt together.
	CorrelationID string

	// URL is the resource being paid for.
	URL string

	// Amount is the payment amount in atomic units.
	Amount string

	// Asset is the token address or identifier.
	Asset string

	// Network is the blockchain network identifier.
	Network string

	// Scheme is the payment scheme (e.g., "exact").
	Scheme string

	// Recipient is the payment recipient address.
	Recipient string

	// Payer is the address that made the payment (available on success).
	Payer string

	// Transaction is the blockchain transaction hash (available on success).
	Transaction string

	// Error contains error details (available on failure).
	Error error

	// Duration is the time taken for the payment operation.
	Duration time.Duration
}

// PaymentCallback handles payment events. Callbacks run synchronously during
// payment processing and should return quickly.
type PaymentCallback func(PaymentEvent)
