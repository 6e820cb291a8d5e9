// Package facilitator defines the interface a resource server uses to verify
// and settle payments. The HTTP implementation lives in the http package;
// tests and custom deployments can substitute their own.
package facilitator

import (
	"context"

	"github.com/x402-labs/x402-go"
)

// SupportedKind describes one scheme and network combination a facilitator
// can verify and settle, with optional network-specific extra data.
type SupportedKind struct {
	X402Version int                    `json:"x402Version"`
	Scheme      string                 `json:"scheme"`
	Network     string                 `json:"network"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// Facilitator verifies and settles payments on behalf of a resource server.
// Both operations take the still-encoded payment header: the facilitator is
// the authority on payload contents, and passing the header through unchanged
// avoids a decode/re-encode cycle that could alter what gets verified.
type Facilitator interface {
	// Verify checks a payment authorization without executing it. A
	// well-formed rejection (isValid=false) is returned as a *x402.FacilitatorError
	// alongside the response; transport failures map to
	// x402.ErrFacilitatorUnavailable.
	Verify(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) (*x402.VerifyResponse, error)

	// Settle executes a verified payment on chain. A well-formed failure
	// (success=false) is returned as a *x402.FacilitatorError alongside the
	// response.
	Settle(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) (*x402.SettleResponse, error)

	// Supported lists the scheme and network combinations the facilitator
	// accepts.
	Supported(ctx context.Context) ([]SupportedKind, error)
}
