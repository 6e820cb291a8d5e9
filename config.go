package x402

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TimeoutConfig holds timeout configuration for facilitator operations.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time to wait for payment verification.
	VerifyTimeout time.Duration

	// SettleTimeout is the maximum time to wait for payment settlement.
	// Settlement submits an on-chain transaction, so it is expected to be
	// much longer than verification.
	SettleTimeout time.Duration

	// RequestTimeout is the overall timeout for other facilitator requests.
	RequestTimeout time.Duration
}

// DefaultTimeouts provides sensible defaults for facilitator operations.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	SettleTimeout:  60 * time.Second,
	RequestTimeout: 30 * time.Second,
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %v", tc.VerifyTimeout)
	}
	if tc.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive, got %v", tc.SettleTimeout)
	}
	if tc.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", tc.RequestTimeout)
	}
	if tc.SettleTimeout < tc.VerifyTimeout {
		return fmt.Errorf("settle timeout (%v) should be >= verify timeout (%v)",
			tc.SettleTimeout, tc.VerifyTimeout)
	}
	return nil
}

// ResourceConfig defines the payment configuration for one protected
// resource. Every recognized field is enumerated here; unknown price shapes
// and missing fields are rejected at construction, not at use.
type ResourceConfig struct {
	// PayTo is the recipient address in the network's native format.
	PayTo string `validate:"required"`

	// Price is either a decimal-dollar string or a TokenAmount.
	Price interface{} `validate:"required"`

	// Network is the network identifier the payment must settle on.
	Network string `validate:"required"`

	// Scheme is the payment scheme. Defaults to "exact".
	Scheme string `validate:"omitempty,oneof=exact"`

	// MaxTimeoutSeconds is the authorization validity window. Defaults to 300.
	MaxTimeoutSeconds int `validate:"gte=0"`

	// Description is an optional human-readable payment description.
	Description string

	// MimeType is the resource content type. Defaults to "application/json".
	MimeType string
}

// NewPaymentRequirement builds a PaymentRequirement from a ResourceConfig.
// It validates the config, resolves the price to a concrete asset and atomic
// amount, applies defaults, and populates the EIP-3009 domain parameters for
// EVM networks.
func NewPaymentRequirement(config ResourceConfig) (PaymentRequirement, error) {
	if err := validate.Struct(config); err != nil {
		return PaymentRequirement{}, fmt.Errorf("%w: %v", ErrInvalidRequirements, err)
	}

	chain, err := GetChainConfig(config.Network)
	if err != nil {
		return PaymentRequirement{}, err
	}

	asset, atomic, err := ProcessPriceToAtomicAmount(config.Price, config.Network)
	if err != nil {
		return PaymentRequirement{}, err
	}

	scheme := config.Scheme
	if scheme == "" {
		scheme = SchemeExact
	}
	maxTimeout := config.MaxTimeoutSeconds
	if maxTimeout == 0 {
		maxTimeout = 300
	}
	mimeType := config.MimeType
	if mimeType == "" {
		mimeType = "application/json"
	}

	req := PaymentRequirement{
		Scheme:            scheme,
		Network:           config.Network,
		MaxAmountRequired: atomic,
		Asset:             asset.Address,
		PayTo:             config.PayTo,
		Description:       config.Description,
		MimeType:          mimeType,
		MaxTimeoutSeconds: maxTimeout,
	}

	if chain.Type == NetworkTypeEVM {
		req.Extra = map[string]interface{}{
			"name":    asset.Name,
			"version": chain.EIP3009Version,
		}
	}

	return req, nil
}
