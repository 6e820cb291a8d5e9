// Package validation provides structural validation for payment requirements
// and payloads, used by server adapters before any facilitator call is made.
// Address checks here are shape checks only; full parsing lives in the chain
// packages.
package validation

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/x402-labs/x402-go"
)

var (
	// evmAddressRegex matches 0x-prefixed 20-byte hex addresses.
	evmAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// tonRawAddressRegex matches raw-form TON addresses (workchain:hash).
	tonRawAddressRegex = regexp.MustCompile(`^-?[0-9]+:[a-fA-F0-9]{64}$`)

	// tonFriendlyAddressRegex matches user-friendly base64url TON addresses.
	tonFriendlyAddressRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{48}$`)

	// tronAddressRegex matches base58check T-addresses.
	tronAddressRegex = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
)

// ValidateAmount checks that amount is a positive decimal integer string.
func ValidateAmount(amount string) error {
	if amount == "" {
		return fmt.Errorf("amount cannot be empty")
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return fmt.Errorf("%w: %s", x402.ErrInvalidAmount, amount)
	}
	if value.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0, got %s", x402.ErrInvalidAmount, amount)
	}
	return nil
}

// ValidateAddress checks that address has the right shape for the network's
// chain family.
func ValidateAddress(address string, network string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	networkType, err := x402.NetworkTypeOf(network)
	if err != nil {
		return fmt.Errorf("cannot validate address: %w", err)
	}

	switch networkType {
	case x402.NetworkTypeEVM:
		if !evmAddressRegex.MatchString(address) {
			return fmt.Errorf("%w: %s is not 0x-prefixed 20-byte hex", x402.ErrInvalidAddress, address)
		}
	case x402.NetworkTypeTON:
		if !tonRawAddressRegex.MatchString(address) && !tonFriendlyAddressRegex.MatchString(address) {
			return fmt.Errorf("%w: %s is not a raw or friendly TON address", x402.ErrInvalidAddress, address)
		}
	case x402.NetworkTypeTron:
		if !tronAddressRegex.MatchString(address) {
			return fmt.Errorf("%w: %s is not a base58check T-address", x402.ErrInvalidAddress, address)
		}
	default:
		return fmt.Errorf("%w: %s", x402.ErrUnsupportedNetwork, network)
	}
	return nil
}

// ValidatePaymentRequirement checks a single requirement before it is
// advertised in a 402 response or matched against an incoming payment.
func ValidatePaymentRequirement(req x402.PaymentRequirement) error {
	if req.Scheme != x402.SchemeExact {
		return fmt.Errorf("%w: %s", x402.ErrUnsupportedScheme, req.Scheme)
	}
	if req.Network == "" {
		return fmt.Errorf("%w: network cannot be empty", x402.ErrInvalidRequirements)
	}
	if err := ValidateAmount(req.MaxAmountRequired); err != nil {
		return fmt.Errorf("%w: %v", x402.ErrInvalidRequirements, err)
	}
	if err := ValidateAddress(req.PayTo, req.Network); err != nil {
		return fmt.Errorf("%w: payTo: %v", x402.ErrInvalidRequirements, err)
	}
	if err := ValidateAddress(req.Asset, req.Network); err != nil {
		return fmt.Errorf("%w: asset: %v", x402.ErrInvalidRequirements, err)
	}
	if req.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("%w: maxTimeoutSeconds cannot be negative", x402.ErrInvalidRequirements)
	}
	return nil
}

// ValidatePaymentPayload checks an incoming payment envelope against the
// requirement it claims to satisfy.
func ValidatePaymentPayload(payment x402.PaymentPayload, req x402.PaymentRequirement) error {
	if payment.X402Version != x402.ProtocolVersion {
		return fmt.Errorf("%w: version %d", x402.ErrUnsupportedVersion, payment.X402Version)
	}
	if payment.Scheme != req.Scheme {
		return fmt.Errorf("%w: payment scheme %s does not match requirement %s", x402.ErrUnsupportedScheme, payment.Scheme, req.Scheme)
	}
	if payment.Network != req.Network {
		return fmt.Errorf("%w: payment network %s does not match requirement %s", x402.ErrUnsupportedNetwork, payment.Network, req.Network)
	}

	switch p := payment.Payload.(type) {
	case x402.EVMPayload:
		if p.Authorization.Value != req.MaxAmountRequired {
			return fmt.Errorf("%w: authorized value %s does not match required %s", x402.ErrInvalidAmount, p.Authorization.Value, req.MaxAmountRequired)
		}
	case x402.TronPayload:
		if p.Authorization.Value != req.MaxAmountRequired {
			return fmt.Errorf("%w: authorized value %s does not match required %s", x402.ErrInvalidAmount, p.Authorization.Value, req.MaxAmountRequired)
		}
	case x402.TONPayload:
		// Amount is inside the signed cell; the facilitator checks it.
	default:
		return fmt.Errorf("%w: unrecognized payload variant %T", x402.ErrMalformedHeader, payment.Payload)
	}
	return nil
}
