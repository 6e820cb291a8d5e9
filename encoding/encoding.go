// Package encoding implements the wire codec for x402 payment data: payment
// payloads, settlement responses, and requirement envelopes are carried as
// base64-encoded JSON in HTTP headers and bodies. Decoding is strict: the
// payload variant is resolved from the declared network and its required
// fields are validated, so decode(encode(p)) == p for every valid payload.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/x402-labs/x402-go"
)

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string
// suitable for the X-Payment header. Field order is fixed by the struct
// definitions, so encoding is canonical.
func EncodePayment(payment x402.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts an X-Payment header value back to a PaymentPayload.
// The chain-specific payload is decoded into its concrete variant
// (EVMPayload, TONPayload, or TronPayload) and its required fields are
// validated; any missing or malformed field fails with ErrMalformedHeader.
func DecodePayment(encoded string) (x402.PaymentPayload, error) {
	var payment x402.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("%w: invalid base64: %v", x402.ErrMalformedHeader, err)
	}

	var envelope struct {
		X402Version int             `json:"x402Version"`
		Scheme      string          `json:"scheme"`
		Network     string          `json:"network"`
		Payload     json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return payment, fmt.Errorf("%w: invalid JSON: %v", x402.ErrMalformedHeader, err)
	}

	if envelope.X402Version != x402.ProtocolVersion {
		return payment, fmt.Errorf("%w: version %d", x402.ErrUnsupportedVersion, envelope.X402Version)
	}
	if envelope.Scheme == "" || envelope.Network == "" {
		return payment, fmt.Errorf("%w: missing scheme or network", x402.ErrMalformedHeader)
	}
	if len(envelope.Payload) == 0 {
		return payment, fmt.Errorf("%w: missing payload", x402.ErrMalformedHeader)
	}

	variant, err := decodeVariant(envelope.Network, envelope.Payload)
	if err != nil {
		return payment, err
	}

	payment = x402.PaymentPayload{
		X402Version: envelope.X402Version,
		Scheme:      envelope.Scheme,
		Network:     envelope.Network,
		Payload:     variant,
	}
	return payment, nil
}

// decodeVariant unmarshals the chain-specific payload for the declared
// network and validates it.
func decodeVariant(network string, raw json.RawMessage) (interface{}, error) {
	netType, err := x402.NetworkTypeOf(network)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrMalformedHeader, err)
	}

	switch netType {
	case x402.NetworkTypeEVM:
		var p x402.EVMPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: EVM payload: %v", x402.ErrMalformedHeader, err)
		}
		if err := validateEVMPayload(p); err != nil {
			return nil, err
		}
		return p, nil

	case x402.NetworkTypeTON:
		var p x402.TONPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: TON payload: %v", x402.ErrMalformedHeader, err)
		}
		if p.SenderAddress == "" || p.Boc == "" || p.Expiration <= 0 {
			return nil, fmt.Errorf("%w: TON payload missing senderAddress, boc, or expiration", x402.ErrMalformedHeader)
		}
		if _, err := base64.StdEncoding.DecodeString(p.Boc); err != nil {
			return nil, fmt.Errorf("%w: TON boc is not valid base64", x402.ErrMalformedHeader)
		}
		return p, nil

	case x402.NetworkTypeTron:
		var p x402.TronPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: TRON payload: %v", x402.ErrMalformedHeader, err)
		}
		if err := validateTronPayload(p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: network %s", x402.ErrMalformedHeader, network)
	}
}

func validateEVMPayload(p x402.EVMPayload) error {
	a := p.Authorization
	switch {
	case !isHex(p.Signature, 65):
		return fmt.Errorf("%w: EVM signature must be 65 bytes of 0x-hex", x402.ErrMalformedHeader)
	case !isHex(a.From, 20) || !isHex(a.To, 20):
		return fmt.Errorf("%w: EVM addresses must be 20 bytes of 0x-hex", x402.ErrMalformedHeader)
	case !isHex(a.Nonce, 32):
		return fmt.Errorf("%w: EVM nonce must be 32 bytes of 0x-hex", x402.ErrMalformedHeader)
	case a.Value == "" || a.ValidAfter == "" || a.ValidBefore == "":
		return fmt.Errorf("%w: EVM authorization missing value or validity window", x402.ErrMalformedHeader)
	}
	return nil
}

func validateTronPayload(p x402.TronPayload) error {
	a := p.Authorization
	switch {
	case !isHex(p.Signature, 65):
		return fmt.Errorf("%w: TRON signature must be 65 bytes of 0x-hex", x402.ErrMalformedHeader)
	case !strings.HasPrefix(a.From, "T") || !strings.HasPrefix(a.To, "T"):
		return fmt.Errorf("%w: TRON addresses must be base58check T-addresses", x402.ErrMalformedHeader)
	case !isHex(a.Nonce, 32):
		return fmt.Errorf("%w: TRON nonce must be 32 bytes of 0x-hex", x402.ErrMalformedHeader)
	case a.Value == "" || a.ValidAfter == "" || a.ValidBefore == "":
		return fmt.Errorf("%w: TRON authorization missing value or validity window", x402.ErrMalformedHeader)
	}
	return nil
}

// isHex reports whether s is a 0x-prefixed hex string of exactly byteLen bytes.
func isHex(s string, byteLen int) bool {
	if len(s) != 2+2*byteLen || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// EncodeSettlement converts a SettleResponse to a base64-encoded JSON string
// for the X-Payment-Response header.
func EncodeSettlement(settlement x402.SettleResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts an X-Payment-Response header value back to a
// SettleResponse.
func DecodeSettlement(encoded string) (x402.SettleResponse, error) {
	var settlement x402.SettleResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("%w: invalid base64: %v", x402.ErrMalformedHeader, err)
	}
	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("%w: invalid JSON: %v", x402.ErrMalformedHeader, err)
	}
	return settlement, nil
}

// EncodeRequirements converts a PaymentRequirementsResponse to base64 JSON.
func EncodeRequirements(requirements x402.PaymentRequirementsResponse) (string, error) {
	reqJSON, err := json.Marshal(requirements)
	if err != nil {
		return "", fmt.Errorf("failed to marshal requirements: %w", err)
	}
	return base64.StdEncoding.EncodeToString(reqJSON), nil
}

// DecodeRequirements converts base64 JSON to a PaymentRequirementsResponse.
func DecodeRequirements(encoded string) (x402.PaymentRequirementsResponse, error) {
	var requirements x402.PaymentRequirementsResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return requirements, fmt.Errorf("%w: invalid base64: %v", x402.ErrMalformedHeader, err)
	}
	if err := json.Unmarshal(decoded, &requirements); err != nil {
		return requirements, fmt.Errorf("%w: invalid JSON: %v", x402.ErrMalformedHeader, err)
	}
	return requirements, nil
}
