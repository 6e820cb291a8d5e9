// Package tron implements the TRON chain family for x402 payments: transfer
// authorizations mirror the EVM structure but carry base58check T-addresses
// and are settled through TRC20 contract calls by the facilitator.
package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// addressPrefix is the TRON mainnet address version byte; encoded addresses
// start with "T".
const addressPrefix = 0x41

// DecodeAddress decodes a base58check T-address into its 21-byte payload
// (version byte plus 20-byte account).
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != 25 {
		return nil, fmt.Errorf("address payload is %d bytes, want 25", len(raw))
	}
	payload, checksum := raw[:21], raw[21:]
	if payload[0] != addressPrefix {
		return nil, fmt.Errorf("address version byte is %#x, want %#x", payload[0], addressPrefix)
	}
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return nil, fmt.Errorf("address checksum mismatch")
		}
	}
	return payload, nil
}

// EncodeAddress encodes a 21-byte payload (version byte plus account) as a
// base58check T-address.
func EncodeAddress(payload []byte) (string, error) {
	if len(payload) != 21 || payload[0] != addressPrefix {
		return "", fmt.Errorf("payload must be 21 bytes starting with %#x", addressPrefix)
	}
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...)), nil
}

// IsValidAddress reports whether address is a well-formed base58check
// T-address.
func IsValidAddress(address string) bool {
	_, err := DecodeAddress(address)
	return err == nil
}

// AddressToHex converts a T-address to the 0x-prefixed 20-byte hex form used
// for typed-data signing.
func AddressToHex(address string) (string, error) {
	payload, err := DecodeAddress(address)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(payload[1:]), nil
}

// HexToAddress converts a 0x-prefixed 20-byte hex address to its T-address
// form.
func HexToAddress(hexAddr string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexAddr, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != 20 {
		return "", fmt.Errorf("address is %d bytes, want 20", len(raw))
	}
	return EncodeAddress(append([]byte{addressPrefix}, raw...))
}
