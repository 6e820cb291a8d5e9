// Package evm implements the EVM chain family for x402 payments: a local
// private-key signer for EIP-712 typed data and a scheme codec that builds
// EIP-3009 transferWithAuthorization payloads.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/x402-labs/x402-go"
)

// LocalSigner signs EIP-712 typed data with an in-process ECDSA private key.
// It implements x402.TypedDataSigner. The key is set at construction and never
// mutated, so a LocalSigner is safe for concurrent use.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    string
}

// NewLocalSigner creates a signer from a hex-encoded private key. The 0x
// prefix is optional.
func NewLocalSigner(hexKey string) (*LocalSigner, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")

	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	return &LocalSigner{
		privateKey: privateKey,
		address:    strings.ToLower(address.Hex()),
	}, nil
}

// NewLocalSignerFromKey creates a signer from an existing ECDSA private key.
func NewLocalSignerFromKey(privateKey *ecdsa.PrivateKey) *LocalSigner {
	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	return &LocalSigner{
		privateKey: privateKey,
		address:    strings.ToLower(address.Hex()),
	}
}

// Address returns the signer's address as canonical lower-case hex.
func (s *LocalSigner) Address() string {
	return s.address
}

// SignTypedData signs EIP-712 typed data and returns the 65-byte (r,s,v)
// signature with v adjusted to 27/28.
func (s *LocalSigner) SignTypedData(ctx context.Context, domain x402.TypedDataDomain, types map[string][]x402.TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error) {
	digest, err := hashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}

	// Recovery id to Ethereum convention.
	signature[64] += 27
	return signature, nil
}

// hashTypedData computes the EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || hashStruct(message)).
func hashTypedData(domain x402.TypedDataDomain, types map[string][]x402.TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage(message),
	}
	for name, fields := range types {
		converted := make([]apitypes.Type, len(fields))
		for i, f := range fields {
			converted[i] = apitypes.Type{Name: f.Name, Type: f.Type}
		}
		typedData.Types[name] = converted
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(primaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256(rawData), nil
}
