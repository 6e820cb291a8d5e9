package tron

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/x402-labs/x402-go"
)

// clockSkewSeconds is subtracted from validAfter to tolerate client clocks
// running slightly ahead of the chain.
const clockSkewSeconds = 10

// defaultTimeoutSeconds bounds the validity window when a requirement does
// not specify one.
const defaultTimeoutSeconds = 300

// transferWithAuthorizationTypes is the typed-data struct signed for TRON
// transfers. The shape matches EIP-3009 so wallet tooling built for TIP-712
// signing works unchanged.
var transferWithAuthorizationTypes = map[string][]x402.TypedDataField{
	"TransferWithAuthorization": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// Codec builds TRC20 transfer authorizations for TRON networks. It implements
// x402.SchemeCodec. The signer's Address() must return the account in
// 0x-prefixed hex form; the codec converts between hex and base58check at the
// wire boundary.
type Codec struct {
	signer x402.TypedDataSigner
}

// NewCodec creates a TRON scheme codec backed by the given signer.
func NewCodec(signer x402.TypedDataSigner) *Codec {
	return &Codec{signer: signer}
}

// Scheme returns the payment scheme identifier.
func (c *Codec) Scheme() string {
	return x402.SchemeExact
}

// SupportsNetwork reports whether the network is a known TRON chain.
func (c *Codec) SupportsNetwork(network string) bool {
	netType, err := x402.NetworkTypeOf(network)
	return err == nil && netType == x402.NetworkTypeTron
}

// ValidateAddress reports whether addr is a well-formed base58check
// T-address.
func (c *Codec) ValidateAddress(addr string) bool {
	return IsValidAddress(addr)
}

// DefaultAsset returns the network's default TRC20 stablecoin.
func (c *Codec) DefaultAsset(network string) (x402.TokenConfig, error) {
	if !c.SupportsNetwork(network) {
		return x402.TokenConfig{}, fmt.Errorf("%w: %s", x402.ErrUnsupportedNetwork, network)
	}
	return x402.DefaultAssetFor(network)
}

// BuildPayload constructs and signs a transfer authorization for the
// requirement. Addresses are signed in hex form but carried on the wire as
// T-addresses.
func (c *Codec) BuildPayload(ctx context.Context, req x402.PaymentRequirement) (*x402.PaymentPayload, error) {
	config, err := x402.GetChainConfig(req.Network)
	if err != nil || config.Type != x402.NetworkTypeTron {
		return nil, x402.NewPaymentError(x402.ErrCodeUnsupportedScheme, "network is not a TRON chain", x402.ErrUnsupportedNetwork).
			WithDetails("network", req.Network)
	}
	if !IsValidAddress(req.PayTo) {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "payTo is not a valid T-address", x402.ErrInvalidAddress).
			WithDetails("payTo", req.PayTo)
	}
	assetHex, err := AddressToHex(req.Asset)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "asset is not a valid T-address", x402.ErrInvalidAddress).
			WithDetails("asset", req.Asset)
	}

	value, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
	if !ok || value.Sign() < 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "maxAmountRequired is not a valid amount", x402.ErrInvalidAmount).
			WithDetails("maxAmountRequired", req.MaxAmountRequired)
	}

	fromHex := c.signer.Address()
	fromT, err := HexToAddress(fromHex)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "signer address is not valid hex", x402.ErrInvalidAddress)
	}
	toHex, err := AddressToHex(req.PayTo)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "payTo is not a valid T-address", x402.ErrInvalidAddress)
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to generate nonce", err)
	}

	timeout := req.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}
	now := time.Now().Unix()
	validAfter := strconv.FormatInt(now-clockSkewSeconds, 10)
	validBefore := strconv.FormatInt(now+int64(timeout), 10)

	domain := x402.TypedDataDomain{
		Name:              domainName(req, config),
		Version:           domainVersion(req),
		ChainID:           config.ChainID,
		VerifyingContract: assetHex,
	}

	signature, err := c.signer.SignTypedData(ctx, domain, transferWithAuthorizationTypes, "TransferWithAuthorization", map[string]interface{}{
		"from":        fromHex,
		"to":          toHex,
		"value":       value.String(),
		"validAfter":  validAfter,
		"validBefore": validBefore,
		"nonce":       nonce,
	})
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to sign authorization", fmt.Errorf("%w: %v", x402.ErrSigningFailed, err))
	}

	return &x402.PaymentPayload{
		X402Version: x402.ProtocolVersion,
		Scheme:      x402.SchemeExact,
		Network:     req.Network,
		Payload: x402.TronPayload{
			Signature: "0x" + hex.EncodeToString(signature),
			Authorization: x402.TronAuthorization{
				From:        fromT,
				To:          req.PayTo,
				Value:       value.String(),
				ValidAfter:  validAfter,
				ValidBefore: validBefore,
				Nonce:       nonce,
			},
		},
	}, nil
}

// domainName resolves the typed-data domain name: the requirement's
// extra.name when the server supplies one, otherwise the chain's default
// asset name.
func domainName(req x402.PaymentRequirement, config x402.ChainConfig) string {
	if name, ok := req.Extra["name"].(string); ok && name != "" {
		return name
	}
	return config.DefaultAsset.Name
}

// domainVersion resolves the typed-data domain version the same way;
// TRC20 contracts with EIP-3009-style authorizations use version "1"
// unless the requirement says otherwise.
func domainVersion(req x402.PaymentRequirement) string {
	if version, ok := req.Extra["version"].(string); ok && version != "" {
		return version
	}
	return "1"
}

// generateNonce returns a cryptographically random 32-byte nonce as
// 0x-prefixed hex.
func generateNonce() (string, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(nonce[:]), nil
}
