package evm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/x402-labs/x402-go"
)

// clockSkewSeconds is subtracted from validAfter so an authorization is not
// rejected when the client clock runs slightly ahead of the chain.
const clockSkewSeconds = 10

// defaultTimeoutSeconds bounds the validity window when a requirement does
// not specify one.
const defaultTimeoutSeconds = 300

// transferWithAuthorizationTypes is the EIP-712 struct type for EIP-3009.
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

// Codec builds EIP-3009 payment payloads for EVM networks. It implements
// x402.SchemeCodec.
type Codec struct {
	signer x402.TypedDataSigner
}

// NewCodec creates an EVM scheme codec backed by the given signer.
func NewCodec(signer x402.TypedDataSigner) *Codec {
	return &Codec{signer: signer}
}

// Scheme returns the payment scheme identifier.
func (c *Codec) Scheme() string {
	return x402.SchemeExact
}

// SupportsNetwork reports whether the network is a known EVM chain.
func (c *Codec) SupportsNetwork(network string) bool {
	netType, err := x402.NetworkTypeOf(network)
	return err == nil && netType == x402.NetworkTypeEVM
}

// ValidateAddress reports whether addr is a valid 0x-prefixed hex address.
func (c *Codec) ValidateAddress(addr string) bool {
	return common.IsHexAddress(addr) && strings.HasPrefix(addr, "0x")
}

// DefaultAsset returns the network's default stablecoin.
func (c *Codec) DefaultAsset(network string) (x402.TokenConfig, error) {
	if !c.SupportsNetwork(network) {
		return x402.TokenConfig{}, fmt.Errorf("%w: %s", x402.ErrUnsupportedNetwork, network)
	}
	return x402.DefaultAssetFor(network)
}

// BuildPayload constructs and signs an EIP-3009 transferWithAuthorization for
// the requirement. The authorized value equals MaxAmountRequired exactly,
// with a validity window of [now-skew, now+maxTimeoutSeconds] and a fresh
// random 32-byte nonce per call.
func (c *Codec) BuildPayload(ctx context.Context, req x402.PaymentRequirement) (*x402.PaymentPayload, error) {
	config, err := x402.GetChainConfig(req.Network)
	if err != nil || config.Type != x402.NetworkTypeEVM {
		return nil, x402.NewPaymentError(x402.ErrCodeUnsupportedScheme, "network is not an EVM chain", x402.ErrUnsupportedNetwork).
			WithDetails("network", req.Network)
	}
	if !c.ValidateAddress(req.PayTo) {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "payTo is not a valid EVM address", x402.ErrInvalidAddress).
			WithDetails("payTo", req.PayTo)
	}
	if !c.ValidateAddress(req.Asset) {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "asset is not a valid EVM address", x402.ErrInvalidAddress).
			WithDetails("asset", req.Asset)
	}

	value, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
	if !ok || value.Sign() < 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "maxAmountRequired is not a valid amount", x402.ErrInvalidAmount).
			WithDetails("maxAmountRequired", req.MaxAmountRequired)
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
	validAfter := now - clockSkewSeconds
	validBefore := now + int64(timeout)

	auth := x402.EVMAuthorization{
		From:        strings.ToLower(c.signer.Address()),
		To:          strings.ToLower(req.PayTo),
		Value:       value.String(),
		ValidAfter:  strconv.FormatInt(validAfter, 10),
		ValidBefore: strconv.FormatInt(validBefore, 10),
		Nonce:       nonce,
	}

	domain := x402.TypedDataDomain{
		Name:              domainName(req, config),
		Version:           domainVersion(req, config),
		ChainID:           config.ChainID,
		VerifyingContract: strings.ToLower(req.Asset),
	}

	signature, err := c.signer.SignTypedData(ctx, domain, transferWithAuthorizationTypes, "TransferWithAuthorization", map[string]interface{}{
		"from":        auth.From,
		"to":          auth.To,
		"value":       auth.Value,
		"validAfter":  auth.ValidAfter,
		"validBefore": auth.ValidBefore,
		"nonce":       auth.Nonce,
	})
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to sign authorization", fmt.Errorf("%w: %v", x402.ErrSigningFailed, err))
	}

	return &x402.PaymentPayload{
		X402Version: x402.ProtocolVersion,
		Scheme:      x402.SchemeExact,
		Network:     req.Network,
		Payload: x402.EVMPayload{
			Signature:     "0x" + hex.EncodeToString(signature),
			Authorization: auth,
		},
	}, nil
}

// domainName resolves the EIP-712 domain name: the requirement's extra.name
// when the server supplies one, otherwise the chain's default asset name.
func domainName(req x402.PaymentRequirement, config x402.ChainConfig) string {
	if name, ok := req.Extra["name"].(string); ok && name != "" {
		return name
	}
	return config.DefaultAsset.Name
}

// domainVersion resolves the EIP-712 domain version the same way.
func domainVersion(req x402.PaymentRequirement, config x402.ChainConfig) string {
	if version, ok := req.Extra["version"].(string); ok && version != "" {
		return version
	}
	return config.EIP3009Version
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
