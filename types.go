// Package x402 implements the x402 micropayment negotiation protocol over
// HTTP: servers advertise payment requirements on a 402 response, clients
// build and sign a chain-specific payment authorization, and a trusted
// facilitator verifies and settles it on chain. The package supports the
// EVM, TON, and TRON chain families behind one wire protocol.
package x402

// SchemeExact is the only payment scheme currently defined by the protocol:
// the authorized value equals maxAmountRequired exactly.
const SchemeExact = "exact"

// ProtocolVersion is the x402 protocol version this library speaks.
const ProtocolVersion = 1

// PaymentRequirement represents a single payment option from a 402 response.
// It is produced by the server per request and must be treated as immutable
// once received.
type PaymentRequirement struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base", "ton", "tron").
	Network string `json:"network"`

	// MaxAmountRequired is the payment amount in atomic units as a decimal string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Asset is the token contract address (EVM/TRON) or jetton master address (TON).
	Asset string `json:"asset"`

	// PayTo is the recipient address for the payment, in the network's native format.
	PayTo string `json:"payTo"`

	// Resource is the URL of the protected resource.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Extra contains scheme-specific additional data. For EVM networks this
	// carries the EIP-712 domain "name" and "version" of the asset contract.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequirementsResponse represents the complete 402 response body.
type PaymentRequirementsResponse struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Error is a human-readable error message.
	Error string `json:"error"`

	// Accepts is an ordered list of payment options the server will accept.
	// Server order encodes server preference.
	Accepts []PaymentRequirement `json:"accepts"`
}

// PaymentPayload represents a signed payment authorization that will be sent
// to the server in the X-Payment header. It is built once per retry attempt
// and consumed exactly once by the facilitator.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the chain-family-specific signed payment data:
	// EVMPayload, TONPayload, or TronPayload.
	Payload interface{} `json:"payload"`
}

// EVMPayload represents an EVM payment with an EIP-3009 authorization.
type EVMPayload struct {
	// Signature is the 65-byte (r,s,v) ECDSA signature, 0x-prefixed hex.
	Signature string `json:"signature"`

	// Authorization contains the EIP-3009 transferWithAuthorization parameters.
	Authorization EVMAuthorization `json:"authorization"`
}

// EVMAuthorization represents EIP-3009 transferWithAuthorization parameters.
// Addresses are canonical lower-case 0x-prefixed hex.
type EVMAuthorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte 0x-prefixed hex string preventing replay.
	Nonce string `json:"nonce"`
}

// TONPayload represents a TON payment: a signed jetton transfer serialized
// as a bag-of-cells.
type TONPayload struct {
	// SenderAddress is the payer's wallet address.
	SenderAddress string `json:"senderAddress"`

	// Boc is the base64-encoded signed transfer cell.
	Boc string `json:"boc"`

	// Expiration is the unix timestamp after which the transfer is invalid.
	Expiration int64 `json:"expiration"`
}

// TronPayload represents a TRON payment. It mirrors the EVM authorization
// structure but carries base58check T-addresses; the facilitator dispatches
// it to TRC20-specific contract calls rather than native EIP-3009.
type TronPayload struct {
	// Signature is the 65-byte (r,s,v) signature, 0x-prefixed hex.
	Signature string `json:"signature"`

	// Authorization contains the transfer authorization parameters.
	Authorization TronAuthorization `json:"authorization"`
}

// TronAuthorization is the TRON counterpart of EVMAuthorization with
// base58check addressing.
type TronAuthorization struct {
	// From is the payer's T-address.
	From string `json:"from"`

	// To is the recipient's T-address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value string `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter string `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore string `json:"validBefore"`

	// Nonce is a unique 32-byte 0x-prefixed hex string preventing replay.
	Nonce string `json:"nonce"`
}

// TokenConfig describes a token an application or network configuration
// knows about.
type TokenConfig struct {
	// Address is the token contract, jetton master, or TRC20 contract address.
	Address string

	// Symbol is the token symbol (e.g., "USDC", "USDT").
	Symbol string

	// Decimals is the number of decimal places for the token.
	Decimals int

	// Name is an optional human-readable token name. For EVM assets this is
	// also the EIP-712 domain name when Extra does not override it.
	Name string
}

// VerifyResponse is the facilitator's answer to a verify call. It is
// facilitator-owned and read-only; callers never persist it beyond the
// request lifecycle.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to a settle call.
type SettleResponse struct {
	// Success indicates whether the payment was settled on chain.
	Success bool `json:"success"`

	// ErrorReason provides details if settlement failed. Values come from a
	// fixed set: insufficient_funds, authorization_expired,
	// nonce_already_used, invalid_signature.
	ErrorReason string `json:"errorReason,omitempty"`

	// Transaction is the blockchain transaction hash.
	Transaction string `json:"transaction,omitempty"`

	// Network is the blockchain network where the payment was settled.
	Network string `json:"network,omitempty"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// Settlement failure reasons reported by facilitators.
const (
	ReasonInsufficientFunds    = "insufficient_funds"
	ReasonAuthorizationExpired = "authorization_expired"
	ReasonNonceAlreadyUsed     = "nonce_already_used"
	ReasonInvalidSignature     = "invalid_signature"
)

// FindMatchingRequirement returns the requirement from the list that matches
// the payload's scheme and network. Used by server adapters to pair a decoded
// X-Payment header with the requirement it satisfies.
func FindMatchingRequirement(payment PaymentPayload, requirements []PaymentRequirement) (*PaymentRequirement, error) {
	for i := range requirements {
		if requirements[i].Scheme == payment.Scheme && requirements[i].Network == payment.Network {
			return &requirements[i], nil
		}
	}
	return nil, ErrUnsupportedScheme
}
