package x402

import "context"

// TypedDataDomain is the EIP-712 domain separator passed to a signer
// capability. TRON typed-data signing reuses the same shape.
type TypedDataDomain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// TypedDataField describes one field of an EIP-712 struct type.
type TypedDataField struct {
	Name string
	Type string
}

// TypedDataSigner is the external signer capability for authorization-style
// chains (EVM, TRON). The core never manages private key material itself;
// implementations hold the key (or delegate to a wallet service) and expose
// exactly this surface. Key material is initialized once and read
// concurrently, so implementations must be safe for concurrent use.
type TypedDataSigner interface {
	// Address returns the signer's address in the chain-native hex format.
	Address() string

	// SignTypedData signs the EIP-712 typed data and returns the raw 65-byte
	// (r,s,v) signature.
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}
