// Package ton implements the TON chain family for x402 payments: jetton
// transfer orders are serialized as bags-of-cells and signed with the
// payer's wallet key.
package ton

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/tonkeeper/tongo"
)

// JettonWalletResolver resolves the jetton wallet that master deployed for
// owner, typically by calling the master's get_wallet_address get-method
// through a TON API or lite client.
type JettonWalletResolver func(ctx context.Context, master, owner tongo.AccountID) (tongo.AccountID, error)

// Signer is the external signing capability for TON payments. Implementations
// hold the wallet key (or delegate to a wallet service) and must be safe for
// concurrent use.
type Signer interface {
	// Address returns the payer's wallet address.
	Address() string

	// JettonWallet returns the payer's jetton wallet for the given jetton
	// master. The transfer is addressed to this contract, so it is part of
	// what gets signed.
	JettonWallet(ctx context.Context, master tongo.AccountID) (tongo.AccountID, error)

	// Sign signs the given cell hash with the wallet's ed25519 key.
	Sign(ctx context.Context, hash []byte) ([]byte, error)
}

// LocalSigner signs with an in-process ed25519 private key. It implements
// Signer.
type LocalSigner struct {
	address    string
	account    tongo.AccountID
	privateKey ed25519.PrivateKey
	resolver   JettonWalletResolver
}

// NewLocalSigner creates a signer for the given wallet address and key. The
// address is validated but not derived from the key: wallet addresses on TON
// depend on the wallet contract code, which is outside this package's scope.
// The resolver looks up the wallet's jetton wallets on chain; a nil resolver
// makes JettonWallet fail, which is fine only for code paths that never
// build a payment.
func NewLocalSigner(address string, privateKey ed25519.PrivateKey, resolver JettonWalletResolver) (*LocalSigner, error) {
	account, err := tongo.ParseAccountID(address)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address: %w", err)
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(privateKey))
	}
	return &LocalSigner{address: address, account: account, privateKey: privateKey, resolver: resolver}, nil
}

// Address returns the wallet address.
func (s *LocalSigner) Address() string {
	return s.address
}

// JettonWallet resolves this wallet's jetton wallet for master through the
// configured resolver.
func (s *LocalSigner) JettonWallet(ctx context.Context, master tongo.AccountID) (tongo.AccountID, error) {
	if s.resolver == nil {
		return tongo.AccountID{}, fmt.Errorf("no jetton wallet resolver configured")
	}
	return s.resolver(ctx, master, s.account)
}

// Sign signs the cell hash.
func (s *LocalSigner) Sign(ctx context.Context, hash []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, hash), nil
}
