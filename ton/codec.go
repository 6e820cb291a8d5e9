package ton

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"

	"github.com/x402-labs/x402-go"
)

// jettonTransferOp is the TEP-74 jetton transfer opcode.
const jettonTransferOp = 0x0f8a7ea5

// defaultTimeoutSeconds bounds the payment validity window when a
// requirement does not specify one.
const defaultTimeoutSeconds = 300

// Codec builds signed jetton transfer payloads for TON networks. It
// implements x402.SchemeCodec.
type Codec struct {
	signer Signer
}

// NewCodec creates a TON scheme codec backed by the given signer.
func NewCodec(signer Signer) *Codec {
	return &Codec{signer: signer}
}

// Scheme returns the payment scheme identifier.
func (c *Codec) Scheme() string {
	return x402.SchemeExact
}

// SupportsNetwork reports whether the network is a known TON chain.
func (c *Codec) SupportsNetwork(network string) bool {
	netType, err := x402.NetworkTypeOf(network)
	return err == nil && netType == x402.NetworkTypeTON
}

// ValidateAddress reports whether addr parses as a TON account address in
// raw or friendly form.
func (c *Codec) ValidateAddress(addr string) bool {
	_, err := tongo.ParseAccountID(addr)
	return err == nil
}

// DefaultAsset returns the network's default jetton.
func (c *Codec) DefaultAsset(network string) (x402.TokenConfig, error) {
	if !c.SupportsNetwork(network) {
		return x402.TokenConfig{}, fmt.Errorf("%w: %s", x402.ErrUnsupportedNetwork, network)
	}
	return x402.DefaultAssetFor(network)
}

// BuildPayload resolves the payer's jetton wallet for the requirement's
// asset, builds a TEP-74 transfer body, and signs an order cell that binds
// the transfer to the jetton being spent and to a validity deadline. The
// wire envelope is the 64-byte signature with the order as its single
// reference; the facilitator unwraps it, checks the signature against the
// sender's wallet, checks valid_until, and submits the transfer to the
// jetton wallet named in the order.
func (c *Codec) BuildPayload(ctx context.Context, req x402.PaymentRequirement) (*x402.PaymentPayload, error) {
	if !c.SupportsNetwork(req.Network) {
		return nil, x402.NewPaymentError(x402.ErrCodeUnsupportedScheme, "network is not a TON chain", x402.ErrUnsupportedNetwork).
			WithDetails("network", req.Network)
	}

	destination, err := tongo.ParseAccountID(req.PayTo)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "payTo is not a valid TON address", x402.ErrInvalidAddress).
			WithDetails("payTo", req.PayTo)
	}
	master, err := tongo.ParseAccountID(req.Asset)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "asset is not a valid jetton master address", x402.ErrInvalidAddress).
			WithDetails("asset", req.Asset)
	}
	sender, err := tongo.ParseAccountID(c.signer.Address())
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "signer address is not a valid TON address", x402.ErrInvalidAddress)
	}

	amount, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
	if !ok || amount.Sign() < 0 {
		return nil, x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "maxAmountRequired is not a valid amount", x402.ErrInvalidAmount).
			WithDetails("maxAmountRequired", req.MaxAmountRequired)
	}

	jettonWallet, err := c.signer.JettonWallet(ctx, master)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to resolve jetton wallet", fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)).
			WithDetails("asset", req.Asset)
	}

	queryID, err := generateQueryID()
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to generate query id", err)
	}

	timeout := req.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}
	expiration := time.Now().Unix() + int64(timeout)

	body, err := buildJettonTransferBody(queryID, amount, destination, sender)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to build jetton transfer body", err)
	}
	order, err := buildOrder(expiration, master, jettonWallet, body)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to build transfer order", err)
	}

	hash, err := order.Hash()
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to hash transfer order", err)
	}
	signature, err := c.signer.Sign(ctx, hash)
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to sign transfer", fmt.Errorf("%w: %v", x402.ErrSigningFailed, err))
	}

	envelope := boc.NewCell()
	if err := envelope.WriteBytes(signature); err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to write signature", err)
	}
	if err := envelope.AddRef(order); err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to attach transfer order", err)
	}
	encoded, err := envelope.ToBocBase64()
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeSigningFailed, "failed to serialize transfer", err)
	}

	return &x402.PaymentPayload{
		X402Version: x402.ProtocolVersion,
		Scheme:      x402.SchemeExact,
		Network:     req.Network,
		Payload: x402.TONPayload{
			SenderAddress: c.signer.Address(),
			Boc:           encoded,
			Expiration:    expiration,
		},
	}, nil
}

// buildOrder wraps the transfer body in the cell that actually gets signed:
// valid_until:uint64 asset:MsgAddress jetton_wallet:MsgAddress body:^Cell.
// The signature therefore commits to the jetton being transferred and to
// the deadline, not just the transfer body. The plaintext expiration field
// in TONPayload repeats valid_until for quick inspection.
func buildOrder(validUntil int64, asset, jettonWallet tongo.AccountID, body *boc.Cell) (*boc.Cell, error) {
	order := boc.NewCell()
	if err := order.WriteUint(uint64(validUntil), 64); err != nil {
		return nil, err
	}
	if err := writeAddress(order, asset); err != nil {
		return nil, err
	}
	if err := writeAddress(order, jettonWallet); err != nil {
		return nil, err
	}
	if err := order.AddRef(body); err != nil {
		return nil, err
	}
	return order, nil
}

// buildJettonTransferBody serializes a TEP-74 transfer message body:
// transfer#0f8a7ea5 query_id:uint64 amount:(VarUInteger 16)
// destination:MsgAddress response_destination:MsgAddress
// custom_payload:(Maybe ^Cell) forward_ton_amount:(VarUInteger 16)
// forward_payload:(Either Cell ^Cell).
func buildJettonTransferBody(queryID uint64, amount *big.Int, destination, response tongo.AccountID) (*boc.Cell, error) {
	body := boc.NewCell()
	if err := body.WriteUint(jettonTransferOp, 32); err != nil {
		return nil, err
	}
	if err := body.WriteUint(queryID, 64); err != nil {
		return nil, err
	}
	if err := writeCoins(body, amount); err != nil {
		return nil, err
	}
	if err := writeAddress(body, destination); err != nil {
		return nil, err
	}
	if err := writeAddress(body, response); err != nil {
		return nil, err
	}
	// custom_payload: nothing
	if err := body.WriteBit(false); err != nil {
		return nil, err
	}
	// forward_ton_amount: 0
	if err := writeCoins(body, big.NewInt(0)); err != nil {
		return nil, err
	}
	// forward_payload: inline, empty
	if err := body.WriteBit(false); err != nil {
		return nil, err
	}
	return body, nil
}

// writeCoins writes a VarUInteger 16: a 4-bit byte count followed by the
// value's big-endian bytes.
func writeCoins(cell *boc.Cell, value *big.Int) error {
	bytes := value.Bytes()
	if len(bytes) > 15 {
		return fmt.Errorf("coins value %s exceeds 120 bits", value)
	}
	if err := cell.WriteUint(uint64(len(bytes)), 4); err != nil {
		return err
	}
	if len(bytes) == 0 {
		return nil
	}
	return cell.WriteBytes(bytes)
}

// writeAddress writes an addr_std MsgAddress: tag 0b10, no anycast, 8-bit
// workchain, 256-bit account hash.
func writeAddress(cell *boc.Cell, account tongo.AccountID) error {
	if err := cell.WriteUint(0b100, 3); err != nil {
		return err
	}
	if err := cell.WriteUint(uint64(uint8(account.Workchain)), 8); err != nil {
		return err
	}
	return cell.WriteBytes(account.Address[:])
}

// generateQueryID returns a random 64-bit jetton transfer query id.
func generateQueryID() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
