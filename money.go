package x402

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenAmount is an explicit price: an atomic amount of a specific asset.
// It is the typed alternative to a human decimal price string.
type TokenAmount struct {
	// Asset describes the token the amount is denominated in.
	Asset TokenConfig

	// Amount is the atomic-unit amount as a decimal string.
	Amount string
}

// ParseMoney converts a human decimal amount (optionally "$"-prefixed) to
// atomic units at the given precision. The conversion must be exact: prices
// with fractional digits below the smallest atomic unit fail with
// ErrAmountPrecision rather than being silently rounded.
func ParseMoney(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimPrefix(strings.TrimSpace(amount), "$")
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, amount)
	}

	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q at %d decimals", ErrAmountPrecision, amount, decimals)
	}
	return shifted.BigInt(), nil
}

// FormatMoney converts an atomic amount back to a human decimal string with
// exactly the asset's precision. ParseMoney(FormatMoney(a, d), d) == a for
// every representable amount.
func FormatMoney(atomic *big.Int, decimals int) string {
	if atomic == nil {
		return decimal.Zero.StringFixed(int32(decimals))
	}
	return decimal.NewFromBigInt(atomic, -int32(decimals)).StringFixed(int32(decimals))
}

// ProcessPriceToAtomicAmount resolves a price to a concrete (asset, atomic
// amount) pair on the target network. price must be either a decimal-dollar
// string (e.g. "0.10" or "$0.10"), which is converted against the network's
// default stablecoin, or a TokenAmount carrying an explicit asset and atomic
// amount. Any other price shape is rejected at this boundary.
func ProcessPriceToAtomicAmount(price interface{}, network string) (TokenConfig, string, error) {
	switch p := price.(type) {
	case string:
		asset, err := DefaultAssetFor(network)
		if err != nil {
			return TokenConfig{}, "", err
		}
		atomic, err := ParseMoney(p, asset.Decimals)
		if err != nil {
			return TokenConfig{}, "", err
		}
		return asset, atomic.String(), nil

	case TokenAmount:
		if p.Asset.Address == "" {
			return TokenConfig{}, "", fmt.Errorf("%w: token amount without asset", ErrInvalidAmount)
		}
		if _, ok := new(big.Int).SetString(p.Amount, 10); !ok {
			return TokenConfig{}, "", fmt.Errorf("%w: %q", ErrInvalidAmount, p.Amount)
		}
		return p.Asset, p.Amount, nil

	default:
		return TokenConfig{}, "", fmt.Errorf("%w: unsupported price type %T", ErrInvalidAmount, price)
	}
}
