package x402

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
		wantErr  error
	}{
		{"whole dollars", "1", 6, "1000000", nil},
		{"dollar prefix", "$0.10", 6, "100000", nil},
		{"cents", "0.01", 6, "10000", nil},
		{"smallest unit", "0.000001", 6, "1", nil},
		{"zero", "0", 6, "0", nil},
		{"whitespace", "  $2.50 ", 6, "2500000", nil},
		{"two decimals token", "1.25", 2, "125", nil},
		{"below precision", "0.0000001", 6, "", ErrAmountPrecision},
		{"below precision half", "0.0000005", 6, "", ErrAmountPrecision},
		{"negative", "-1", 6, "", ErrInvalidAmount},
		{"garbage", "one dollar", 6, "", ErrInvalidAmount},
		{"empty", "", 6, "", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.amount, tt.decimals)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseMoney(%q) error = %v, want %v", tt.amount, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q) error = %v", tt.amount, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseMoney(%q) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFormatMoneyRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "999999", "1000000", "123456789"}
	for _, atomic := range amounts {
		value, _ := new(big.Int).SetString(atomic, 10)
		formatted := FormatMoney(value, 6)
		back, err := ParseMoney(formatted, 6)
		if err != nil {
			t.Fatalf("ParseMoney(FormatMoney(%s)) error = %v", atomic, err)
		}
		if back.Cmp(value) != 0 {
			t.Errorf("round trip %s -> %s -> %s", atomic, formatted, back)
		}
	}

	if got := FormatMoney(nil, 6); got != "0.000000" {
		t.Errorf("FormatMoney(nil) = %q", got)
	}
}

func TestProcessPriceToAtomicAmount(t *testing.T) {
	asset, atomic, err := ProcessPriceToAtomicAmount("$0.10", "base")
	if err != nil {
		t.Fatalf("ProcessPriceToAtomicAmount() error = %v", err)
	}
	if asset.Symbol != "USDC" || atomic != "100000" {
		t.Errorf("got %s %s, want 100000 USDC", atomic, asset.Symbol)
	}

	custom := TokenAmount{
		Asset:  TokenConfig{Address: "0xabc0000000000000000000000000000000000000", Symbol: "DAI", Decimals: 18},
		Amount: "5000000000000000000",
	}
	asset, atomic, err = ProcessPriceToAtomicAmount(custom, "base")
	if err != nil {
		t.Fatalf("ProcessPriceToAtomicAmount(TokenAmount) error = %v", err)
	}
	if asset.Symbol != "DAI" || atomic != custom.Amount {
		t.Errorf("got %s %s, want passthrough", atomic, asset.Symbol)
	}

	if _, _, err := ProcessPriceToAtomicAmount(42, "base"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("int price error = %v, want ErrInvalidAmount", err)
	}
	if _, _, err := ProcessPriceToAtomicAmount("0.10", "dogecoin"); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Errorf("unknown network error = %v, want ErrUnsupportedNetwork", err)
	}
	if _, _, err := ProcessPriceToAtomicAmount(TokenAmount{Amount: "5"}, "base"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("missing asset error = %v, want ErrInvalidAmount", err)
	}
}
