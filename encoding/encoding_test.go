package encoding

import (
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/x402-labs/x402-go"
)

func validEVMPayment() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base",
		Payload: x402.EVMPayload{
			Signature: "0x" + strings.Repeat("ab", 65),
			Authorization: x402.EVMAuthorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          "0x2222222222222222222222222222222222222222",
				Value:       "10000",
				ValidAfter:  "1700000000",
				ValidBefore: "1700000600",
				Nonce:       "0x" + strings.Repeat("cd", 32),
			},
		},
	}
}

func validTONPayment() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "ton",
		Payload: x402.TONPayload{
			SenderAddress: "EQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG",
			Boc:           base64.StdEncoding.EncodeToString([]byte("signed transfer")),
			Expiration:    1700000600,
		},
	}
}

func validTronPayment() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "tron",
		Payload: x402.TronPayload{
			Signature: "0x" + strings.Repeat("ab", 65),
			Authorization: x402.TronAuthorization{
				From:        "TLyqzVGLV1srkB7dToTAEqgDSfPtXRJZYH",
				To:          "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
				Value:       "10000",
				ValidAfter:  "1700000000",
				ValidBefore: "1700000600",
				Nonce:       "0x" + strings.Repeat("cd", 32),
			},
		},
	}
}

func TestPaymentRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payment x402.PaymentPayload
	}{
		{"EVM", validEVMPayment()},
		{"TON", validTONPayment()},
		{"TRON", validTronPayment()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodePayment(tt.payment)
			if err != nil {
				t.Fatalf("EncodePayment() error = %v", err)
			}
			decoded, err := DecodePayment(encoded)
			if err != nil {
				t.Fatalf("DecodePayment() error = %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.payment) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, tt.payment)
			}
		})
	}
}

func TestDecodePaymentErrors(t *testing.T) {
	corrupt := func(mutate func(p *x402.PaymentPayload)) string {
		p := validEVMPayment()
		mutate(&p)
		encoded, err := EncodePayment(p)
		if err != nil {
			t.Fatalf("EncodePayment() error = %v", err)
		}
		return encoded
	}

	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{
			name:    "invalid base64",
			encoded: "not-base64!!!",
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name:    "invalid JSON",
			encoded: base64.StdEncoding.EncodeToString([]byte("{broken")),
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name: "unsupported version",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				p.X402Version = 2
			}),
			wantErr: x402.ErrUnsupportedVersion,
		},
		{
			name: "missing scheme",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				p.Scheme = ""
			}),
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name: "unknown network",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				p.Network = "dogecoin"
			}),
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name: "truncated signature",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				evm := p.Payload.(x402.EVMPayload)
				evm.Signature = "0xdeadbeef"
				p.Payload = evm
			}),
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name: "bad nonce length",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				evm := p.Payload.(x402.EVMPayload)
				evm.Authorization.Nonce = "0xabcd"
				p.Payload = evm
			}),
			wantErr: x402.ErrMalformedHeader,
		},
		{
			name: "missing value",
			encoded: corrupt(func(p *x402.PaymentPayload) {
				evm := p.Payload.(x402.EVMPayload)
				evm.Authorization.Value = ""
				p.Payload = evm
			}),
			wantErr: x402.ErrMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayment(tt.encoded)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodePayment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodePaymentTONValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *x402.TONPayload)
	}{
		{"missing sender", func(p *x402.TONPayload) { p.SenderAddress = "" }},
		{"missing boc", func(p *x402.TONPayload) { p.Boc = "" }},
		{"boc not base64", func(p *x402.TONPayload) { p.Boc = "%%%" }},
		{"zero expiration", func(p *x402.TONPayload) { p.Expiration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := validTONPayment()
			ton := payment.Payload.(x402.TONPayload)
			tt.mutate(&ton)
			payment.Payload = ton

			encoded, err := EncodePayment(payment)
			if err != nil {
				t.Fatalf("EncodePayment() error = %v", err)
			}
			if _, err := DecodePayment(encoded); !errors.Is(err, x402.ErrMalformedHeader) {
				t.Errorf("DecodePayment() error = %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestSettlementRoundTrip(t *testing.T) {
	settlement := x402.SettleResponse{
		Success:     true,
		Transaction: "0xabc123",
		Network:     "base",
		Payer:       "0x1111111111111111111111111111111111111111",
	}

	encoded, err := EncodeSettlement(settlement)
	if err != nil {
		t.Fatalf("EncodeSettlement() error = %v", err)
	}
	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("DecodeSettlement() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, settlement) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, settlement)
	}
}

func TestRequirementsRoundTrip(t *testing.T) {
	requirements := x402.PaymentRequirementsResponse{
		X402Version: 1,
		Error:       "payment required",
		Accepts: []x402.PaymentRequirement{
			{
				Scheme:            "exact",
				Network:           "base",
				MaxAmountRequired: "10000",
				Asset:             "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
				PayTo:             "0x2222222222222222222222222222222222222222",
				Resource:          "https://api.example.com/data",
				MaxTimeoutSeconds: 300,
			},
		},
	}

	encoded, err := EncodeRequirements(requirements)
	if err != nil {
		t.Fatalf("EncodeRequirements() error = %v", err)
	}
	decoded, err := DecodeRequirements(encoded)
	if err != nil {
		t.Fatalf("DecodeRequirements() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, requirements) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, requirements)
	}
}
