package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/x402-labs/x402-go"
)

const testPrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testRequirement() x402.PaymentRequirement {
	return x402.PaymentRequirement{
		Scheme:            "exact",
		Network:           "base",
		MaxAmountRequired: "10000",
		Asset:             "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		PayTo:             "0x2222222222222222222222222222222222222222",
		Resource:          "https://api.example.com/data",
		MaxTimeoutSeconds: 300,
	}
}

func TestNewLocalSigner(t *testing.T) {
	signer, err := NewLocalSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewLocalSigner() error = %v", err)
	}
	addr := signer.Address()
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		t.Errorf("Address() = %q, want 0x-prefixed 20-byte hex", addr)
	}
	if addr != strings.ToLower(addr) {
		t.Errorf("Address() = %q, want lower-case", addr)
	}

	if _, err := NewLocalSigner("not-a-key"); err == nil {
		t.Error("NewLocalSigner() with garbage key: expected error")
	}
}

func TestCodecSupportsNetwork(t *testing.T) {
	signer, _ := NewLocalSigner(testPrivateKey)
	codec := NewCodec(signer)

	tests := []struct {
		network string
		want    bool
	}{
		{"base", true},
		{"base-sepolia", true},
		{"polygon", true},
		{"avalanche", true},
		{"ton", false},
		{"tron", false},
		{"solana", false},
	}
	for _, tt := range tests {
		if got := codec.SupportsNetwork(tt.network); got != tt.want {
			t.Errorf("SupportsNetwork(%q) = %v, want %v", tt.network, got, tt.want)
		}
	}
}

func TestCodecValidateAddress(t *testing.T) {
	signer, _ := NewLocalSigner(testPrivateKey)
	codec := NewCodec(signer)

	tests := []struct {
		addr string
		want bool
	}{
		{"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", true},
		{"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", true},
		{"833589fcd6edb6e08f4c7c32d4f71b54bda02913", false},
		{"0x833589", false},
		{"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := codec.ValidateAddress(tt.addr); got != tt.want {
			t.Errorf("ValidateAddress(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestBuildPayload(t *testing.T) {
	signer, err := NewLocalSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewLocalSigner() error = %v", err)
	}
	codec := NewCodec(signer)
	req := testRequirement()

	before := time.Now().Unix()
	payment, err := codec.BuildPayload(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}

	if payment.X402Version != 1 || payment.Scheme != "exact" || payment.Network != "base" {
		t.Errorf("envelope = %+v, want version 1, exact, base", payment)
	}
	evm, ok := payment.Payload.(x402.EVMPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want EVMPayload", payment.Payload)
	}

	auth := evm.Authorization
	if auth.From != signer.Address() {
		t.Errorf("From = %q, want signer address %q", auth.From, signer.Address())
	}
	if auth.To != req.PayTo {
		t.Errorf("To = %q, want %q", auth.To, req.PayTo)
	}
	if auth.Value != req.MaxAmountRequired {
		t.Errorf("Value = %q, want %q", auth.Value, req.MaxAmountRequired)
	}
	if len(auth.Nonce) != 66 || !strings.HasPrefix(auth.Nonce, "0x") {
		t.Errorf("Nonce = %q, want 32-byte 0x-hex", auth.Nonce)
	}

	validAfter, _ := strconv.ParseInt(auth.ValidAfter, 10, 64)
	validBefore, _ := strconv.ParseInt(auth.ValidBefore, 10, 64)
	if validAfter > before {
		t.Errorf("ValidAfter = %d, want <= %d", validAfter, before)
	}
	if validBefore < before+int64(req.MaxTimeoutSeconds) {
		t.Errorf("ValidBefore = %d, want >= now+%d", validBefore, req.MaxTimeoutSeconds)
	}
}

func TestBuildPayloadSignatureRecovers(t *testing.T) {
	signer, err := NewLocalSigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewLocalSigner() error = %v", err)
	}
	codec := NewCodec(signer)
	req := testRequirement()

	payment, err := codec.BuildPayload(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}
	evm := payment.Payload.(x402.EVMPayload)
	auth := evm.Authorization

	config, _ := x402.GetChainConfig(req.Network)
	domain := x402.TypedDataDomain{
		Name:              config.DefaultAsset.Name,
		Version:           config.EIP3009Version,
		ChainID:           config.ChainID,
		VerifyingContract: req.Asset,
	}
	digest, err := hashTypedData(domain, transferWithAuthorizationTypes, "TransferWithAuthorization", map[string]interface{}{
		"from":        auth.From,
		"to":          auth.To,
		"value":       auth.Value,
		"validAfter":  auth.ValidAfter,
		"validBefore": auth.ValidBefore,
		"nonce":       auth.Nonce,
	})
	if err != nil {
		t.Fatalf("hashTypedData() error = %v", err)
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(evm.Signature, "0x"))
	if err != nil || len(signature) != 65 {
		t.Fatalf("signature = %q, want 65 bytes of hex", evm.Signature)
	}
	signature[64] -= 27

	pubkey, err := crypto.SigToPub(digest, signature)
	if err != nil {
		t.Fatalf("SigToPub() error = %v", err)
	}
	recovered := strings.ToLower(crypto.PubkeyToAddress(*pubkey).Hex())
	if recovered != signer.Address() {
		t.Errorf("recovered signer = %q, want %q", recovered, signer.Address())
	}
}

func TestBuildPayloadFreshNonce(t *testing.T) {
	signer, _ := NewLocalSigner(testPrivateKey)
	codec := NewCodec(signer)
	req := testRequirement()

	first, err := codec.BuildPayload(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}
	second, err := codec.BuildPayload(context.Background(), req)
	if err != nil {
		t.Fatalf("BuildPayload() error = %v", err)
	}

	a := first.Payload.(x402.EVMPayload).Authorization.Nonce
	b := second.Payload.(x402.EVMPayload).Authorization.Nonce
	if a == b {
		t.Error("consecutive payloads reused a nonce")
	}
}

func TestBuildPayloadErrors(t *testing.T) {
	signer, _ := NewLocalSigner(testPrivateKey)
	codec := NewCodec(signer)

	tests := []struct {
		name   string
		mutate func(r *x402.PaymentRequirement)
	}{
		{"unsupported network", func(r *x402.PaymentRequirement) { r.Network = "ton" }},
		{"unknown network", func(r *x402.PaymentRequirement) { r.Network = "dogecoin" }},
		{"bad payTo", func(r *x402.PaymentRequirement) { r.PayTo = "not-an-address" }},
		{"bad asset", func(r *x402.PaymentRequirement) { r.Asset = "0x123" }},
		{"bad amount", func(r *x402.PaymentRequirement) { r.MaxAmountRequired = "ten" }},
		{"negative amount", func(r *x402.PaymentRequirement) { r.MaxAmountRequired = "-5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequirement()
			tt.mutate(&req)
			_, err := codec.BuildPayload(context.Background(), req)
			if err == nil {
				t.Fatal("BuildPayload() expected error")
			}
			var paymentErr *x402.PaymentError
			if !errors.As(err, &paymentErr) {
				t.Errorf("error type = %T, want *PaymentError", err)
			}
		})
	}
}
