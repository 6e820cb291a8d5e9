package x402

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorDefinitions(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"NoMatchingRequirements", ErrNoMatchingRequirements, "x402: no matching payment requirements"},
		{"MalformedHeader", ErrMalformedHeader, "x402: malformed payment header"},
		{"UnsupportedVersion", ErrUnsupportedVersion, "x402: unsupported protocol version"},
		{"UnsupportedScheme", ErrUnsupportedScheme, "x402: unsupported payment scheme"},
		{"UnsupportedNetwork", ErrUnsupportedNetwork, "x402: unsupported network for scheme"},
		{"InvalidAddress", ErrInvalidAddress, "x402: invalid address"},
		{"InvalidAmount", ErrInvalidAmount, "x402: invalid amount"},
		{"AmountPrecision", ErrAmountPrecision, "x402: amount not representable at asset precision"},
		{"SigningFailed", ErrSigningFailed, "x402: payment signing failed"},
		{"InvalidRequirements", ErrInvalidRequirements, "x402: invalid payment requirements"},
		{"FacilitatorUnavailable", ErrFacilitatorUnavailable, "x402: facilitator service unavailable"},
		{"VerificationFailed", ErrVerificationFailed, "x402: payment verification failed"},
		{"SettlementFailed", ErrSettlementFailed, "x402: payment settlement failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestPaymentErrorWrapping(t *testing.T) {
	inner := errors.New("key too short")
	err := NewPaymentError(ErrCodeSigningFailed, "failed to sign payment", ErrSigningFailed).
		WithDetails("network", "base").
		WithDetails("cause", inner.Error())

	if !errors.Is(err, ErrSigningFailed) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if errors.Is(err, ErrInvalidAmount) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
	if err.Code != ErrCodeSigningFailed {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Details["network"] != "base" {
		t.Errorf("Details[network] = %v", err.Details["network"])
	}
	if !strings.Contains(err.Error(), "failed to sign payment") {
		t.Errorf("Error() = %q, want the message included", err.Error())
	}
	if !strings.Contains(err.Error(), ErrSigningFailed.Error()) {
		t.Errorf("Error() = %q, want the cause included", err.Error())
	}

	bare := NewPaymentError(ErrCodeSelectionFailed, "nothing matched", nil)
	if bare.Error() != "nothing matched" {
		t.Errorf("Error() without cause = %q", bare.Error())
	}
	if bare.Unwrap() != nil {
		t.Errorf("Unwrap() without cause = %v", bare.Unwrap())
	}
}

func TestFacilitatorErrorUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		err      *FacilitatorError
		sentinel error
		contains string
	}{
		{
			name:     "verify rejection",
			err:      &FacilitatorError{Operation: "verify", StatusCode: 200, Reason: ReasonInvalidSignature},
			sentinel: ErrVerificationFailed,
			contains: ReasonInvalidSignature,
		},
		{
			name:     "settle rejection",
			err:      &FacilitatorError{Operation: "settle", StatusCode: 200, Reason: ReasonNonceAlreadyUsed},
			sentinel: ErrSettlementFailed,
			contains: ReasonNonceAlreadyUsed,
		},
		{
			name:     "verify server error",
			err:      &FacilitatorError{Operation: "verify", StatusCode: 500, Body: "boom"},
			sentinel: ErrVerificationFailed,
			contains: "500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want %q included", tt.err.Error(), tt.contains)
			}
		})
	}
}
