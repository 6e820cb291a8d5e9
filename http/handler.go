package http

import (
	"encoding/json"
	"net/http"

	"github.com/x402-labs/x402-go"
	"github.com/x402-labs/x402-go/encoding"
)

// writePaymentRequired sends a 402 response advertising the given payment
// options.
func writePaymentRequired(w http.ResponseWriter, requirements []x402.PaymentRequirement, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(x402.PaymentRequirementsResponse{
		X402Version: x402.ProtocolVersion,
		Error:       message,
		Accepts:     requirements,
	})
}

// writeSettlementHeader attaches the settlement receipt to the response and
// exposes it to browser clients.
func writeSettlementHeader(w http.ResponseWriter, settlement x402.SettleResponse) error {
	encoded, err := encoding.EncodeSettlement(settlement)
	if err != nil {
		return err
	}
	w.Header().Set(HeaderPaymentResponse, encoded)
	w.Header().Add("Access-Control-Expose-Headers", HeaderPaymentResponse)
	return nil
}
