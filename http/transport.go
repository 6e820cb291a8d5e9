// Package http provides the client-side payment transport and server-side
// payment-gating middleware for the x402 protocol.
package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/x402-labs/x402-go"
	"github.com/x402-labs/x402-go/encoding"
	"github.com/x402-labs/x402-go/logger"
)

// Header names used by the protocol.
const (
	HeaderPayment         = "X-Payment"
	HeaderPaymentResponse = "X-Payment-Response"
)

// X402Transport is an http.RoundTripper that handles 402 Payment Required
// responses: it selects one of the server's payment options, builds and signs
// a payment, and retries the request exactly once with the X-Payment header
// attached. A second 402 is returned to the caller as-is.
//
// All retry state is local to each RoundTrip call, so the transport is safe
// for concurrent use.
type X402Transport struct {
	// Base is the underlying RoundTripper. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Registry holds the scheme codecs available for building payments.
	Registry *x402.Registry

	// Selector filters the server's payment options. The zero value accepts
	// the first option with a registered codec.
	Selector x402.Selector

	// Logger receives payment flow diagnostics. Defaults to no-op.
	Logger logger.Logger

	// OnPaymentAttempt is called when a payment attempt is made.
	OnPaymentAttempt x402.PaymentCallback

	// OnPaymentSuccess is called when a settlement header reports success.
	OnPaymentSuccess x402.PaymentCallback

	// OnPaymentFailure is called when negotiating, building, or sending a
	// payment fails. The original 402 is still surfaced for negotiation
	// failures.
	OnPaymentFailure x402.PaymentCallback
}

// RoundTrip implements http.RoundTripper.
func (t *X402Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	log := logger.OrNoop(t.Logger)

	// Buffer the body up front so the request can be replayed after a 402.
	if req.Body != nil && req.GetBody == nil {
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.ContentLength = int64(len(body))
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	correlationID := uuid.NewString()
	startTime := time.Now()

	// Read the 402 body. If anything about the negotiation fails from here
	// on, the caller gets this original response back, body intact, and the
	// failure callback fires with the reason.
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if readErr != nil {
		return resp, nil
	}

	var requirements x402.PaymentRequirementsResponse
	if err := json.Unmarshal(body, &requirements); err != nil || len(requirements.Accepts) == 0 {
		t.fail(correlationID, req.URL.String(), startTime,
			x402.NewPaymentError(x402.ErrCodeInvalidRequirements, "could not parse payment requirements", err))
		return resp, nil
	}
	if requirements.X402Version != x402.ProtocolVersion {
		t.fail(correlationID, req.URL.String(), startTime,
			fmt.Errorf("%w: version %d", x402.ErrUnsupportedVersion, requirements.X402Version))
		return resp, nil
	}

	selected, err := t.Selector.Select(requirements.Accepts, t.Registry)
	if err != nil {
		t.fail(correlationID, req.URL.String(), startTime, err)
		return resp, nil
	}
	resp.Body.Close()

	codec := t.Registry.ForRequirement(selected)

	t.emit(t.OnPaymentAttempt, x402.PaymentEvent{
		Type:          x402.PaymentEventAttempt,
		Timestamp:     startTime,
		CorrelationID: correlationID,
		URL:           req.URL.String(),
		Network:       selected.Network,
		Scheme:        selected.Scheme,
		Amount:        selected.MaxAmountRequired,
		Asset:         selected.Asset,
		Recipient:     selected.PayTo,
	})
	log.Info("building payment", map[string]any{
		"correlation_id": correlationID,
		"network":        selected.Network,
		"scheme":         selected.Scheme,
		"amount":         selected.MaxAmountRequired,
	})

	payment, err := codec.BuildPayload(req.Context(), *selected)
	if err != nil {
		t.fail(correlationID, req.URL.String(), startTime, err)
		return nil, err
	}

	paymentHeader, err := encoding.EncodePayment(*payment)
	if err != nil {
		wrapped := x402.NewPaymentError(x402.ErrCodeEncodingFailed, "failed to encode payment header", err)
		t.fail(correlationID, req.URL.String(), startTime, wrapped)
		return nil, wrapped
	}

	retryReq := req.Clone(req.Context())
	if req.GetBody != nil {
		retryBody, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retryReq.Body = retryBody
	}
	retryReq.Header.Set(HeaderPayment, paymentHeader)

	retryResp, err := base.RoundTrip(retryReq)
	duration := time.Since(startTime)
	if err != nil {
		t.fail(correlationID, req.URL.String(), startTime, err)
		return nil, err
	}

	if settlement, err := encoding.DecodeSettlement(retryResp.Header.Get(HeaderPaymentResponse)); err == nil && settlement.Success {
		log.Info("payment settled", map[string]any{
			"correlation_id": correlationID,
			"transaction":    settlement.Transaction,
			"payer":          settlement.Payer,
		})
		t.emit(t.OnPaymentSuccess, x402.PaymentEvent{
			Type:          x402.PaymentEventSuccess,
			Timestamp:     time.Now(),
			CorrelationID: correlationID,
			URL:           req.URL.String(),
			Network:       selected.Network,
			Scheme:        selected.Scheme,
			Amount:        selected.MaxAmountRequired,
			Asset:         selected.Asset,
			Recipient:     selected.PayTo,
			Payer:         settlement.Payer,
			Transaction:   settlement.Transaction,
			Duration:      duration,
		})
	}

	return retryResp, nil
}

// GetSettlement extracts settlement information from a response, or nil when
// the header is absent or unparsable.
func GetSettlement(resp *http.Response) *x402.SettleResponse {
	header := resp.Header.Get(HeaderPaymentResponse)
	if header == "" {
		return nil
	}
	settlement, err := encoding.DecodeSettlement(header)
	if err != nil {
		return nil
	}
	return &settlement
}

func (t *X402Transport) emit(callback x402.PaymentCallback, event x402.PaymentEvent) {
	if callback != nil {
		callback(event)
	}
}

func (t *X402Transport) fail(correlationID, url string, startTime time.Time, err error) {
	logger.OrNoop(t.Logger).Error("payment failed", map[string]any{
		"correlation_id": correlationID,
		"url":            url,
		"error":          err.Error(),
	})
	t.emit(t.OnPaymentFailure, x402.PaymentEvent{
		Type:          x402.PaymentEventFailure,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		URL:           url,
		Error:         err,
		Duration:      time.Since(startTime),
	})
}
