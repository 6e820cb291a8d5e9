package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/x402-labs/x402-go"
	"github.com/x402-labs/x402-go/facilitator"
	"github.com/x402-labs/x402-go/logger"
	"github.com/x402-labs/x402-go/retry"
)

// AuthorizationProvider returns an Authorization header value for facilitator
// requests. Useful for tokens that need periodic refresh.
type AuthorizationProvider func(ctx context.Context) (string, error)

// OnBeforeFunc runs before a verify or settle operation. Returning an error
// aborts the operation before any facilitator request is sent.
type OnBeforeFunc func(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) error

// OnAfterVerifyFunc runs after a verify operation completes, success or
// failure.
type OnAfterVerifyFunc func(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement, resp *x402.VerifyResponse, err error)

// OnAfterSettleFunc runs after a settle operation completes, success or
// failure.
type OnAfterSettleFunc func(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement, resp *x402.SettleResponse, err error)

// FacilitatorClient talks to an x402 facilitator service over HTTP. It
// implements facilitator.Facilitator.
type FacilitatorClient struct {
	// BaseURL is the facilitator endpoint, without a trailing slash.
	BaseURL string

	// Client is the underlying HTTP client. Defaults to http.DefaultClient.
	Client *http.Client

	// Timeouts bounds verify, settle, and other requests separately.
	// Zero values fall back to x402.DefaultTimeouts.
	Timeouts x402.TimeoutConfig

	// Authorization is a static Authorization header value, e.g.
	// "Bearer api-key".
	Authorization string

	// AuthorizationProvider supplies the Authorization header dynamically.
	// Takes precedence over Authorization when set.
	AuthorizationProvider AuthorizationProvider

	// VerifyRetry, when set, retries verify calls that fail with
	// x402.ErrFacilitatorUnavailable. Settle is never retried here: its
	// transport errors leave the on-chain outcome unknown, so the retry
	// decision belongs to the caller.
	VerifyRetry *retry.Policy

	// OnBeforeVerify, when set, runs before each verify. An error aborts
	// the call.
	OnBeforeVerify OnBeforeFunc

	// OnAfterVerify, when set, runs after each verify completes.
	OnAfterVerify OnAfterVerifyFunc

	// OnBeforeSettle, when set, runs before each settle. An error aborts
	// the call.
	OnBeforeSettle OnBeforeFunc

	// OnAfterSettle, when set, runs after each settle completes.
	OnAfterSettle OnAfterSettleFunc

	// Logger receives request-level diagnostics. Defaults to no-op.
	Logger logger.Logger
}

// facilitatorRequest is the body for /verify and /settle: the payment header
// travels still-encoded so the facilitator verifies exactly what the client
// sent.
type facilitatorRequest struct {
	X402Version         int                     `json:"x402Version"`
	PaymentHeader       string                  `json:"paymentHeader"`
	PaymentRequirements x402.PaymentRequirement `json:"paymentRequirements"`
}

// Verify checks a payment authorization with the facilitator.
func (c *FacilitatorClient) Verify(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) (*x402.VerifyResponse, error) {
	if c.OnBeforeVerify != nil {
		if err := c.OnBeforeVerify(ctx, paymentHeader, requirement); err != nil {
			return nil, err
		}
	}

	var last *x402.VerifyResponse
	call := func() (*x402.VerifyResponse, error) {
		body, err := c.post(ctx, "/verify", paymentHeader, requirement, c.verifyTimeout())
		if err != nil {
			return nil, err
		}

		var verifyResp x402.VerifyResponse
		if err := json.Unmarshal(body, &verifyResp); err != nil {
			return nil, fmt.Errorf("failed to decode verify response: %w", err)
		}
		last = &verifyResp
		if !verifyResp.IsValid {
			c.log().Warn("payment verification rejected", map[string]any{
				"reason":  verifyResp.InvalidReason,
				"network": requirement.Network,
			})
			return &verifyResp, &x402.FacilitatorError{
				Operation:  "verify",
				StatusCode: http.StatusOK,
				Reason:     verifyResp.InvalidReason,
			}
		}
		return &verifyResp, nil
	}

	var resp *x402.VerifyResponse
	var err error
	if c.VerifyRetry == nil {
		resp, err = call()
	} else {
		resp, err = retry.Do(ctx, *c.VerifyRetry, func(err error) bool {
			return errors.Is(err, x402.ErrFacilitatorUnavailable)
		}, call)
		if resp == nil {
			// A terminal rejection still carries the facilitator's answer.
			resp = last
		}
	}
	if c.OnAfterVerify != nil {
		c.OnAfterVerify(ctx, paymentHeader, requirement, resp, err)
	}
	return resp, err
}

// Settle executes a verified payment on chain.
func (c *FacilitatorClient) Settle(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) (*x402.SettleResponse, error) {
	if c.OnBeforeSettle != nil {
		if err := c.OnBeforeSettle(ctx, paymentHeader, requirement); err != nil {
			return nil, err
		}
	}

	resp, err := c.settle(ctx, paymentHeader, requirement)
	if c.OnAfterSettle != nil {
		c.OnAfterSettle(ctx, paymentHeader, requirement, resp, err)
	}
	return resp, err
}

func (c *FacilitatorClient) settle(ctx context.Context, paymentHeader string, requirement x402.PaymentRequirement) (*x402.SettleResponse, error) {
	body, err := c.post(ctx, "/settle", paymentHeader, requirement, c.settleTimeout())
	if err != nil {
		return nil, err
	}

	var settleResp x402.SettleResponse
	if err := json.Unmarshal(body, &settleResp); err != nil {
		return nil, fmt.Errorf("failed to decode settle response: %w", err)
	}
	if !settleResp.Success {
		c.log().Warn("payment settlement failed", map[string]any{
			"reason":  settleResp.ErrorReason,
			"network": requirement.Network,
		})
		return &settleResp, &x402.FacilitatorError{
			Operation:  "settle",
			StatusCode: http.StatusOK,
			Reason:     settleResp.ErrorReason,
		}
	}

	c.log().Info("payment settled", map[string]any{
		"transaction": settleResp.Transaction,
		"network":     settleResp.Network,
		"payer":       settleResp.Payer,
	})
	return &settleResp, nil
}

// Supported lists the scheme and network combinations the facilitator
// accepts.
func (c *FacilitatorClient) Supported(ctx context.Context) ([]facilitator.SupportedKind, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &x402.FacilitatorError{
			Operation:  "supported",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var supportedResp struct {
		Kinds []facilitator.SupportedKind `json:"kinds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&supportedResp); err != nil {
		return nil, fmt.Errorf("failed to decode supported response: %w", err)
	}
	return supportedResp.Kinds, nil
}

// EnrichRequirements merges facilitator-specific extra data from /supported
// into the given requirements, matching on scheme and network. Requirements
// the facilitator does not list pass through unchanged.
func (c *FacilitatorClient) EnrichRequirements(ctx context.Context, requirements []x402.PaymentRequirement) ([]x402.PaymentRequirement, error) {
	kinds, err := c.Supported(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]x402.PaymentRequirement, len(requirements))
	copy(enriched, requirements)
	for i := range enriched {
		for _, kind := range kinds {
			if kind.Scheme != enriched[i].Scheme || kind.Network != enriched[i].Network {
				continue
			}
			for key, value := range kind.Extra {
				if enriched[i].Extra == nil {
					enriched[i].Extra = make(map[string]interface{})
				}
				if _, exists := enriched[i].Extra[key]; !exists {
					enriched[i].Extra[key] = value
				}
			}
			break
		}
	}
	return enriched, nil
}

// post sends a facilitator request and returns the response body for a 200
// status. Transport failures map to ErrFacilitatorUnavailable; other statuses
// to a FacilitatorError.
func (c *FacilitatorClient) post(ctx context.Context, path, paymentHeader string, requirement x402.PaymentRequirement, timeout time.Duration) ([]byte, error) {
	data, err := json.Marshal(facilitatorRequest{
		X402Version:         x402.ProtocolVersion,
		PaymentHeader:       paymentHeader,
		PaymentRequirements: requirement,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", x402.ErrFacilitatorUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &x402.FacilitatorError{
			Operation:  path[1:],
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, nil
}

// authorize attaches the Authorization header when configured.
func (c *FacilitatorClient) authorize(ctx context.Context, req *http.Request) error {
	if c.AuthorizationProvider != nil {
		value, err := c.AuthorizationProvider(ctx)
		if err != nil {
			return fmt.Errorf("authorization provider: %w", err)
		}
		req.Header.Set("Authorization", value)
		return nil
	}
	if c.Authorization != "" {
		req.Header.Set("Authorization", c.Authorization)
	}
	return nil
}

func (c *FacilitatorClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *FacilitatorClient) log() logger.Logger {
	return logger.OrNoop(c.Logger)
}

func (c *FacilitatorClient) verifyTimeout() time.Duration {
	if c.Timeouts.VerifyTimeout > 0 {
		return c.Timeouts.VerifyTimeout
	}
	return x402.DefaultTimeouts.VerifyTimeout
}

func (c *FacilitatorClient) settleTimeout() time.Duration {
	if c.Timeouts.SettleTimeout > 0 {
		return c.Timeouts.SettleTimeout
	}
	return x402.DefaultTimeouts.SettleTimeout
}

func (c *FacilitatorClient) requestTimeout() time.Duration {
	if c.Timeouts.RequestTimeout > 0 {
		return c.Timeouts.RequestTimeout
	}
	return x402.DefaultTimeouts.RequestTimeout
}
