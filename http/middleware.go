package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/x402-labs/x402-go"
	"github.com/x402-labs/x402-go/encoding"
	"github.com/x402-labs/x402-go/facilitator"
	"github.com/x402-labs/x402-go/logger"
	"github.com/x402-labs/x402-go/validation"
)

// MiddlewareConfig configures the payment-gating middleware.
type MiddlewareConfig struct {
	// Facilitator verifies and settles payments. Required.
	Facilitator facilitator.Facilitator

	// Requirements are the payment options advertised on 402 responses. The
	// Resource field is filled per request. Required, non-empty.
	Requirements []x402.PaymentRequirement

	// VerifyOnly skips settlement: payments are verified but never executed
	// on chain. Useful for staging environments.
	VerifyOnly bool

	// Logger receives payment flow diagnostics. Defaults to no-op.
	Logger logger.Logger
}

// contextKey is unexported so outside packages cannot collide with it.
type contextKey struct{}

// paymentContextKey stores the verified payment info in the request context.
var paymentContextKey contextKey

// PaymentInfo is what a gated handler can learn about the payment that
// admitted the request.
type PaymentInfo struct {
	// Payment is the decoded payment envelope.
	Payment x402.PaymentPayload

	// Requirement is the advertised option the payment satisfied.
	Requirement x402.PaymentRequirement

	// Payer is the paying address reported by the facilitator.
	Payer string
}

// PaymentFromContext returns the verified payment info for a request that
// passed the middleware.
func PaymentFromContext(ctx context.Context) (*PaymentInfo, bool) {
	info, ok := ctx.Value(paymentContextKey).(*PaymentInfo)
	return info, ok
}

// NewMiddleware returns middleware that gates handlers behind payment.
// Requests without a valid X-Payment header get a 402 with the configured
// requirements; verified requests reach the handler, and settlement happens
// when the handler commits a success status.
func NewMiddleware(config MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if config.Facilitator == nil {
		return nil, errors.New("facilitator is required")
	}
	if len(config.Requirements) == 0 {
		return nil, errors.New("at least one payment requirement is required")
	}
	for _, req := range config.Requirements {
		if err := validation.ValidatePaymentRequirement(req); err != nil {
			return nil, err
		}
	}
	log := logger.OrNoop(config.Logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requirements := requirementsForRequest(config.Requirements, r)

			paymentHeader := r.Header.Get(HeaderPayment)
			if paymentHeader == "" {
				log.Info("no payment header", map[string]any{"path": r.URL.Path})
				writePaymentRequired(w, requirements, "X-Payment header is required")
				return
			}

			payment, err := encoding.DecodePayment(paymentHeader)
			if err != nil {
				log.Warn("malformed payment header", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				writePaymentRequired(w, requirements, "malformed payment header")
				return
			}

			requirement, err := x402.FindMatchingRequirement(payment, requirements)
			if err != nil {
				log.Warn("payment matches no advertised requirement", map[string]any{
					"scheme":  payment.Scheme,
					"network": payment.Network,
				})
				writePaymentRequired(w, requirements, "payment does not match any accepted requirement")
				return
			}
			if err := validation.ValidatePaymentPayload(payment, *requirement); err != nil {
				log.Warn("payment payload rejected", map[string]any{"error": err.Error()})
				writePaymentRequired(w, requirements, "invalid payment payload")
				return
			}

			verifyResp, err := config.Facilitator.Verify(r.Context(), paymentHeader, *requirement)
			if err != nil {
				var facErr *x402.FacilitatorError
				if errors.As(err, &facErr) && facErr.Reason != "" {
					log.Warn("payment rejected by facilitator", map[string]any{"reason": facErr.Reason})
					writePaymentRequired(w, requirements, facErr.Reason)
					return
				}
				log.Error("facilitator verify unavailable", map[string]any{"error": err.Error()})
				http.Error(w, "payment verification unavailable", http.StatusServiceUnavailable)
				return
			}

			log.Info("payment verified", map[string]any{
				"payer":   verifyResp.Payer,
				"network": requirement.Network,
			})

			info := &PaymentInfo{
				Payment:     payment,
				Requirement: *requirement,
				Payer:       verifyResp.Payer,
			}
			r = r.WithContext(context.WithValue(r.Context(), paymentContextKey, info))

			interceptor := &settlementInterceptor{
				w: w,
				settle: func() bool {
					if config.VerifyOnly {
						return true
					}
					settleResp, err := config.Facilitator.Settle(r.Context(), paymentHeader, *requirement)
					if err != nil {
						var facErr *x402.FacilitatorError
						if errors.As(err, &facErr) && facErr.Reason != "" {
							log.Warn("settlement rejected", map[string]any{"reason": facErr.Reason})
							writePaymentRequired(w, requirements, facErr.Reason)
						} else {
							log.Error("facilitator settle unavailable", map[string]any{"error": err.Error()})
							http.Error(w, "payment settlement unavailable", http.StatusServiceUnavailable)
						}
						return false
					}

					if err := writeSettlementHeader(w, *settleResp); err != nil {
						log.Warn("could not attach settlement header", map[string]any{"error": err.Error()})
					}
					return true
				},
				onSkip: func(status int) {
					log.Info("handler failed, settlement skipped", map[string]any{"status": status})
				},
			}
			next.ServeHTTP(interceptor, r)
		})
	}, nil
}

// requirementsForRequest fills per-request fields into the advertised
// requirements.
func requirementsForRequest(requirements []x402.PaymentRequirement, r *http.Request) []x402.PaymentRequirement {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	resourceURL := scheme + "://" + r.Host + r.RequestURI

	out := make([]x402.PaymentRequirement, len(requirements))
	copy(out, requirements)
	for i := range out {
		out[i].Resource = resourceURL
		if out[i].Description == "" {
			out[i].Description = "Payment required for " + r.URL.Path
		}
	}
	return out
}

// settlementInterceptor wraps the ResponseWriter to defer settlement until
// the handler commits a success status. Settlement must run before headers
// flush because the receipt travels in a response header.
type settlementInterceptor struct {
	w http.ResponseWriter
	// settle performs settlement and reports whether the response may
	// proceed. On failure it has already written an error response.
	settle    func() bool
	onSkip    func(statusCode int)
	committed bool
	hijacked  bool
}

func (i *settlementInterceptor) Header() http.Header {
	return i.w.Header()
}

func (i *settlementInterceptor) Write(b []byte) (int, error) {
	// Write without WriteHeader implies 200.
	if !i.committed {
		i.WriteHeader(http.StatusOK)
	}
	// After a failed settlement the error response is already written;
	// discard the handler's payload so the two don't interleave.
	if i.hijacked {
		return len(b), nil
	}
	return i.w.Write(b)
}

func (i *settlementInterceptor) WriteHeader(statusCode int) {
	if i.committed {
		return
	}
	i.committed = true

	// Handler errors pass through unsettled.
	if statusCode >= 400 {
		if i.onSkip != nil {
			i.onSkip(statusCode)
		}
		i.w.WriteHeader(statusCode)
		return
	}

	if !i.settle() {
		i.hijacked = true
		return
	}
	i.w.WriteHeader(statusCode)
}

// Flush implements http.Flusher for streaming handlers.
func (i *settlementInterceptor) Flush() {
	if flusher, ok := i.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker.
func (i *settlementInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := i.w.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, errors.New("hijacking not supported")
}

// Push implements http.Pusher.
func (i *settlementInterceptor) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := i.w.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}
