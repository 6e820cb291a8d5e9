package http

import (
	"net/http"

	"github.com/x402-labs/x402-go"
	"github.com/x402-labs/x402-go/logger"
)

// Client is an HTTP client that pays for 402-gated resources automatically.
// It wraps a standard http.Client with an X402Transport.
type Client struct {
	*http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// NewClient creates an x402-enabled HTTP client.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		Client: &http.Client{},
	}
	if client.Transport == nil {
		client.Transport = http.DefaultTransport
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) error {
		c.Client = httpClient
		if c.Transport == nil {
			c.Transport = http.DefaultTransport
		}
		return nil
	}
}

// WithCodec registers a scheme codec with the client's transport.
func WithCodec(codec x402.SchemeCodec) ClientOption {
	return func(c *Client) error {
		transport := getOrCreateTransport(c)
		transport.Registry.Register(codec)
		return nil
	}
}

// WithSelector sets selection filters for payment options.
func WithSelector(selector x402.Selector) ClientOption {
	return func(c *Client) error {
		getOrCreateTransport(c).Selector = selector
		return nil
	}
}

// WithLogger sets the transport logger.
func WithLogger(log logger.Logger) ClientOption {
	return func(c *Client) error {
		getOrCreateTransport(c).Logger = log
		return nil
	}
}

// WithPaymentCallbacks sets the payment lifecycle callbacks. Pass nil for any
// callback you don't want to set.
func WithPaymentCallbacks(onAttempt, onSuccess, onFailure x402.PaymentCallback) ClientOption {
	return func(c *Client) error {
		transport := getOrCreateTransport(c)
		if onAttempt != nil {
			transport.OnPaymentAttempt = onAttempt
		}
		if onSuccess != nil {
			transport.OnPaymentSuccess = onSuccess
		}
		if onFailure != nil {
			transport.OnPaymentFailure = onFailure
		}
		return nil
	}
}

// getOrCreateTransport returns the client's X402Transport, wrapping the
// existing transport if needed.
func getOrCreateTransport(c *Client) *X402Transport {
	transport, ok := c.Transport.(*X402Transport)
	if !ok {
		transport = &X402Transport{
			Base:     c.Transport,
			Registry: x402.NewRegistry(),
		}
		c.Transport = transport
	}
	if transport.Registry == nil {
		transport.Registry = x402.NewRegistry()
	}
	return transport
}
