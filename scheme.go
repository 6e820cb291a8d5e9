package x402

import (
	"context"
	"sync"
)

// SchemeCodec builds and signs chain-specific payment authorizations for one
// chain family. The set of codecs is closed: EVM, TON, and TRON variants all
// implement this identical capability set, and new chain families are added
// by adding a variant, not by special-casing call sites.
type SchemeCodec interface {
	// Scheme returns the payment scheme identifier this codec implements
	// (currently always "exact").
	Scheme() string

	// SupportsNetwork reports whether the codec can build payloads for the
	// given network identifier.
	SupportsNetwork(network string) bool

	// ValidateAddress reports whether addr is a valid chain-native address.
	ValidateAddress(addr string) bool

	// DefaultAsset returns the network's default stablecoin.
	DefaultAsset(network string) (TokenConfig, error)

	// BuildPayload constructs and signs a payment authorization satisfying
	// the requirement. The authorized value always equals MaxAmountRequired.
	BuildPayload(ctx context.Context, req PaymentRequirement) (*PaymentPayload, error)
}

// Registry holds the registered scheme codecs. Registration order is
// preserved but selection order is dictated by the server's accepts list,
// not by the registry.
type Registry struct {
	mu     sync.RWMutex
	codecs []SchemeCodec
}

// NewRegistry creates an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a codec to the registry and returns the registry for
// chaining.
func (r *Registry) Register(codec SchemeCodec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs = append(r.codecs, codec)
	return r
}

// ForRequirement returns the first registered codec that implements the
// requirement's scheme and supports its network, or nil.
func (r *Registry) ForRequirement(req *PaymentRequirement) SchemeCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, codec := range r.codecs {
		if codec.Scheme() == req.Scheme && codec.SupportsNetwork(req.Network) {
			return codec
		}
	}
	return nil
}

// Codecs returns a snapshot of the registered codecs.
func (r *Registry) Codecs() []SchemeCodec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SchemeCodec, len(r.codecs))
	copy(out, r.codecs)
	return out
}
