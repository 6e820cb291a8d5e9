package x402

import "math/big"

// Selector picks one acceptable payment requirement from a server-provided
// list. The scan honors server-declared order: the first entry with a
// registered codec that passes every configured filter wins.
type Selector struct {
	// Networks restricts selection to the listed network identifiers.
	// Empty means any network.
	Networks []string

	// Schemes restricts selection to the listed scheme identifiers.
	// Empty means any scheme.
	Schemes []string

	// MaxValue caps MaxAmountRequired in atomic units. Nil means no cap.
	MaxValue *big.Int
}

// Select returns the first requirement in accepts that has a registered
// codec and passes the selector's filters. It fails with a terminal
// SELECTION_FAILED PaymentError wrapping ErrNoMatchingRequirements when no
// entry qualifies; retrying cannot change that outcome.
func (s *Selector) Select(accepts []PaymentRequirement, registry *Registry) (*PaymentRequirement, error) {
	for i := range accepts {
		req := &accepts[i]
		if registry.ForRequirement(req) == nil {
			continue
		}
		if !s.networkAllowed(req.Network) || !s.schemeAllowed(req.Scheme) {
			continue
		}
		if s.MaxValue != nil {
			amount, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
			if !ok {
				continue
			}
			if amount.Cmp(s.MaxValue) > 0 {
				continue
			}
		}
		return req, nil
	}

	return nil, NewPaymentError(ErrCodeSelectionFailed, "no requirement qualifies for any registered codec", ErrNoMatchingRequirements).
		WithDetails("accepts", len(accepts))
}

func (s *Selector) networkAllowed(network string) bool {
	if len(s.Networks) == 0 {
		return true
	}
	for _, n := range s.Networks {
		if n == network {
			return true
		}
	}
	return false
}

func (s *Selector) schemeAllowed(scheme string) bool {
	if len(s.Schemes) == 0 {
		return true
	}
	for _, sc := range s.Schemes {
		if sc == scheme {
			return true
		}
	}
	return false
}
