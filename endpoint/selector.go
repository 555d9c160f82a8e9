// Package endpoint spreads extraction calls across a pool of interchangeable
// backend endpoints.
package endpoint

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/poiesic/docindex/core"
)

var (
	// ErrEmptyPool is returned when no endpoints are configured.
	ErrEmptyPool = errors.New("endpoint pool is empty")

	// ErrInvalidEndpoint is returned for a pool entry without an address.
	ErrInvalidEndpoint = errors.New("endpoint address is required")
)

// Selector picks an endpoint uniformly at random on every call. It holds no
// state beyond the pool and is safe for concurrent use.
type Selector struct {
	pool []core.EndpointCredential
	intN func(n int) int
}

// Option configures a Selector.
type Option func(*Selector)

// WithIntN replaces the random source. intN must return a value in [0, n)
// and be safe for concurrent use.
func WithIntN(intN func(n int) int) Option {
	return func(s *Selector) {
		if intN != nil {
			s.intN = intN
		}
	}
}

// NewSelector validates the pool and returns a Selector over a private copy.
func NewSelector(pool []core.EndpointCredential, opts ...Option) (*Selector, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	for i, c := range pool {
		if c.Endpoint == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrInvalidEndpoint, i)
		}
	}

	s := &Selector{
		pool: slices.Clone(pool),
		intN: rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Select returns one endpoint from the pool.
func (s *Selector) Select() core.EndpointCredential {
	if len(s.pool) == 1 {
		return s.pool[0]
	}
	return s.pool[s.intN(len(s.pool))]
}

// Len returns the pool size.
func (s *Selector) Len() int {
	return len(s.pool)
}
