// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/poiesic/docindex/core"
)

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// MinWait is the lower bound of every wait and the base of the exponential window.
	MinWait time.Duration
	// MaxWait caps the exponential window.
	MaxWait time.Duration
}

// DefaultPolicy returns 6 attempts with waits between 1s and 20s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		MinWait:     time.Second,
		MaxWait:     20 * time.Second,
	}
}

// Validate checks the policy bounds.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.MinWait < 0 || p.MaxWait < p.MinWait {
		return ErrInvalidWait
	}
	return nil
}

// Window returns the upper bound of the wait after the given failed attempt
// (1-based): MinWait*2^(attempt-1), clamped to [MinWait, MaxWait].
func (p Policy) Window(attempt int) time.Duration {
	high := p.MinWait
	for i := 1; i < attempt && high < p.MaxWait; i++ {
		high *= 2
	}
	if high > p.MaxWait {
		high = p.MaxWait
	}
	if high < p.MinWait {
		high = p.MinWait
	}
	return high
}

// Delay draws the wait after the given failed attempt using rnd, which must
// return a value in [0, n).
func (p Policy) Delay(attempt int, rnd func(n int64) int64) time.Duration {
	high := p.Window(attempt)
	span := int64(high - p.MinWait)
	if span <= 0 {
		return p.MinWait
	}
	return p.MinWait + time.Duration(rnd(span+1))
}

// Retrier executes operations under a Policy. It is safe for concurrent use.
type Retrier struct {
	policy Policy
	rnd    func(n int64) int64
	logger *slog.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithRand replaces the jitter source. rnd must return a value in [0, n)
// and be safe for concurrent use.
func WithRand(rnd func(n int64) int64) Option {
	return func(r *Retrier) {
		if rnd != nil {
			r.rnd = rnd
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a Retrier after validating the policy.
func New(policy Policy, opts ...Option) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	r := &Retrier{
		policy: policy,
		rnd:    rand.Int64N,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the policy the Retrier was created with.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs operation until it succeeds, fails with a permanent error, or the
// attempt cap is reached. It returns the number of attempts made and the
// error from the last attempt, or the context error if ctx ends first.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) (int, error) {
	var lastErr error
	attempt := 0
	for attempt < r.policy.MaxAttempts {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		attempt++
		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		if core.IsPermanent(lastErr) {
			r.logger.Debug("operation failed permanently", "attempt", attempt, "err", lastErr)
			return attempt, lastErr
		}

		// Don't sleep after the last attempt
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt, r.rnd)
		r.logger.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", r.policy.MaxAttempts, "delay", delay, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return attempt, lastErr
}
