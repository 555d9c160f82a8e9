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


package embedding

import (
	"context"
	"log/slog"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/retry"
)

// Client wraps an ai.Embedder with normalization and bounded retry.
// It is safe for concurrent use when the wrapped embedder is.
type Client struct {
	embedder        ai.Embedder
	retrier         *retry.Retrier
	normalizeVector bool
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithPolicy replaces the default retry policy (6 attempts, 1s to 20s waits).
func WithPolicy(policy retry.Policy) Option {
	return func(c *Client) error {
		r, err := retry.New(policy, retry.WithLogger(c.logger))
		if err != nil {
			return err
		}
		c.retrier = r
		return nil
	}
}

// WithRetrier uses a preconfigured Retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Client) error {
		if r == nil {
			return retry.ErrInvalidMaxAttempts
		}
		c.retrier = r
		return nil
	}
}

// WithVectorNormalization scales every returned vector to unit length.
func WithVectorNormalization(enabled bool) Option {
	return func(c *Client) error {
		c.normalizeVector = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates an embedding client.
func NewClient(embedder ai.Embedder, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	c := &Client{
		embedder: embedder,
		logger:   slog.Default().With("component", "embedding-client"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.retrier == nil {
		r, err := retry.New(retry.DefaultPolicy(), retry.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.retrier = r
	}
	return c, nil
}

// Embed normalizes text and embeds it, retrying transient failures.
// On failure the returned error is an *Error.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	input := Normalize(text)

	var vector []float32
	attempts, err := c.retrier.Do(ctx, func(ctx context.Context) error {
		v, err := c.embedder.EmbedText(ctx, input)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return core.Transient(ErrEmptyVector)
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, &Error{
			Attempts:  attempts,
			Permanent: core.IsPermanent(err),
			Err:       err,
		}
	}

	if c.normalizeVector {
		vector = NormalizeVector(vector)
	}
	return vector, nil
}
