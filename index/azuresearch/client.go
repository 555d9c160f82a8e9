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


package azuresearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/retry"
)

const (
	DefaultAPIVersion = "2024-07-01"
	DefaultKeyField   = "id"

	// MaxBatchSize is the service limit on documents per request.
	MaxBatchSize = 1000

	actionField   = "@search.action"
	mergeOrUpload = "mergeOrUpload"
	keyHeader     = "api-key"
	moduleName    = "docindex/azuresearch"
	moduleVersion = "v1.0.0"
)

var (
	ErrMissingURL   = errors.New("azure search url is required")
	ErrMissingIndex = errors.New("azure search index name is required")
	ErrMissingKey   = errors.New("azure search key is required")
)

// Client is an index.Index backed by Azure AI Search.
// It is safe for concurrent use.
type Client struct {
	pipeline  runtime.Pipeline
	endpoint  string
	keyField  string
	batchSize int
	logger    *slog.Logger
	closed    atomic.Bool

	transport policy.Transporter
	retry     policy.RetryOptions
}

var _ index.Index = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.transport = hc
		}
		return nil
	}
}

// WithKeyField names the index's key field. Default is "id".
func WithKeyField(field string) Option {
	return func(c *Client) error {
		if field != "" {
			c.keyField = field
		}
		return nil
	}
}

// WithBatchSize caps documents per request, up to MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 || n > MaxBatchSize {
			return fmt.Errorf("batch size must be between 1 and %d, got %d", MaxBatchSize, n)
		}
		c.batchSize = n
		return nil
	}
}

// WithRetryPolicy sets how throttled and failed requests are retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) error {
		if err := p.Validate(); err != nil {
			return err
		}
		c.retry = retry.AzureOptions(p)
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

// New creates a client for the named index. apiVersion may be empty.
func New(serviceURL, indexName, apiKey, apiVersion string, opts ...Option) (*Client, error) {
	switch {
	case serviceURL == "":
		return nil, ErrMissingURL
	case indexName == "":
		return nil, ErrMissingIndex
	case apiKey == "":
		return nil, ErrMissingKey
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	c := &Client{
		endpoint: fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s",
			strings.TrimRight(serviceURL, "/"), url.PathEscape(indexName), url.QueryEscape(apiVersion)),
		keyField:  DefaultKeyField,
		batchSize: MaxBatchSize,
		logger:    slog.Default(),
		transport: &http.Client{Timeout: time.Minute},
		retry:     retry.AzureOptions(retry.Policy{MaxAttempts: 3, MinWait: time.Second, MaxWait: 20 * time.Second}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "azuresearch")

	keyPolicy := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(apiKey), keyHeader,
		&runtime.KeyCredentialPolicyOptions{
			InsecureAllowCredentialWithHTTP: strings.HasPrefix(strings.ToLower(serviceURL), "http://"),
		})
	c.pipeline = runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{keyPolicy},
	}, &policy.ClientOptions{
		Retry:     c.retry,
		Transport: c.transport,
	})
	return c, nil
}

// Upload merges-or-uploads records in batches. Documents rejected
// individually are collected into a single *index.UploadError.
func (c *Client) Upload(ctx context.Context, records []core.ChunkRecord) error {
	if c.closed.Load() {
		return index.ErrClosed
	}

	rejected := &index.UploadError{Total: len(records), Failed: make(map[string]string)}
	for start := 0; start < len(records); start += c.batchSize {
		end := min(start+c.batchSize, len(records))
		failed, err := c.uploadBatch(ctx, records[start:end])
		if err != nil {
			return err
		}
		for k, v := range failed {
			rejected.Failed[k] = v
		}
	}

	if len(rejected.Failed) > 0 {
		return rejected
	}
	c.logger.Debug("uploaded documents", "count", len(records))
	return nil
}

func (c *Client) document(r core.ChunkRecord) map[string]any {
	return map[string]any{
		actionField:    mergeOrUpload,
		c.keyField:     r.Key(),
		"file_name":    r.FileName,
		"last_updated": r.LastUpdated,
		"chunk_id":     r.ChunkID,
		"chunk":        r.Chunk,
		"vector":       r.Vector,
	}
}

type indexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
	StatusCode   int    `json:"statusCode"`
}

func (c *Client) uploadBatch(ctx context.Context, batch []core.ChunkRecord) (map[string]string, error) {
	docs := make([]map[string]any, len(batch))
	for i, r := range batch {
		docs[i] = c.document(r)
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, c.endpoint)
	if err != nil {
		return nil, core.Permanent(err)
	}
	if err := runtime.MarshalAsJSON(req, map[string]any{"value": docs}); err != nil {
		return nil, core.Permanent(fmt.Errorf("encode documents: %w", err))
	}

	resp, err := c.pipeline.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.Transient(err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusMultiStatus) {
		return nil, core.ClassifyStatus(resp.StatusCode, runtime.NewResponseError(resp))
	}

	var result struct {
		Value []indexResult `json:"value"`
	}
	if err := runtime.UnmarshalAsJSON(resp, &result); err != nil {
		return nil, core.Transient(fmt.Errorf("decode index response: %w", err))
	}

	failed := make(map[string]string)
	for _, r := range result.Value {
		if !r.Status {
			failed[r.Key] = fmt.Sprintf("%d %s", r.StatusCode, r.ErrorMessage)
		}
	}
	return failed, nil
}

// Close marks the client closed. Later uploads fail with index.ErrClosed.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}
