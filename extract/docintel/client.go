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


package docintel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/retry"
	"golang.org/x/time/rate"
)

const (
	DefaultModel             = "prebuilt-layout"
	DefaultAPIVersion        = "2024-11-30"
	DefaultRequestsPerSecond = 1.0
	DefaultMaxAttempts       = 3
	DefaultPollInterval      = time.Second
	DefaultPollTimeout       = 10 * time.Minute

	keyHeader     = "Ocp-Apim-Subscription-Key"
	moduleName    = "docindex/docintel"
	moduleVersion = "v1.0.0"
)

// Client is an extract.Extractor backed by the Document Intelligence REST API.
// It is safe for concurrent use.
type Client struct {
	transport    policy.Transporter
	model        string
	apiVersion   string
	rps          float64
	retry        policy.RetryOptions
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	pipelines map[core.EndpointCredential]runtime.Pipeline
}

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

// WithModel sets the analysis model. Default is prebuilt-layout.
func WithModel(model string) Option {
	return func(c *Client) error {
		if model != "" {
			c.model = model
		}
		return nil
	}
}

// WithAPIVersion sets the api-version query parameter.
func WithAPIVersion(version string) Option {
	return func(c *Client) error {
		if version != "" {
			c.apiVersion = version
		}
		return nil
	}
}

// WithRequestsPerSecond limits analyze submissions per endpoint.
// Zero or negative disables the limit.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) error {
		c.rps = rps
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

// WithPollInterval sets the wait between status checks when the service does
// not send Retry-After. The poller rejects intervals under one second outside
// of tests.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.pollInterval = d
		}
		return nil
	}
}

// WithPollTimeout bounds how long one analysis may run.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.pollTimeout = d
		}
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

// New creates a Document Intelligence client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		transport:    &http.Client{Timeout: 2 * time.Minute},
		model:        DefaultModel,
		apiVersion:   DefaultAPIVersion,
		rps:          DefaultRequestsPerSecond,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		logger:       slog.Default(),
		limiters:     make(map[string]*rate.Limiter),
		pipelines:    make(map[core.EndpointCredential]runtime.Pipeline),
		retry: retry.AzureOptions(retry.Policy{
			MaxAttempts: DefaultMaxAttempts,
			MinWait:     time.Second,
			MaxWait:     20 * time.Second,
		}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "docintel")
	return c, nil
}

// Extract submits the file to cred's endpoint and returns the analyzed
// content as markdown.
func (c *Client) Extract(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
	if cred.Endpoint == "" || cred.Key == "" {
		return "", core.Permanent(ErrInvalidCredential)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.Permanent(fmt.Errorf("read %s: %w", filepath.Base(path), err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	pl := c.pipeline(cred)
	resp, err := c.submit(ctx, pl, cred, data)
	if err != nil {
		return "", classify(ctx, err)
	}
	c.logger.Debug("analysis submitted", "file", filepath.Base(path), "endpoint", cred.Endpoint)

	poller, err := runtime.NewPoller(resp, pl, &runtime.NewPollerOptions[analyzeOperation]{})
	if err != nil {
		return "", core.Permanent(fmt.Errorf("%w: %w", ErrMissingOperation, err))
	}
	op, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: c.pollInterval})
	if err != nil {
		return "", classify(ctx, err)
	}
	if op.AnalyzeResult == nil {
		return "", nil
	}
	return op.AnalyzeResult.Content, nil
}

// pipeline returns the cached request pipeline for cred. Each credential gets
// its own key policy; submissions share the endpoint's rate limiter.
func (c *Client) pipeline(cred core.EndpointCredential) runtime.Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pl, ok := c.pipelines[cred]; ok {
		return pl
	}
	keyPolicy := runtime.NewKeyCredentialPolicy(azcore.NewKeyCredential(cred.Key), keyHeader,
		&runtime.KeyCredentialPolicyOptions{
			InsecureAllowCredentialWithHTTP: strings.HasPrefix(strings.ToLower(cred.Endpoint), "http://"),
		})
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{&throttlePolicy{limiter: c.limiter(cred.Endpoint)}, keyPolicy},
	}, &policy.ClientOptions{
		Retry:     c.retry,
		Transport: c.transport,
	})
	c.pipelines[cred] = pl
	return pl
}

// limiter returns the endpoint's rate limiter. c.mu must be held.
func (c *Client) limiter(endpoint string) *rate.Limiter {
	l, ok := c.limiters[endpoint]
	if !ok {
		limit := rate.Inf
		if c.rps > 0 {
			limit = rate.Limit(c.rps)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[endpoint] = l
	}
	return l
}

// throttlePolicy waits on the endpoint's limiter before every analyze
// submission, retries included. Status polls are not throttled.
type throttlePolicy struct {
	limiter *rate.Limiter
}

func (p *throttlePolicy) Do(req *policy.Request) (*http.Response, error) {
	if req.Raw().Method == http.MethodPost {
		if err := p.limiter.Wait(req.Raw().Context()); err != nil {
			return nil, err
		}
	}
	return req.Next()
}

func (c *Client) analyzeURL(endpoint string) string {
	q := url.Values{}
	q.Set("api-version", c.apiVersion)
	q.Set("outputContentFormat", "markdown")
	return fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?%s",
		strings.TrimRight(endpoint, "/"), url.PathEscape(c.model), q.Encode())
}

func (c *Client) submit(ctx context.Context, pl runtime.Pipeline, cred core.EndpointCredential, data []byte) (*http.Response, error) {
	req, err := runtime.NewRequest(ctx, http.MethodPost, c.analyzeURL(cred.Endpoint))
	if err != nil {
		return nil, core.Permanent(err)
	}
	if err := req.SetBody(streaming.NopCloser(bytes.NewReader(data)), "application/octet-stream"); err != nil {
		return nil, core.Permanent(err)
	}

	resp, err := pl.Do(req)
	if err != nil {
		return nil, err
	}
	if !runtime.HasStatusCode(resp, http.StatusAccepted) {
		return nil, runtime.NewResponseError(resp)
	}
	if resp.Header.Get("Operation-Location") == "" {
		return nil, core.Permanent(ErrMissingOperation)
	}
	return resp, nil
}

type analyzeOperation struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		Content string `json:"content"`
	} `json:"analyzeResult"`
}

// classify tags err with its error kind. A response error carrying a success
// status is a failed analysis reported by the operation body.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if core.IsPermanent(err) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode < http.StatusMultipleChoices {
			return core.Permanent(fmt.Errorf("%w: %w", ErrAnalysisFailed, err))
		}
		return core.ClassifyStatus(respErr.StatusCode, err)
	}
	return core.Transient(err)
}
