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


package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderType selects the embedding backend.
type ProviderType string

const (
	// ProviderOpenAI talks to OpenAI or any OpenAI-compatible server (Ollama, vLLM, LocalAI).
	ProviderOpenAI ProviderType = "openai"
	// ProviderAzure talks to an Azure OpenAI resource. EmbeddingModel names the deployment.
	ProviderAzure ProviderType = "azure"
	// ProviderGemini talks to the Google Generative Language API.
	ProviderGemini ProviderType = "gemini"
)

// Config holds configuration for the embedding service.
type Config struct {
	// Provider selects the backend. Default: ProviderOpenAI
	Provider ProviderType

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1", "https://myresource.openai.azure.com"
	EmbeddingHost string

	// EmbeddingModel is the model identifier, or the deployment name on Azure.
	// Example: "embeddinggemma", "text-embedding-ada-002"
	EmbeddingModel string

	// APIKey authenticates against the service. Local servers accept any value.
	APIKey string

	// APIVersion is required by Azure OpenAI.
	// Example: "2023-05-15"
	APIVersion string

	// Dimensions requests a specific vector size from models that support it.
	// Zero keeps the model default.
	Dimensions int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding backend.
func WithProvider(p ProviderType) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the service API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAPIVersion sets the Azure OpenAI API version.
func WithAPIVersion(version string) ConfigOption {
	return func(c *Config) {
		c.APIVersion = version
	}
}

// WithDimensions sets the requested vector size.
func WithDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dim
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderOpenAI,
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderAzure),
//	    WithEmbeddingHost("https://myresource.openai.azure.com"),
//	    WithEmbeddingModel("text-embedding-ada-002"),
//	    WithAPIKey(key),
//	    WithAPIVersion("2023-05-15"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc). Azure hosts lose any
// trailing slash since the client appends the deployment path itself.
func (c *Config) Normalize() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	c.Provider = ProviderType(strings.ToLower(string(c.Provider)))

	switch c.Provider {
	case ProviderOpenAI:
		if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
			c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/") + "/v1"
		}
	case ProviderAzure:
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderAzure:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("ai config: unknown provider %q", c.Provider)
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.Provider != ProviderOpenAI && c.APIKey == "" {
		return fmt.Errorf("ai config: APIKey is required for provider %s", c.Provider)
	}
	if c.Provider == ProviderAzure && c.APIVersion == "" {
		return errors.New("ai config: APIVersion is required for provider azure")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions must not be negative")
	}
	return nil
}
