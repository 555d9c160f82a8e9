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


package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/retry"
	"gopkg.in/yaml.v3"
)

const (
	ExtractorDocIntel = "docintel"
	ExtractorLocal    = "local"

	BackendAzureSearch = "azuresearch"
	BackendBadger      = "badger"
	BackendPgvector    = "pgvector"
	BackendNone        = "none"
)

var (
	ErrNoEndpoints          = errors.New("doc_intel_endpoints_keys must list at least one endpoint")
	ErrUnknownExtractor     = errors.New("unknown extractor")
	ErrUnknownIndexBackend  = errors.New("unknown index backend")
	ErrMissingSetting       = errors.New("missing required setting")
	ErrUnsupportedExtension = errors.New("config file must be .yaml, .yml or .toml")
)

// EndpointKey is one entry of the extraction endpoint pool.
type EndpointKey struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Key      string `yaml:"key" toml:"key"`
}

// Config is the complete configuration of an indexing run.
type Config struct {
	DocIntelEndpointsKeys []EndpointKey `yaml:"doc_intel_endpoints_keys" toml:"doc_intel_endpoints_keys"`
	ChunkSize             int           `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap          int           `yaml:"chunk_overlap" toml:"chunk_overlap"`

	OpenAIAPIBase       string `yaml:"openai_api_base" toml:"openai_api_base"`
	OpenAIAPIKey        string `yaml:"openai_api_key" toml:"openai_api_key"`
	OpenAIAPIVersion    string `yaml:"openai_api_version" toml:"openai_api_version"`
	EmbeddingsModelName string `yaml:"embeddings_model_name" toml:"embeddings_model_name"`

	AzureSearchURL        string `yaml:"azure_search_url" toml:"azure_search_url"`
	AzureSearchKey        string `yaml:"azure_search_key" toml:"azure_search_key"`
	AzureSearchIndexName  string `yaml:"azure_search_index_name" toml:"azure_search_index_name"`
	AzureSearchAPIVersion string `yaml:"azure_search_api_version" toml:"azure_search_api_version"`
	AzureSearchKeyField   string `yaml:"azure_search_key_field" toml:"azure_search_key_field"`

	Workers   int  `yaml:"workers" toml:"workers"`
	Recursive bool `yaml:"recursive" toml:"recursive"`

	Extractor                 string  `yaml:"extractor" toml:"extractor"`
	DocIntelModel             string  `yaml:"doc_intel_model" toml:"doc_intel_model"`
	DocIntelAPIVersion        string  `yaml:"doc_intel_api_version" toml:"doc_intel_api_version"`
	DocIntelRequestsPerSecond float64 `yaml:"doc_intel_requests_per_second" toml:"doc_intel_requests_per_second"`
	DocIntelMaxAttempts       int     `yaml:"doc_intel_max_attempts" toml:"doc_intel_max_attempts"`

	EmbeddingProvider    string   `yaml:"embedding_provider" toml:"embedding_provider"`
	EmbeddingDimensions  int      `yaml:"embedding_dimensions" toml:"embedding_dimensions"`
	EmbeddingMaxAttempts int      `yaml:"embedding_max_attempts" toml:"embedding_max_attempts"`
	EmbeddingMinWait     Duration `yaml:"embedding_min_wait" toml:"embedding_min_wait"`
	EmbeddingMaxWait     Duration `yaml:"embedding_max_wait" toml:"embedding_max_wait"`
	NormalizeVectors     bool     `yaml:"normalize_vectors" toml:"normalize_vectors"`
	TokenizerEncoding    string   `yaml:"tokenizer_encoding" toml:"tokenizer_encoding"`

	IndexBackend  string `yaml:"index_backend" toml:"index_backend"`
	BadgerPath    string `yaml:"badger_path" toml:"badger_path"`
	PgvectorDSN   string `yaml:"pgvector_dsn" toml:"pgvector_dsn"`
	PgvectorTable string `yaml:"pgvector_table" toml:"pgvector_table"`

	ArtifactBucket   string `yaml:"artifact_bucket" toml:"artifact_bucket"`
	ArtifactPrefix   string `yaml:"artifact_prefix" toml:"artifact_prefix"`
	ArtifactEndpoint string `yaml:"artifact_endpoint" toml:"artifact_endpoint"`
	AWSRegion        string `yaml:"aws_region" toml:"aws_region"`
}

// Default returns a Config with every optional setting at its default.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset optional settings.
func (c *Config) ApplyDefaults() {
	setDefault(&c.ChunkSize, 1000)
	setDefault(&c.Workers, runtime.NumCPU())
	setDefault(&c.Extractor, ExtractorDocIntel)
	setDefault(&c.DocIntelModel, "prebuilt-layout")
	setDefault(&c.DocIntelAPIVersion, "2024-11-30")
	setDefault(&c.DocIntelRequestsPerSecond, 1)
	setDefault(&c.DocIntelMaxAttempts, 3)
	setDefault(&c.EmbeddingProvider, string(ai.ProviderAzure))
	setDefault(&c.EmbeddingMaxAttempts, 6)
	setDefault(&c.EmbeddingMinWait, Duration(time.Second))
	setDefault(&c.EmbeddingMaxWait, Duration(20*time.Second))
	setDefault(&c.TokenizerEncoding, "cl100k_base")
	setDefault(&c.IndexBackend, BackendAzureSearch)
	setDefault(&c.AzureSearchKeyField, "id")
	setDefault(&c.PgvectorTable, "chunk_records")

	c.Extractor = strings.ToLower(c.Extractor)
	c.EmbeddingProvider = strings.ToLower(c.EmbeddingProvider)
	c.IndexBackend = strings.ToLower(c.IndexBackend)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Validate reports the first invalid or missing setting for an indexing run.
func (c *Config) Validate() error {
	if err := chunking.ValidateWindow(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	switch c.Extractor {
	case ExtractorDocIntel:
		if len(c.DocIntelEndpointsKeys) == 0 {
			return ErrNoEndpoints
		}
		for i, ek := range c.DocIntelEndpointsKeys {
			if ek.Endpoint == "" || ek.Key == "" {
				return fmt.Errorf("%w: doc_intel_endpoints_keys[%d] needs endpoint and key", ErrMissingSetting, i)
			}
		}
		if c.DocIntelMaxAttempts < 1 {
			return fmt.Errorf("doc_intel_max_attempts must be at least 1, got %d", c.DocIntelMaxAttempts)
		}
	case ExtractorLocal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExtractor, c.Extractor)
	}

	return c.ValidateQuery()
}

// ValidateQuery checks only the settings needed to query or re-embed an
// existing index: embedding and index backend. Extraction and chunking
// settings are ignored.
func (c *Config) ValidateQuery() error {
	if err := c.EmbeddingPolicy().Validate(); err != nil {
		return err
	}
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}

	switch c.IndexBackend {
	case BackendAzureSearch:
		if err := requireSettings(map[string]string{
			"azure_search_url":        c.AzureSearchURL,
			"azure_search_key":        c.AzureSearchKey,
			"azure_search_index_name": c.AzureSearchIndexName,
		}); err != nil {
			return err
		}
	case BackendBadger:
		if err := requireSettings(map[string]string{"badger_path": c.BadgerPath}); err != nil {
			return err
		}
	case BackendPgvector:
		if err := requireSettings(map[string]string{"pgvector_dsn": c.PgvectorDSN}); err != nil {
			return err
		}
	case BackendNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIndexBackend, c.IndexBackend)
	}
	return nil
}

func requireSettings(settings map[string]string) error {
	var missing []string
	for k, v := range settings {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
}

// Credentials returns the extraction endpoint pool. The local extractor
// without configured endpoints gets a single placeholder credential.
func (c *Config) Credentials() []core.EndpointCredential {
	creds := make([]core.EndpointCredential, 0, len(c.DocIntelEndpointsKeys))
	for _, ek := range c.DocIntelEndpointsKeys {
		creds = append(creds, core.EndpointCredential{Endpoint: ek.Endpoint, Key: ek.Key})
	}
	if len(creds) == 0 && c.Extractor == ExtractorLocal {
		creds = append(creds, core.EndpointCredential{Endpoint: ExtractorLocal})
	}
	return creds
}

// AIConfig maps the embedding settings onto an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithProvider(ai.ProviderType(c.EmbeddingProvider)),
		ai.WithEmbeddingHost(c.OpenAIAPIBase),
		ai.WithEmbeddingModel(c.EmbeddingsModelName),
		ai.WithAPIKey(c.OpenAIAPIKey),
		ai.WithAPIVersion(c.OpenAIAPIVersion),
		ai.WithDimensions(c.EmbeddingDimensions),
	)
	if cfg.Provider == ai.ProviderOpenAI && c.OpenAIAPIBase == "" {
		cfg.EmbeddingHost = "https://api.openai.com/v1"
	}
	return cfg
}

// EmbeddingPolicy is the retry policy of the embedding client.
func (c *Config) EmbeddingPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.EmbeddingMaxAttempts,
		MinWait:     c.EmbeddingMinWait.Std(),
		MaxWait:     c.EmbeddingMaxWait.Std(),
	}
}

// DocIntelPolicy is the retry policy for Document Intelligence requests.
func (c *Config) DocIntelPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.DocIntelMaxAttempts,
		MinWait:     time.Second,
		MaxWait:     20 * time.Second,
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references. Unset variables expand to "".
func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Load reads, expands, decodes, defaults and validates the file at path for
// an indexing run.
// A .env file in the working directory or next to the config is loaded
// first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadQuery is Load for commands that only read an existing index. It
// validates with ValidateQuery.
func LoadQuery(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateQuery(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load without validation.
func Parse(path string) (*Config, error) {
	loadDotEnv(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw = expandEnv(raw)

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	case ".toml":
		err = toml.Unmarshal(raw, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func loadDotEnv(configPath string) {
	candidates := []string{".env", filepath.Join(filepath.Dir(configPath), ".env")}
	seen := make(map[string]bool)
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err == nil {
			_ = godotenv.Load(abs)
		}
	}
}
