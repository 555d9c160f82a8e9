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


// Package docindex wires configuration into a ready-to-run indexing
// pipeline and a searcher over the resulting index.
//
//	cfg, _ := config.Load("config.yaml")
//	ix, err := docindex.New(ctx, cfg, docindex.WithOutputDir("out"))
//	if err != nil { ... }
//	defer ix.Close()
//	summary, err := ix.Run(ctx, "in")
package docindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/gemini"
	"github.com/poiesic/docindex/ai/openai"
	"github.com/poiesic/docindex/artifact"
	artifacts3 "github.com/poiesic/docindex/artifact/s3"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/embedding"
	"github.com/poiesic/docindex/endpoint"
	"github.com/poiesic/docindex/extract"
	"github.com/poiesic/docindex/extract/docintel"
	"github.com/poiesic/docindex/extract/local"
	"github.com/poiesic/docindex/index"
	"github.com/poiesic/docindex/index/azuresearch"
	"github.com/poiesic/docindex/index/badger"
	"github.com/poiesic/docindex/index/pgvector"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/reembed"
	"github.com/poiesic/docindex/search"
)

var (
	// ErrConfigRequired is returned when New is called without a config.
	ErrConfigRequired = errors.New("config required")

	// ErrOutputDirRequired is returned by Run when no output directory was set.
	ErrOutputDirRequired = errors.New("output directory required")

	// ErrSearchUnsupported is returned by NewSearcher for index backends that
	// cannot answer similarity queries locally.
	ErrSearchUnsupported = errors.New("index backend does not support search")

	// ErrReembedUnsupported is returned by NewReembedder for index backends
	// whose records cannot be enumerated.
	ErrReembedUnsupported = errors.New("index backend does not support reembedding")
)

// Indexer owns every long-lived collaborator of an indexing run.
// Extraction and chunking are built on first use by NewPipeline, so an
// Indexer used only for search or reembedding needs no extraction settings.
type Indexer struct {
	cfg       *config.Config
	runID     string
	provider  ai.Provider
	embedder  *embedding.Client
	index     index.Index
	store     artifact.Store
	outputDir string
	logger    *slog.Logger

	mu        sync.Mutex
	extractor extract.Extractor
	selector  *endpoint.Selector
	chunker   *chunking.Chunker
}

// Option configures an Indexer.
type Option func(*options)

type options struct {
	outputDir string
	provider  ai.Provider
	extractor extract.Extractor
	index     index.Index
	mirrors   []artifact.Store
	logger    *slog.Logger
}

// WithOutputDir sets the directory receiving .txt and .json artifacts.
func WithOutputDir(dir string) Option {
	return func(o *options) { o.outputDir = dir }
}

// WithProvider overrides the embedding provider built from the config.
func WithProvider(p ai.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithExtractor overrides the extractor built from the config.
func WithExtractor(e extract.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithIndex overrides the index backend built from the config.
func WithIndex(ix index.Index) Option {
	return func(o *options) { o.index = ix }
}

// WithArtifactMirror adds a store that receives a copy of every artifact.
func WithArtifactMirror(s artifact.Store) Option {
	return func(o *options) { o.mirrors = append(o.mirrors, s) }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds an Indexer from cfg. cfg must already be validated, with
// Validate for indexing or ValidateQuery for search and reembedding.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Indexer, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	runID := uuid.NewString()
	x := &Indexer{
		cfg:       cfg,
		runID:     runID,
		outputDir: o.outputDir,
		logger:    o.logger.With("run_id", runID),
	}

	if err := x.build(ctx, o); err != nil {
		_ = x.Close()
		return nil, err
	}
	return x, nil
}

func (x *Indexer) build(ctx context.Context, o *options) error {
	var err error

	x.extractor = o.extractor

	x.provider = o.provider
	if x.provider == nil {
		if x.provider, err = x.newProvider(ctx); err != nil {
			return err
		}
	}
	x.embedder, err = embedding.NewClient(x.provider.Embedder(),
		embedding.WithPolicy(x.cfg.EmbeddingPolicy()),
		embedding.WithVectorNormalization(x.cfg.NormalizeVectors),
		embedding.WithLogger(x.logger),
	)
	if err != nil {
		return err
	}

	x.index = o.index
	if x.index == nil {
		if x.index, err = x.newIndex(ctx); err != nil {
			return err
		}
	}

	if x.outputDir != "" {
		dir, err := artifact.NewDir(x.outputDir)
		if err != nil {
			return err
		}
		mirrors := o.mirrors
		if x.cfg.ArtifactBucket != "" {
			remote, err := artifacts3.New(ctx, x.cfg.ArtifactBucket,
				artifacts3.WithRegion(x.cfg.AWSRegion),
				artifacts3.WithPrefix(x.cfg.ArtifactPrefix),
				artifacts3.WithEndpoint(x.cfg.ArtifactEndpoint),
				artifacts3.WithLogger(x.logger),
			)
			if err != nil {
				return fmt.Errorf("artifact bucket: %w", err)
			}
			mirrors = append(mirrors, remote)
		}
		x.store = artifact.Tee(dir, mirrors...)
	}
	return nil
}

func (x *Indexer) newExtractor() (extract.Extractor, error) {
	if x.cfg.Extractor == config.ExtractorLocal {
		e, err := local.New(local.WithLogger(x.logger))
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	c, err := docintel.New(
		docintel.WithModel(x.cfg.DocIntelModel),
		docintel.WithAPIVersion(x.cfg.DocIntelAPIVersion),
		docintel.WithRequestsPerSecond(x.cfg.DocIntelRequestsPerSecond),
		docintel.WithRetryPolicy(x.cfg.DocIntelPolicy()),
		docintel.WithLogger(x.logger),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (x *Indexer) newProvider(ctx context.Context) (ai.Provider, error) {
	aiCfg := x.cfg.AIConfig()
	if aiCfg.Provider == ai.ProviderGemini {
		return gemini.NewProvider(ctx, aiCfg)
	}
	return openai.NewProvider(aiCfg)
}

func (x *Indexer) newIndex(ctx context.Context) (index.Index, error) {
	switch x.cfg.IndexBackend {
	case config.BackendAzureSearch:
		c, err := azuresearch.New(x.cfg.AzureSearchURL, x.cfg.AzureSearchIndexName, x.cfg.AzureSearchKey, x.cfg.AzureSearchAPIVersion,
			azuresearch.WithKeyField(x.cfg.AzureSearchKeyField),
			azuresearch.WithLogger(x.logger),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendBadger:
		ix, err := badger.Open(x.cfg.BadgerPath, badger.WithLogger(x.logger))
		if err != nil {
			return nil, err
		}
		return ix, nil
	case config.BackendPgvector:
		ix, err := pgvector.Open(ctx, x.cfg.PgvectorDSN,
			pgvector.WithTable(x.cfg.PgvectorTable),
			pgvector.WithLogger(x.logger),
		)
		if err != nil {
			return nil, err
		}
		return ix, nil
	default:
		return index.Nop{}, nil
	}
}

// ingestionComponents builds the selector, chunker and extractor once.
func (x *Indexer) ingestionComponents() (ingestion.Components, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.selector == nil {
		selector, err := endpoint.NewSelector(x.cfg.Credentials())
		if err != nil {
			return ingestion.Components{}, err
		}
		x.selector = selector
	}
	if x.chunker == nil {
		tok, err := chunking.NewTokenizer(x.cfg.TokenizerEncoding)
		if err != nil {
			return ingestion.Components{}, err
		}
		chunker, err := chunking.NewChunker(tok, x.cfg.ChunkSize, x.cfg.ChunkOverlap, chunking.WithLogger(x.logger))
		if err != nil {
			return ingestion.Components{}, err
		}
		x.chunker = chunker
	}
	if x.extractor == nil {
		extractor, err := x.newExtractor()
		if err != nil {
			return ingestion.Components{}, err
		}
		x.extractor = extractor
	}

	return ingestion.Components{
		Selector:  x.selector,
		Extractor: x.extractor,
		Chunker:   x.chunker,
		Embedder:  x.embedder,
		Index:     x.index,
		Store:     x.store,
	}, nil
}

// RunID identifies this Indexer in logs.
func (x *Indexer) RunID() string {
	return x.runID
}

// NewPipeline builds a pipeline sized by the configured worker count.
// Later options override earlier ones.
func (x *Indexer) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	if x.store == nil {
		return nil, ErrOutputDirRequired
	}
	components, err := x.ingestionComponents()
	if err != nil {
		return nil, err
	}
	runner, err := ingestion.NewRunner(components, ingestion.WithRunnerLogger(x.logger))
	if err != nil {
		return nil, err
	}

	all := append([]ingestion.Option{
		ingestion.WithPoolSize(x.cfg.Workers),
		ingestion.WithLogger(x.logger),
	}, opts...)
	return ingestion.NewPipeline(runner, all...)
}

// Run discovers every file under inputDir and indexes it.
func (x *Indexer) Run(ctx context.Context, inputDir string, opts ...ingestion.Option) (*ingestion.Summary, error) {
	tasks, err := ingestion.Discover(inputDir, x.cfg.Recursive)
	if err != nil {
		return nil, err
	}

	p, err := x.NewPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer p.Release()

	x.logger.Info("indexing started", "input", inputDir, "files", len(tasks), "workers", p.Size())
	summary := p.Run(ctx, tasks)
	x.logger.Info("indexing finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"records", summary.Records,
		"duration", summary.Duration,
	)
	return summary, nil
}

// NewSearcher returns a searcher over the configured index. Only backends
// that answer similarity queries locally are supported.
func (x *Indexer) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	store, ok := x.index.(search.VectorStore)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnsupported, x.cfg.IndexBackend)
	}
	return search.NewSearcher(store, x.embedder, append([]search.Option{search.WithLogger(x.logger)}, opts...)...)
}

// NewReembedder returns a reembedder over the configured index.
func (x *Indexer) NewReembedder(opts ...reembed.Option) (*reembed.Reembedder, error) {
	store, ok := x.index.(reembed.Store)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReembedUnsupported, x.cfg.IndexBackend)
	}
	return reembed.NewReembedder(store, x.embedder, append([]reembed.Option{reembed.WithLogger(x.logger)}, opts...)...)
}

// Close releases the index and the embedding provider.
func (x *Indexer) Close() error {
	var errs []error
	if x.index != nil {
		errs = append(errs, x.index.Close())
	}
	if x.provider != nil {
		errs = append(errs, x.provider.Close())
	}
	return errors.Join(errs...)
}
