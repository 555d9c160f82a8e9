package docindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/artifact"
	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/endpoint"
	extractmock "github.com/poiesic/docindex/extract/mock"
	"github.com/poiesic/docindex/index"
	indexmock "github.com/poiesic/docindex/index/mock"
	"github.com/poiesic/docindex/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		ChunkSize:           50,
		ChunkOverlap:        5,
		Workers:             2,
		Extractor:           config.ExtractorLocal,
		EmbeddingProvider:   "openai",
		EmbeddingsModelName: "test-embed",
		EmbeddingMinWait:    config.Duration(1),
		EmbeddingMaxWait:    config.Duration(2),
		TokenizerEncoding:   "words",
		IndexBackend:        config.BackendBadger,
		BadgerPath:          filepath.Join(t.TempDir(), "index"),
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := New(context.Background(), nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("builds from config", func(t *testing.T) {
		provider := mock.NewMockProvider(nil)
		x, err := New(context.Background(), testConfig(t), WithProvider(provider))
		require.NoError(t, err)
		assert.NotEmpty(t, x.RunID())
		require.NoError(t, x.Close())
		assert.True(t, provider.Closed())
	})

	t.Run("run ids differ", func(t *testing.T) {
		a, err := New(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider(nil)))
		require.NoError(t, err)
		defer a.Close()
		b, err := New(context.Background(), testConfig(t), WithProvider(mock.NewMockProvider(nil)))
		require.NoError(t, err)
		defer b.Close()
		assert.NotEqual(t, a.RunID(), b.RunID())
	})

	t.Run("unknown tokenizer encoding", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TokenizerEncoding = "no-such-encoding"
		x, err := New(context.Background(), cfg, WithProvider(mock.NewMockProvider(nil)), WithOutputDir(t.TempDir()))
		require.NoError(t, err)
		defer x.Close()

		_, err = x.NewPipeline()
		assert.Error(t, err)
	})
}

func TestNew_QueryConfigSkipsExtraction(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor = config.ExtractorDocIntel
	cfg.DocIntelEndpointsKeys = nil
	require.NoError(t, cfg.ValidateQuery())

	x, err := New(context.Background(), cfg, WithProvider(mock.NewMockProvider(nil)), WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	defer x.Close()

	_, err = x.NewSearcher()
	require.NoError(t, err)
	_, err = x.NewReembedder()
	require.NoError(t, err)

	_, err = x.NewPipeline()
	assert.ErrorIs(t, err, endpoint.ErrEmptyPool)
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	in := writeInputs(t, map[string]string{
		"guide.md":  "# Guide\n\n" + strings.Repeat("alpha beta gamma delta ", 30),
		"notes.txt": "short note about gradient descent",
	})
	out := t.TempDir()

	x, err := New(ctx, cfg, WithProvider(mock.NewMockProvider(nil)), WithOutputDir(out))
	require.NoError(t, err)
	defer x.Close()

	summary, err := x.Run(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Positive(t, summary.Records)

	for _, name := range []string{"guide.txt", "guide.json", "notes.txt", "notes.json"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(out, "notes.json"))
	require.NoError(t, err)
	records, err := artifact.DecodeManifest(data)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "notes.txt", records[0].FileName)
	assert.Equal(t, "0", records[0].ChunkID)

	s, err := x.NewSearcher(search.WithMinScore(-1))
	require.NoError(t, err)
	results, err := s.FindSimilar(ctx, "gradient descent", 10)
	require.NoError(t, err)
	assert.Len(t, results, summary.Records)
}

func TestRun_WithInjectedCollaborators(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	in := writeInputs(t, map[string]string{"a.pdf": "ignored", "b.pdf": "ignored"})

	ext := &extractmock.MockExtractor{}
	idx := indexmock.NewMockIndex()
	mirror, err := artifact.NewDir(t.TempDir())
	require.NoError(t, err)

	x, err := New(ctx, cfg,
		WithProvider(mock.NewMockProvider(nil)),
		WithExtractor(ext),
		WithIndex(idx),
		WithArtifactMirror(mirror),
		WithOutputDir(t.TempDir()),
	)
	require.NoError(t, err)
	defer x.Close()

	summary, err := x.Run(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, ext.CallCount())
	assert.NotEmpty(t, idx.Records("a.pdf"))
	assert.NotEmpty(t, idx.Records("b.pdf"))

	mirrored, err := mirror.Path("a.json")
	require.NoError(t, err)
	_, err = os.Stat(mirrored)
	assert.NoError(t, err)

	_, err = x.NewSearcher()
	assert.ErrorIs(t, err, ErrSearchUnsupported)
	_, err = x.NewReembedder()
	assert.ErrorIs(t, err, ErrReembedUnsupported)
}

func TestReembed(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	in := writeInputs(t, map[string]string{"a.txt": "some words to index"})

	x, err := New(ctx, cfg, WithProvider(mock.NewMockProvider(nil)), WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	defer x.Close()

	_, err = x.Run(ctx, in)
	require.NoError(t, err)

	r, err := x.NewReembedder()
	require.NoError(t, err)
	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Records)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	x, err := New(ctx, cfg, WithProvider(mock.NewMockProvider(nil)), WithIndex(index.Nop{}))
	require.NoError(t, err)
	defer x.Close()

	_, err = x.Run(ctx, t.TempDir())
	assert.ErrorIs(t, err, ErrOutputDirRequired)

	x2, err := New(ctx, cfg, WithProvider(mock.NewMockProvider(nil)), WithIndex(index.Nop{}), WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	defer x2.Close()
	_, err = x2.Run(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
