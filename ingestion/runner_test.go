package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/artifact"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/embedding"
	"github.com/poiesic/docindex/endpoint"
	extractmock "github.com/poiesic/docindex/extract/mock"
	indexmock "github.com/poiesic/docindex/index/mock"
	"github.com/poiesic/docindex/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 2, 3, 4, 5, 6, 789e6, time.UTC)

type harness struct {
	extractor *extractmock.MockExtractor
	embedder  *mock.MockEmbedder
	index     *indexmock.MockIndex
	outDir    string
	inDir     string
	runner    *Runner
}

func newHarness(t *testing.T, size, overlap int) *harness {
	t.Helper()

	h := &harness{
		extractor: extractmock.NewMockExtractor(),
		embedder:  mock.NewMockEmbedder(),
		index:     indexmock.NewMockIndex(),
		outDir:    filepath.Join(t.TempDir(), "out"),
		inDir:     t.TempDir(),
	}

	selector, err := endpoint.NewSelector([]core.EndpointCredential{
		{Endpoint: "https://one", Key: "k1"},
		{Endpoint: "https://two", Key: "k2"},
	})
	require.NoError(t, err)

	chunker, err := chunking.NewChunker(chunking.NewWordTokenizer(), size, overlap)
	require.NoError(t, err)

	client, err := embedding.NewClient(h.embedder, embedding.WithPolicy(retry.Policy{
		MaxAttempts: 6, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond,
	}))
	require.NoError(t, err)

	store, err := artifact.NewDir(h.outDir)
	require.NoError(t, err)

	h.runner, err = NewRunner(Components{
		Selector:  selector,
		Extractor: h.extractor,
		Chunker:   chunker,
		Embedder:  client,
		Index:     h.index,
		Store:     store,
	}, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return h
}

func (h *harness) task(t *testing.T, rel string) core.FileTask {
	t.Helper()
	path := filepath.Join(h.inDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))
	return core.FileTask{Path: path, RelPath: rel}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func readManifest(t *testing.T, path string) []core.ChunkRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := artifact.DecodeManifest(data)
	require.NoError(t, err)
	return records
}

func TestRun_EndToEnd_1200Tokens(t *testing.T) {
	h := newHarness(t, 500, 50)
	var inputs []string
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		inputs = append(inputs, text)
		return mock.DeterministicVector(text, 8), nil
	}
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return words(1200), nil
	}

	res := h.runner.Run(context.Background(), h.task(t, "report.pdf"))
	require.NoError(t, res.Err())
	assert.Equal(t, core.StatePersisted, res.State)
	assert.Equal(t, 3, res.Chunks)

	records := readManifest(t, filepath.Join(h.outDir, "report.json"))
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, core.FormatChunkID(i), r.ChunkID)
		assert.Equal(t, "report.pdf", r.FileName)
		assert.NotEmpty(t, r.Vector)
		assert.Equal(t, "2025-02-03T04:05:06.789Z", r.LastUpdated.String())
	}
	assert.True(t, strings.HasPrefix(records[1].Chunk, "w450 "))
	assert.True(t, strings.HasPrefix(records[2].Chunk, "w900 "))
	assert.True(t, strings.HasSuffix(records[2].Chunk, " w1199"))

	require.Len(t, inputs, 3)
	assert.True(t, strings.HasPrefix(inputs[0], "File Name: report.pdf w0 w1"), "normalized input %q", inputs[0][:40])

	text, err := os.ReadFile(filepath.Join(h.outDir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, words(1200), string(text))

	assert.Len(t, h.index.Records("report.pdf"), 3)
	assert.Equal(t, 1, h.index.CallCount(), "one bulk upload per file")
}

func TestRun_ArtifactsMirrorRelativePath(t *testing.T) {
	h := newHarness(t, 50, 5)

	res := h.runner.Run(context.Background(), h.task(t, filepath.Join("nested", "deep", "memo.docx")))
	require.NoError(t, res.Err())

	_, err := os.Stat(filepath.Join(h.outDir, "nested", "deep", "memo.txt"))
	assert.NoError(t, err)
	records := readManifest(t, filepath.Join(h.outDir, "nested", "deep", "memo.json"))
	require.NotEmpty(t, records)
	assert.Equal(t, "memo.docx", records[0].FileName)
	assert.Equal(t, "nested/deep/memo.docx", res.Records[0].Source)
}

func TestRun_SameBaseNameInDifferentDirectories(t *testing.T) {
	h := newHarness(t, 50, 5)
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return "content of " + filepath.Base(filepath.Dir(path)), nil
	}

	first := h.runner.Run(context.Background(), h.task(t, filepath.Join("a", "x.pdf")))
	second := h.runner.Run(context.Background(), h.task(t, filepath.Join("b", "x.pdf")))
	require.NoError(t, first.Err())
	require.NoError(t, second.Err())

	a := readManifest(t, filepath.Join(h.outDir, "a", "x.json"))
	b := readManifest(t, filepath.Join(h.outDir, "b", "x.json"))
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "content of a", a[0].Chunk)
	assert.Equal(t, "content of b", b[0].Chunk)
	_, err := os.Stat(filepath.Join(h.outDir, "x.json"))
	assert.True(t, os.IsNotExist(err))

	assert.NotEqual(t, first.Records[0].Key(), second.Records[0].Key())
	assert.Len(t, h.index.Records("a/x.pdf"), 1)
	assert.Len(t, h.index.Records("b/x.pdf"), 1)
}

func TestRun_ExtractionFailure(t *testing.T) {
	h := newHarness(t, 50, 5)
	boom := errors.New("endpoint unreachable")
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return "", boom
	}

	res := h.runner.Run(context.Background(), h.task(t, "a.pdf"))
	assert.Equal(t, core.StateFailed, res.State)
	assert.Equal(t, core.StageExtract, res.FailedStage)
	assert.ErrorIs(t, res.Err(), core.ErrExtraction)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Zero(t, h.embedder.CallCount())

	_, err := os.Stat(filepath.Join(h.outDir, "a.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(h.outDir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_PerChunkSkipKeepsIdsContiguous(t *testing.T) {
	h := newHarness(t, 10, 0)
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return words(40), nil
	}
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, " w10 ") {
			return nil, core.Permanent(errors.New("content filtered"))
		}
		return []float32{1, 2}, nil
	}

	res := h.runner.Run(context.Background(), h.task(t, "doc.md"))
	assert.Equal(t, core.StatePersisted, res.State)
	assert.False(t, res.Failed())
	assert.Equal(t, 4, res.Chunks)
	require.Len(t, res.Records, 3)
	require.NoError(t, core.ValidateFileRecords(res.Records))
	assert.True(t, strings.HasPrefix(res.Records[1].Chunk, "w20"), "second record is the third chunk")

	require.Len(t, res.Failures, 1)
	assert.Equal(t, core.StageEmbed, res.Failures[0].Stage)
	assert.Equal(t, 1, res.Failures[0].Chunk)
	assert.ErrorIs(t, res.Failures[0], core.ErrEmbedding)

	assert.Len(t, readManifest(t, filepath.Join(h.outDir, "doc.json")), 3)
}

func TestRun_AllChunksFailWritesNoManifest(t *testing.T) {
	h := newHarness(t, 10, 0)
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, core.Permanent(errors.New("bad deployment"))
	}

	res := h.runner.Run(context.Background(), h.task(t, "doc.md"))
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Failures)
	assert.Zero(t, h.index.CallCount())

	_, err := os.Stat(filepath.Join(h.outDir, "doc.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(h.outDir, "doc.txt"))
	assert.NoError(t, err, "raw text is persisted before chunking")
}

func TestRun_UploadFailureStillWritesManifest(t *testing.T) {
	h := newHarness(t, 50, 5)
	h.index.UploadFunc = func(ctx context.Context, records []core.ChunkRecord) error {
		return errors.New("index unavailable")
	}

	res := h.runner.Run(context.Background(), h.task(t, "a.pdf"))
	assert.Equal(t, core.StatePersisted, res.State)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], core.ErrUpload)

	assert.NotEmpty(t, readManifest(t, filepath.Join(h.outDir, "a.json")))
}

type failingStore struct {
	artifact.Store
	textErr error
}

func (f failingStore) SaveText(ctx context.Context, relPath, text string) error {
	return f.textErr
}

func TestRun_TextPersistenceIsBestEffort(t *testing.T) {
	h := newHarness(t, 50, 5)
	store, err := artifact.NewDir(h.outDir)
	require.NoError(t, err)
	h.runner.components.Store = failingStore{Store: store, textErr: errors.New("read-only")}

	res := h.runner.Run(context.Background(), h.task(t, "a.pdf"))
	assert.Equal(t, core.StatePersisted, res.State)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, core.StagePersistText, res.Failures[0].Stage)
	assert.ErrorIs(t, res.Failures[0], core.ErrPersistence)
	assert.NotEmpty(t, res.Records)
}

func TestRun_ChunkingFailure(t *testing.T) {
	h := newHarness(t, 50, 5)
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return "bad \xff utf8", nil
	}

	res := h.runner.Run(context.Background(), h.task(t, "a.pdf"))
	assert.Equal(t, core.StateFailed, res.State)
	assert.Equal(t, core.StageChunk, res.FailedStage)
	assert.ErrorIs(t, res.Err(), core.ErrSectionSplit)
	assert.ErrorIs(t, res.Err(), chunking.ErrInvalidText)
}

func TestRun_PanicIsContained(t *testing.T) {
	h := newHarness(t, 50, 5)
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		panic("parser exploded")
	}

	res := h.runner.Run(context.Background(), h.task(t, "a.pdf"))
	assert.Equal(t, core.StateFailed, res.State)
	assert.Equal(t, core.StageExtract, res.FailedStage)
	assert.ErrorIs(t, res.Err(), errPanic)
	assert.Contains(t, res.Err().Error(), "parser exploded")
}

func TestRun_HeadingsReachIndex(t *testing.T) {
	h := newHarness(t, 50, 5)
	h.extractor.ExtractFunc = func(ctx context.Context, path string, cred core.EndpointCredential) (string, error) {
		return "# Guide\n\nintro\n\n## Setup\n\nsteps here", nil
	}

	res := h.runner.Run(context.Background(), h.task(t, "guide.md"))
	require.NoError(t, res.Err())

	records := h.index.Records("guide.md")
	require.Len(t, records, 2)
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Guide"}, {Level: 2, Text: "Setup"}}, records[1].Headings)
}

func TestRun_UsesSelectedEndpoint(t *testing.T) {
	h := newHarness(t, 50, 5)
	for i := 0; i < 20; i++ {
		h.runner.Run(context.Background(), h.task(t, fmt.Sprintf("f%d.txt", i)))
	}
	for _, ep := range h.extractor.Endpoints() {
		assert.Contains(t, []string{"https://one", "https://two"}, ep)
	}
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(Components{})
	assert.ErrorIs(t, err, ErrSelectorRequired)
}
