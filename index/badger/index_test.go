package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Index {
	t.Helper()
	idx, err := Open("", InMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func makeRecords(file string, vectors ...[]float32) []core.ChunkRecord {
	ts := core.NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	out := make([]core.ChunkRecord, len(vectors))
	for i, v := range vectors {
		out[i] = core.ChunkRecord{
			FileName:    file,
			LastUpdated: ts,
			ChunkID:     core.FormatChunkID(i),
			Chunk:       fmt.Sprintf("%s chunk %d", file, i),
			Vector:      v,
			Headings:    []core.Heading{{Level: 1, Text: "Intro"}},
		}
	}
	return out
}

func TestOpen_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "idx")
	idx, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpen_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestUpload_RoundTrip(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	vectors := make([][]float32, 12)
	for i := range vectors {
		vectors[i] = []float32{float32(i), 1}
	}
	require.NoError(t, idx.Upload(ctx, makeRecords("a.pdf", vectors...)))

	got, err := idx.Records(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 12)
	for i, r := range got {
		assert.Equal(t, core.FormatChunkID(i), r.ChunkID, "numeric order")
	}
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Intro"}}, got[0].Headings)
	assert.Equal(t, "2025-01-02T03:04:05.000Z", got[0].LastUpdated.String())
}

func TestUpload_ReplacesFileRecords(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	require.NoError(t, idx.Upload(ctx, makeRecords("a.pdf", []float32{1}, []float32{2}, []float32{3})))
	require.NoError(t, idx.Upload(ctx, makeRecords("ab.pdf", []float32{9})))
	require.NoError(t, idx.Upload(ctx, makeRecords("a.pdf", []float32{4})))

	got, err := idx.Records(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{4}, got[0].Vector)

	other, err := idx.Records(ctx, "ab.pdf")
	require.NoError(t, err)
	assert.Len(t, other, 1, "prefix of another file is untouched")

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := idx.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "ab.pdf"}, files)
}

func TestSourceFromKey(t *testing.T) {
	name, ok := sourceFromKey(makeChunkRecordKey("dir/x.pdf", "7"))
	assert.True(t, ok)
	assert.Equal(t, "dir/x.pdf", name)

	_, ok = sourceFromKey([]byte("other:x"))
	assert.False(t, ok)
}

func TestUpload_SameFileNameDifferentSources(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	a := makeRecords("x.pdf", []float32{1}, []float32{2})
	for i := range a {
		a[i].Source = "a/x.pdf"
	}
	b := makeRecords("x.pdf", []float32{3})
	b[0].Source = "b/x.pdf"

	require.NoError(t, idx.Upload(ctx, a))
	require.NoError(t, idx.Upload(ctx, b))

	gotA, err := idx.Records(ctx, "a/x.pdf")
	require.NoError(t, err)
	require.Len(t, gotA, 2, "second upload leaves the first source intact")
	assert.Equal(t, "a/x.pdf", gotA[0].Source)
	assert.Equal(t, "x.pdf", gotA[0].FileName)

	gotB, err := idx.Records(ctx, "b/x.pdf")
	require.NoError(t, err)
	require.Len(t, gotB, 1)

	files, err := idx.Files(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x.pdf", "b/x.pdf"}, files)
}

func TestFindSimilar(t *testing.T) {
	idx := openMemory(t)
	ctx := context.Background()

	require.NoError(t, idx.Upload(ctx, makeRecords("a.pdf",
		[]float32{1, 0},
		[]float32{0.8, 0.6},
		[]float32{0, 1},
		[]float32{-1, 0},
	)))

	results, err := idx.FindSimilar(ctx, []float32{2, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "0", results[0].Record.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "1", results[1].Record.ChunkID)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)

	limited, err := idx.FindSimilar(ctx, []float32{1, 0}, -1, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestFindSimilar_Empty(t *testing.T) {
	idx := openMemory(t)
	results, err := idx.FindSimilar(context.Background(), []float32{1}, 0, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUpload_Closed(t *testing.T) {
	idx, err := Open("", InMemory())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	err = idx.Upload(context.Background(), makeRecords("a.pdf", []float32{1}))
	assert.ErrorIs(t, err, index.ErrClosed)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 1}, []float32{2, 2}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
