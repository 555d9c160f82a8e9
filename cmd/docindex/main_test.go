package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// embeddingServer answers OpenAI-style embedding requests with a fixed vector.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		n := 1
		if in, ok := body.Input.([]any); ok {
			n = len(in)
		}
		data := make([]map[string]any, n)
		for i := range data {
			data[i] = map[string]any{"object": "embedding", "embedding": []float32{0.6, 0.8}, "index": i}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": body.Model})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testApp(out *bytes.Buffer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func writeConfig(t *testing.T, dir, embeddingURL string) string {
	t.Helper()
	cfg := fmt.Sprintf(`extractor: local
chunk_size: 40
chunk_overlap: 4
tokenizer_encoding: words
embedding_provider: openai
openai_api_base: %s
embeddings_model_name: test-embed
embedding_min_wait: 1ms
embedding_max_wait: 2ms
index_backend: badger
badger_path: %s
`, embeddingURL, filepath.Join(dir, "index"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestSetupLogger(t *testing.T) {
	var out bytes.Buffer
	app := testApp(&out)

	err := app.Run([]string{"docindex", "--log-level", "loud", "index"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		err := testApp(&out).Run([]string{"docindex", "--log-level", level, "search", "--config", "missing.yaml"})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "invalid log level", level)
	}
}

func TestIndexCommand_Usage(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"docindex", "index", "only-one-arg"})
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}

func TestIndexCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 10\nchunk_overlap: 10\n"), 0o644))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"docindex", "index", dir, t.TempDir(), path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestIndexAndSearch(t *testing.T) {
	srv := embeddingServer(t)
	work := t.TempDir()
	cfgPath := writeConfig(t, work, srv.URL)

	in := filepath.Join(work, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "guide.md"), []byte("# Guide\n\n"+strings.Repeat("lorem ipsum ", 50)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "sub", "deep.txt"), []byte("nested file"), 0o644))
	outDir := filepath.Join(work, "out")

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"docindex", "index", "--workers", "2", "--recursive", "--progress", in, outDir, cfgPath})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Indexed 2 files (0 failed)")
	assert.Contains(t, out.String(), "Progress: 2/2 files")

	for _, name := range []string{"guide.txt", "guide.json", filepath.Join("sub", "deep.txt"), filepath.Join("sub", "deep.json")} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	out.Reset()
	err = testApp(&out).Run([]string{"docindex", "search", "--config", cfgPath, "--limit", "2", "lorem", "ipsum"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Found 2 hits")
	assert.Contains(t, out.String(), "guide.md#")

	out.Reset()
	err = testApp(&out).Run([]string{"docindex", "reembed", "--config", cfgPath, "--report-interval", "1"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "in 2 files (0 failed)")
}

func TestSearchWithoutExtractionSettings(t *testing.T) {
	srv := embeddingServer(t)
	work := t.TempDir()
	cfgPath := writeConfig(t, work, srv.URL)

	in := filepath.Join(work, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "sub", "notes.txt"), []byte("meeting notes"), 0o644))

	var out bytes.Buffer
	require.NoError(t, testApp(&out).Run([]string{"docindex", "index", "--recursive", in, filepath.Join(work, "out"), cfgPath}))

	// docintel extractor without endpoints: fine for search, rejected for index
	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	queryCfg := filepath.Join(work, "query.yaml")
	require.NoError(t, os.WriteFile(queryCfg,
		[]byte(strings.Replace(string(raw), "extractor: local", "extractor: docintel", 1)), 0o644))

	out.Reset()
	require.NoError(t, testApp(&out).Run([]string{"docindex", "search", "--config", queryCfg, "meeting"}))
	assert.Contains(t, out.String(), "Found 1 hits")
	assert.Contains(t, out.String(), "sub/notes.txt#0")

	out.Reset()
	require.NoError(t, testApp(&out).Run([]string{"docindex", "reembed", "--config", queryCfg}))
	assert.Contains(t, out.String(), "in 1 files (0 failed)")

	err = testApp(&out).Run([]string{"docindex", "index", in, filepath.Join(work, "out2"), queryCfg})
	assert.Error(t, err)
}

func TestIndexCommand_Strict(t *testing.T) {
	srv := embeddingServer(t)
	work := t.TempDir()
	cfgPath := writeConfig(t, work, srv.URL)

	in := filepath.Join(work, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "ok.txt"), []byte("fine"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "blob.bin"), []byte{0, 1, 2}, 0o644))

	var out bytes.Buffer
	err := testApp(&out).Run([]string{"docindex", "index", in, filepath.Join(work, "out"), cfgPath})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "(1 failed)")

	out.Reset()
	err = testApp(&out).Run([]string{"docindex", "index", "--strict", in, filepath.Join(work, "out2"), cfgPath})
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
}

func TestSearchCommand_Usage(t *testing.T) {
	var out bytes.Buffer
	err := testApp(&out).Run([]string{"docindex", "search", "--config", "x.yaml"})
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n\nb   c", 10))
	assert.Equal(t, "abc...", preview("abcdef", 3))
}
