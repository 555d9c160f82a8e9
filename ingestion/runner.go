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


package ingestion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/artifact"
	"github.com/poiesic/docindex/chunking"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/extract"
	"github.com/poiesic/docindex/index"
)

// EndpointSelector picks the extraction endpoint for one file.
type EndpointSelector interface {
	Select() core.EndpointCredential
}

// Embedder turns one chunk's embedding input into a vector, retrying as it
// sees fit. *embedding.Client implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Components are the collaborators a Runner drives.
// Index may be nil, in which case uploads are skipped.
type Components struct {
	Selector  EndpointSelector
	Extractor extract.Extractor
	Chunker   *chunking.Chunker
	Embedder  Embedder
	Index     index.Index
	Store     artifact.Store
}

// Runner executes the pipeline for one file at a time. A single Runner is
// shared by every worker and holds no per-file state.
type Runner struct {
	components Components
	now        func() time.Time
	logger     *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner) error

// WithClock sets the time source used for last_updated.
// Default is time.Now.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// WithRunnerLogger sets a custom logger.
// Default is slog.Default().
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a file task runner.
func NewRunner(c Components, opts ...RunnerOption) (*Runner, error) {
	switch {
	case c.Selector == nil:
		return nil, ErrSelectorRequired
	case c.Extractor == nil:
		return nil, ErrExtractorRequired
	case c.Chunker == nil:
		return nil, ErrChunkerRequired
	case c.Embedder == nil:
		return nil, ErrEmbedderRequired
	case c.Store == nil:
		return nil, ErrStoreRequired
	}
	if c.Index == nil {
		c.Index = index.Nop{}
	}

	r := &Runner{
		components: c,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "file-runner")
	return r, nil
}

// task carries the mutable state of one file's run.
type task struct {
	*Runner
	result *core.FileResult
	stage  core.Stage
	logger *slog.Logger
}

// Run processes one file and always returns its result. Stage failures,
// including panics, are recorded on the result and never propagate.
func (r *Runner) Run(ctx context.Context, ft core.FileTask) *core.FileResult {
	start := r.now()
	t := &task{
		Runner: r,
		result: &core.FileResult{Task: ft, State: core.StateDiscovered},
		logger: r.logger.With("file", ft.FileName(), "path", ft.Path),
	}

	func() {
		defer func() {
			if p := recover(); p != nil {
				t.fail(fmt.Errorf("%w: %v", errPanic, p))
			}
		}()
		t.run(ctx)
	}()

	t.result.Duration = r.now().Sub(start)
	return t.result
}

func (t *task) run(ctx context.Context) {
	ft := t.result.Task

	// Extract
	t.enter(core.StateExtracting, core.StageExtract)
	cred := t.components.Selector.Select()
	t.logger.Debug("extracting", "endpoint", cred.String())
	text, err := t.components.Extractor.Extract(ctx, ft.Path, cred)
	if err != nil {
		t.fail(err)
		return
	}
	t.result.State = core.StateExtracted

	// Raw text is best-effort.
	t.stage = core.StagePersistText
	if err := t.components.Store.SaveText(ctx, ft.TextPath(), text); err != nil {
		t.record(core.NewStageError(core.StagePersistText, ft.FileName(), err))
	}

	// Chunk
	t.enter(core.StateChunking, core.StageChunk)
	chunks, err := t.components.Chunker.Split(text)
	if err != nil {
		t.fail(err)
		return
	}

	// Embed
	t.enter(core.StateEmbedding, core.StageEmbed)
	t.embedAll(ctx, chunks)
	t.result.State = core.StateAssembled

	records := t.result.Records
	if len(records) == 0 {
		t.logger.Info("no records produced", "chunks", t.result.Chunks)
		t.result.State = core.StatePersisted
		return
	}

	// Upload
	t.enter(core.StateUploading, core.StageUpload)
	if err := t.components.Index.Upload(ctx, records); err != nil {
		t.record(core.NewStageError(core.StageUpload, ft.FileName(), err))
	}

	// Manifest
	t.stage = core.StagePersistManifest
	if err := t.components.Store.SaveManifest(ctx, ft.ManifestPath(), records); err != nil {
		t.record(core.NewStageError(core.StagePersistManifest, ft.FileName(), err))
	}

	t.result.State = core.StatePersisted
	t.logger.Info("file indexed", "records", len(records), "chunks", t.result.Chunks,
		"failures", len(t.result.Failures))
}

// embedAll embeds chunks in generation order. A failed chunk is skipped and
// ids are assigned only to embedded chunks, so they stay contiguous.
func (t *task) embedAll(ctx context.Context, chunks iter.Seq[core.Chunk]) {
	fileName := t.result.Task.FileName()
	source := t.result.Task.SourceName()
	id := 0

	for chunk := range chunks {
		t.result.Chunks++

		if err := ctx.Err(); err != nil {
			se := core.NewStageError(core.StageEmbed, fileName, err)
			se.Chunk = chunk.Seq
			t.record(se)
			return
		}

		vector, err := t.components.Embedder.Embed(ctx, core.EmbeddingInput(fileName, chunk.Text))
		if err != nil {
			se := core.NewStageError(core.StageEmbed, fileName, err)
			se.Chunk = chunk.Seq
			t.record(se)
			continue
		}

		t.result.Records = append(t.result.Records, core.ChunkRecord{
			FileName:    fileName,
			LastUpdated: core.NewTimestamp(t.now()),
			ChunkID:     core.FormatChunkID(id),
			Chunk:       chunk.Text,
			Vector:      vector,
			Source:      source,
			Headings:    chunk.Headings,
		})
		id++
	}
}

func (t *task) enter(state core.State, stage core.Stage) {
	t.result.State = state
	t.stage = stage
}

// record logs a non-terminal stage failure and keeps it on the result.
func (t *task) record(se *core.StageError) {
	t.result.Failures = append(t.result.Failures, se)
	attrs := []any{"stage", se.Stage.String(), "err", se.Err}
	if se.Chunk >= 0 {
		attrs = append(attrs, "chunk", se.Chunk)
	}
	t.logger.Error("stage failed", attrs...)
}

// fail records err against the current stage and ends the task.
func (t *task) fail(err error) {
	t.record(core.NewStageError(t.stage, t.result.Task.FileName(), err))
	t.result.State = core.StateFailed
	t.result.FailedStage = t.stage
}
