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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docindex/core"
)

// Store is an index whose records can be enumerated and replaced per file.
type Store interface {
	Files(ctx context.Context) ([]string, error)
	Records(ctx context.Context, source string) ([]core.ChunkRecord, error)
	Upload(ctx context.Context, records []core.ChunkRecord) error
}

// Embedder produces the vector for one chunk's embedding input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Stats summarizes one run.
type Stats struct {
	Files    int
	Records  int
	Failed   int
	Duration time.Duration
}

// Reembedder orchestrates re-embedding every file of a Store.
type Reembedder struct {
	store          Store
	embedder       Embedder
	progress       io.Writer
	reportInterval int
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithProgress prints a progress line to w every interval files.
func WithProgress(w io.Writer, interval int) Option {
	return func(r *Reembedder) error {
		r.progress = w
		r.reportInterval = interval
		return nil
	}
}

// WithClock sets the time source for last_updated.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reembedder) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReembedder creates a new reembedder.
func NewReembedder(store Store, embedder Embedder, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Reembedder{
		store:          store,
		embedder:       embedder,
		progress:       io.Discard,
		reportInterval: 10,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reembedder")
	return r, nil
}

// Run re-embeds every file. A file that fails is left unchanged and counted
// in Stats.Failed; only listing the files or cancellation aborts the run.
func (r *Reembedder) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	files, err := r.store.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if len(files) == 0 {
		r.logger.Info("no records found in index")
		return stats, nil
	}

	r.logger.Info("starting reembedding", "files", len(files))
	tracker := NewProgressTracker(r.progress, len(files), r.reportInterval)
	tracker.Start()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		n, err := r.reembedFile(ctx, file)
		stats.Files++
		if err != nil {
			if ctx.Err() != nil {
				stats.Duration = time.Since(start)
				return stats, ctx.Err()
			}
			stats.Failed++
			r.logger.Warn("file left unchanged", "file", file, "err", err)
			tracker.Advance(0, true)
			continue
		}
		stats.Records += n
		tracker.Advance(n, false)
	}

	tracker.Finish()
	stats.Duration = time.Since(start)
	r.logger.Info("reembedding complete",
		"files", stats.Files,
		"records", stats.Records,
		"failed", stats.Failed,
		"duration", stats.Duration.Round(time.Millisecond),
	)
	return stats, nil
}

func (r *Reembedder) reembedFile(ctx context.Context, file string) (int, error) {
	records, err := r.store.Records(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("read records: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	updated := core.NewTimestamp(r.now())
	for i := range records {
		vec, err := r.embedder.Embed(ctx, core.EmbeddingInput(records[i].FileName, records[i].Chunk))
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", records[i].ChunkID, err)
		}
		records[i].Vector = vec
		records[i].LastUpdated = updated
	}

	if err := r.store.Upload(ctx, records); err != nil {
		return 0, fmt.Errorf("write records: %w", err)
	}
	return len(records), nil
}
