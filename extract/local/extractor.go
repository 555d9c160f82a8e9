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


package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/extract"
)

type formatFunc func(path string) (string, error)

// Extractor reads documents from the local filesystem.
type Extractor struct {
	formats map[string]formatFunc
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates a local extractor.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		formats: map[string]formatFunc{
			".pdf":      extractPDF,
			".docx":     extractDOCX,
			".html":     extractHTML,
			".htm":      extractHTML,
			".md":       readPlain,
			".markdown": readPlain,
			".txt":      readPlain,
			".csv":      readPlain,
		},
		logger: slog.Default().With("component", "local-extractor"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Supports reports whether the file extension can be extracted.
func (e *Extractor) Supports(path string) bool {
	_, ok := e.formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract implements extract.Extractor. The credential is ignored.
// Unsupported formats and unreadable documents are permanent failures.
func (e *Extractor) Extract(ctx context.Context, path string, _ core.EndpointCredential) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := e.formats[ext]
	if !ok {
		return "", core.Permanent(fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, ext))
	}

	text, err := fn(path)
	if err != nil {
		return "", core.Permanent(fmt.Errorf("extract %s: %w", filepath.Base(path), err))
	}

	e.logger.Debug("extracted document", "file", filepath.Base(path), "format", ext, "chars", len(text))
	return text, nil
}

func readPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// atxHeading renders a heading line, capping the level at 3.
func atxHeading(level int, text string) string {
	if level > 3 {
		level = 3
	}
	return strings.Repeat("#", level) + " " + text
}

// joinBlocks joins non-empty blocks with blank lines.
func joinBlocks(blocks []string) string {
	kept := blocks[:0]
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
