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


package chunking

import (
	"iter"
	"log/slog"
	"unicode/utf8"

	"github.com/poiesic/docindex/core"
)

// Chunker applies section splitting followed by token windowing.
// It holds no per-file state and is safe for concurrent use.
type Chunker struct {
	tokenizer Tokenizer
	size      int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// ValidateWindow checks chunk size and overlap bounds.
func ValidateWindow(size, overlap int) error {
	if size <= 0 {
		return ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= size {
		return ErrInvalidOverlap
	}
	return nil
}

// NewChunker creates a Chunker with the given window size and overlap, both
// in tokens.
func NewChunker(tokenizer Tokenizer, size, overlap int, opts ...Option) (*Chunker, error) {
	if tokenizer == nil {
		return nil, ErrTokenizerRequired
	}
	if err := ValidateWindow(size, overlap); err != nil {
		return nil, err
	}

	c := &Chunker{
		tokenizer: tokenizer,
		size:      size,
		overlap:   overlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Size returns the window size in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the window overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }

// Sections runs the section split stage.
func (c *Chunker) Sections(text string) ([]core.Section, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}
	return SplitSections(text), nil
}

// SectionTexts yields the decoded text of every token window of one section.
func (c *Chunker) SectionTexts(section core.Section) iter.Seq[string] {
	return func(yield func(string) bool) {
		tok := c.tokenizer
		if f, ok := tok.(Forker); ok {
			tok = f.Fork()
		}
		tokens := tok.Encode(section.Content)
		for w := range Windows(len(tokens), c.size, c.overlap) {
			if !yield(tok.Decode(tokens[w.Start:w.End])) {
				return
			}
		}
	}
}

// Chunks yields the chunks of all sections in generation order: section order,
// then window order. Seq starts at 0 and increases by one per chunk. Sections
// that produce no chunks are logged and skipped.
func (c *Chunker) Chunks(sections []core.Section) iter.Seq[core.Chunk] {
	return func(yield func(core.Chunk) bool) {
		seq := 0
		for i, section := range sections {
			produced := 0
			for text := range c.SectionTexts(section) {
				produced++
				if !yield(core.Chunk{Seq: seq, Text: text, Headings: section.Headings}) {
					return
				}
				seq++
			}
			if produced == 0 {
				c.logger.Info("section produced no chunks", "section", i, "headings", len(section.Headings))
			}
		}
	}
}

// Split runs both stages over text.
func (c *Chunker) Split(text string) (iter.Seq[core.Chunk], error) {
	sections, err := c.Sections(text)
	if err != nil {
		return nil, err
	}
	return c.Chunks(sections), nil
}
