package extract

import (
	"context"
	"errors"

	"github.com/poiesic/docindex/core"
)

// Extractor turns one file into text.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Extract reads the file at path and returns its text. cred names the
	// remote endpoint to use; extractors that run locally ignore it.
	Extract(ctx context.Context, path string, cred core.EndpointCredential) (string, error)
}

var (
	// ErrUnsupportedFormat is returned for file types an extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyDocument is returned when extraction yields no text at all.
	ErrEmptyDocument = errors.New("document produced no text")
)
