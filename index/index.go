package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/docindex/core"
)

// Index receives the records of one file in a single call.
// Implementations must be safe for concurrent use by multiple file tasks.
type Index interface {
	Upload(ctx context.Context, records []core.ChunkRecord) error
	Close() error
}

// ErrClosed is returned when uploading to a closed index.
var ErrClosed = errors.New("index closed")

// UploadError reports documents the index rejected individually.
// Failed maps record keys to the service's reason.
type UploadError struct {
	Total  int
	Failed map[string]string
}

func (e *UploadError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Failed[k])
	}
	return fmt.Sprintf("%d of %d documents rejected (%s)", len(e.Failed), e.Total, strings.Join(parts, "; "))
}

func (e *UploadError) Unwrap() error { return core.ErrUpload }

// Nop is an Index that accepts and discards every upload.
type Nop struct{}

func (Nop) Upload(context.Context, []core.ChunkRecord) error { return nil }
func (Nop) Close() error                                    { return nil }

var _ Index = Nop{}
