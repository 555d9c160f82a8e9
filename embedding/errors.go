package embedding

import (
	"errors"
	"fmt"

	"github.com/poiesic/docindex/core"
)

// ErrEmbedderRequired is returned when no embedder is provided.
var ErrEmbedderRequired = errors.New("embedder required")

// Error reports a failed embedding after retries were exhausted or a
// permanent failure stopped them. It matches core.ErrEmbedding and unwraps
// to the last collaborator error.
type Error struct {
	Attempts  int
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	kind := "retries exhausted"
	if e.Permanent {
		kind = "permanent failure"
	}
	return fmt.Sprintf("embedding failed after %d attempt(s) (%s): %v", e.Attempts, kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{core.ErrEmbedding, e.Err}
}

// ErrEmptyVector is reported when the embedder returns no values.
var ErrEmptyVector = errors.New("embedder returned an empty vector")
