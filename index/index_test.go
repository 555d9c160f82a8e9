package index

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
)

func TestUploadError(t *testing.T) {
	err := &UploadError{Total: 3, Failed: map[string]string{"b": "too large", "a": "invalid"}}
	assert.Equal(t, "2 of 3 documents rejected (a: invalid; b: too large)", err.Error())
	assert.True(t, errors.Is(err, core.ErrUpload))
}

func TestNop(t *testing.T) {
	var idx Index = Nop{}
	assert.NoError(t, idx.Upload(context.Background(), []core.ChunkRecord{{FileName: "a"}}))
	assert.NoError(t, idx.Close())
}
