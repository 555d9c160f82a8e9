package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// RecordKey derives a deterministic document key from a source name and
// chunk id. Identical inputs always produce identical keys, so re-indexing a
// file overwrites its previous records instead of duplicating them.
// The key only uses characters accepted by search index key fields.
func RecordKey(source, chunkID string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(chunkID))
	return hex.EncodeToString(h.Sum(nil))
}
