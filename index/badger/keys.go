package badger

import "bytes"

const chunkRecordPrefix = "chunkrec:"

// makeSourcePrefix returns the key prefix shared by one source file's records.
func makeSourcePrefix(source string) []byte {
	buf := make([]byte, 0, len(chunkRecordPrefix)+len(source)+1)
	buf = append(buf, chunkRecordPrefix...)
	buf = append(buf, source...)
	return append(buf, 0)
}

// makeChunkRecordKey generates the key for one record.
// Format: prefix source \x00 chunk_id
func makeChunkRecordKey(source, chunkID string) []byte {
	return append(makeSourcePrefix(source), chunkID...)
}

// sourceFromKey extracts the source name from a record key.
func sourceFromKey(key []byte) (string, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(chunkRecordPrefix))
	if !ok {
		return "", false
	}
	name, _, ok := bytes.Cut(rest, []byte{0})
	return string(name), ok
}
