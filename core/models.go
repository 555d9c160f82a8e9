package core

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the wire format of ChunkRecord.LastUpdated:
// UTC with millisecond precision and a literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FileTask identifies one input file. It is created at discovery time and
// consumed exactly once by the file task runner.
type FileTask struct {
	// Path is the location of the file on disk.
	Path string
	// RelPath is Path relative to the input directory, using the host separator.
	RelPath string
}

// FileName returns the file's base name including its extension.
func (t FileTask) FileName() string {
	return filepath.Base(t.Path)
}

// BaseName returns the file's base name with its extension stripped.
func (t FileTask) BaseName() string {
	name := t.FileName()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SourceName identifies the file within the input directory: RelPath with
// forward slashes, or the base name when RelPath is unset. Records and index
// keys are scoped by it, so equal base names in different directories stay
// distinct.
func (t FileTask) SourceName() string {
	if t.RelPath == "" {
		return t.FileName()
	}
	return filepath.ToSlash(t.RelPath)
}

// TextPath returns the relative path of the raw text artifact: RelPath with
// its extension replaced by .txt.
func (t FileTask) TextPath() string {
	return t.ArtifactStem() + ".txt"
}

// ManifestPath returns the relative path of the JSON manifest: RelPath with
// its extension replaced by .json. For top-level files this is
// <base name>.json.
func (t FileTask) ManifestPath() string {
	return t.ArtifactStem() + ".json"
}

// ArtifactStem is the relative artifact path without extension. Two tasks
// with the same stem would write the same artifacts.
func (t FileTask) ArtifactStem() string {
	rel := t.RelPath
	if rel == "" {
		rel = t.FileName()
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// EndpointCredential is one (address, secret) pair from the extraction
// endpoint pool. Values are immutable after configuration load.
type EndpointCredential struct {
	Endpoint string
	Key      string
}

// String returns the endpoint address. The key is never included.
func (c EndpointCredential) String() string {
	return c.Endpoint
}

// Heading is one entry of a section's heading lineage.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Section is a contiguous span of extracted text together with the heading
// lineage active at that point (0 to 3 entries, outermost first).
type Section struct {
	Headings []Heading
	Content  string
}

// Chunk is a token-bounded span of a Section's content.
type Chunk struct {
	// Seq is the chunk's position in generation order within its file.
	Seq      int
	Text     string
	Headings []Heading
}

// ChunkRecord is the unit persisted to the manifest and uploaded to the
// search index. It is immutable once created.
type ChunkRecord struct {
	FileName    string    `json:"file_name"`
	LastUpdated Timestamp `json:"last_updated"`
	ChunkID     string    `json:"chunk_id"`
	Chunk       string    `json:"chunk"`
	Vector      []float32 `json:"vector"`

	// Source is the FileTask.SourceName of the originating file. Empty means
	// FileName. It is not part of the manifest.
	Source string `json:"-"`

	// Headings carries section lineage to index backends that store metadata.
	// It is not part of the manifest.
	Headings []Heading `json:"-"`
}

// SourceName returns Source, falling back to FileName.
func (r *ChunkRecord) SourceName() string {
	if r.Source != "" {
		return r.Source
	}
	return r.FileName
}

// Key returns the deterministic document key of the record.
func (r *ChunkRecord) Key() string {
	return RecordKey(r.SourceName(), r.ChunkID)
}

// EmbeddingInput is the text sent to the embedding service for one chunk.
func EmbeddingInput(fileName, chunkText string) string {
	return "File Name: " + fileName + "\n" + chunkText
}

// SearchResult is a stored record and its similarity to a query.
type SearchResult struct {
	Record ChunkRecord
	Score  float32
}

// Timestamp is a UTC instant serialized with TimestampLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp converts t to UTC and truncates it to millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// String formats the timestamp with TimestampLayout.
func (ts Timestamp) String() string {
	return ts.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		ts.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return err
	}
	ts.Time = t
	return nil
}

// State is a position in the per-file processing state machine.
type State int

const (
	StateDiscovered State = iota
	StateExtracting
	StateExtracted
	StateChunking
	StateEmbedding
	StateAssembled
	StateUploading
	StatePersisted
	StateFailed
)

var stateNames = [...]string{
	StateDiscovered: "discovered",
	StateExtracting: "extracting",
	StateExtracted:  "extracted",
	StateChunking:   "chunking",
	StateEmbedding:  "embedding",
	StateAssembled:  "assembled",
	StateUploading:  "uploading",
	StatePersisted:  "persisted",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// Stage names a unit of work inside the file task runner.
type Stage int

const (
	StageExtract Stage = iota + 1
	StagePersistText
	StageChunk
	StageEmbed
	StageUpload
	StagePersistManifest
)

func (s Stage) String() string {
	switch s {
	case StageExtract:
		return "extract"
	case StagePersistText:
		return "persist_text"
	case StageChunk:
		return "chunk"
	case StageEmbed:
		return "embed"
	case StageUpload:
		return "upload"
	case StagePersistManifest:
		return "persist_manifest"
	default:
		return "unknown"
	}
}

// Sentinel returns the taxonomy error that failures of this stage match.
func (s Stage) Sentinel() error {
	switch s {
	case StageExtract:
		return ErrExtraction
	case StageChunk:
		return ErrSectionSplit
	case StageEmbed:
		return ErrEmbedding
	case StageUpload:
		return ErrUpload
	case StagePersistText, StagePersistManifest:
		return ErrPersistence
	default:
		return nil
	}
}

// FileResult aggregates the outcome of one FileTask: the records produced in
// generation order and every stage failure encountered along the way.
type FileResult struct {
	Task     FileTask
	State    State
	Records  []ChunkRecord
	Failures []*StageError
	// Chunks is the number of chunks generated, including skipped ones.
	Chunks int
	// FailedStage is set when State is StateFailed.
	FailedStage Stage
	Duration    time.Duration
}

// Failed reports whether the task ended in StateFailed.
func (r *FileResult) Failed() bool {
	return r.State == StateFailed
}

// Err joins all recorded failures, or returns nil if there were none.
func (r *FileResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
