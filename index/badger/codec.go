package badger

import (
	"errors"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docindex/core"
)

// ErrCorruptRecord is returned when a stored value cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt stored record")

// storedRecord is the value format. Unlike the manifest it keeps headings
// and the source name.
//
// Layout, in order: source, file name, last_updated as Unix milliseconds,
// chunk id, chunk, vector (length then float32s), headings (length then
// level/text pairs). Strings are length-prefixed by mus-go.
type storedRecord struct {
	Source      string
	FileName    string
	LastUpdated core.Timestamp
	ChunkID     string
	Chunk       string
	Vector      []float32
	Headings    []core.Heading
}

func toStored(r core.ChunkRecord) storedRecord {
	return storedRecord{
		Source:      r.SourceName(),
		FileName:    r.FileName,
		LastUpdated: r.LastUpdated,
		ChunkID:     r.ChunkID,
		Chunk:       r.Chunk,
		Vector:      r.Vector,
		Headings:    r.Headings,
	}
}

func (s storedRecord) record() core.ChunkRecord {
	return core.ChunkRecord{
		FileName:    s.FileName,
		LastUpdated: s.LastUpdated,
		ChunkID:     s.ChunkID,
		Chunk:       s.Chunk,
		Vector:      s.Vector,
		Source:      s.Source,
		Headings:    s.Headings,
	}
}

type serializer[T any] interface {
	Marshal(v T, bs []byte) int
	Unmarshal(bs []byte) (T, int, error)
	Size(v T) int
}

// Size returns the encoded length of s.
func (s storedRecord) Size() int {
	size := ord.String.Size(s.Source) +
		ord.String.Size(s.FileName) +
		varint.Int64.Size(s.LastUpdated.UnixMilli()) +
		ord.String.Size(s.ChunkID) +
		ord.String.Size(s.Chunk)

	size += varint.PositiveInt.Size(len(s.Vector))
	for _, f := range s.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.PositiveInt.Size(len(s.Headings))
	for _, h := range s.Headings {
		size += varint.Int.Size(h.Level) + ord.String.Size(h.Text)
	}
	return size
}

// Marshal encodes s into a new buffer.
func (s storedRecord) Marshal() []byte {
	e := &encoder{buf: make([]byte, s.Size())}
	put(e, ord.String, s.Source)
	put(e, ord.String, s.FileName)
	put(e, varint.Int64, s.LastUpdated.UnixMilli())
	put(e, ord.String, s.ChunkID)
	put(e, ord.String, s.Chunk)

	put(e, varint.PositiveInt, len(s.Vector))
	for _, f := range s.Vector {
		put(e, raw.Float32, f)
	}
	put(e, varint.PositiveInt, len(s.Headings))
	for _, h := range s.Headings {
		put(e, varint.Int, h.Level)
		put(e, ord.String, h.Text)
	}
	return e.buf[:e.n]
}

// unmarshalStoredRecord decodes a value written by Marshal.
func unmarshalStoredRecord(bs []byte) (storedRecord, error) {
	var s storedRecord
	d := &decoder{bs: bs}

	s.Source = get(d, ord.String)
	s.FileName = get(d, ord.String)
	ms := get(d, varint.Int64)
	s.ChunkID = get(d, ord.String)
	s.Chunk = get(d, ord.String)

	// float32 is 4 bytes on the wire
	if n := d.length(4); n > 0 {
		s.Vector = make([]float32, n)
		for i := range s.Vector {
			s.Vector[i] = get(d, raw.Float32)
		}
	}
	// a heading is at least a level byte and an empty text
	if n := d.length(2); n > 0 {
		s.Headings = make([]core.Heading, n)
		for i := range s.Headings {
			s.Headings[i].Level = get(d, varint.Int)
			s.Headings[i].Text = get(d, ord.String)
		}
	}

	if d.err == nil && d.n != len(bs) {
		d.err = ErrCorruptRecord
	}
	if d.err != nil {
		if !errors.Is(d.err, ErrCorruptRecord) {
			d.err = fmt.Errorf("%w: %w", ErrCorruptRecord, d.err)
		}
		return storedRecord{}, d.err
	}
	s.LastUpdated = core.NewTimestamp(time.UnixMilli(ms))
	return s, nil
}

type encoder struct {
	buf []byte
	n   int
}

func put[T any](e *encoder, ser serializer[T], v T) {
	e.n += ser.Marshal(v, e.buf[e.n:])
}

// decoder reads fields in order and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func get[T any](d *decoder, ser serializer[T]) T {
	var v T
	if d.err != nil {
		return v
	}
	var n int
	v, n, d.err = ser.Unmarshal(d.bs[d.n:])
	d.n += n
	return v
}

// length reads a slice length and checks it against the remaining input,
// given the minimum encoded size of one element.
func (d *decoder) length(minElem int) int {
	n := get(d, varint.PositiveInt)
	if d.err != nil {
		return 0
	}
	if n < 0 || n*minElem > len(d.bs)-d.n {
		d.err = ErrCorruptRecord
		return 0
	}
	return n
}
