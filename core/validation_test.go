package core

import (
	"errors"
	"testing"
)

func validRecord(id string) ChunkRecord {
	return ChunkRecord{
		FileName: "doc.pdf",
		ChunkID:  id,
		Chunk:    "text",
		Vector:   []float32{1},
	}
}

func TestValidateChunkRecord(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *ChunkRecord)
		wantErr error
	}{
		{
			name:    "valid record",
			mutate:  func(r *ChunkRecord) {},
			wantErr: nil,
		},
		{
			name:    "empty file name",
			mutate:  func(r *ChunkRecord) { r.FileName = "" },
			wantErr: ErrEmptyFileName,
		},
		{
			name:    "non numeric id",
			mutate:  func(r *ChunkRecord) { r.ChunkID = "abc" },
			wantErr: ErrInvalidChunkID,
		},
		{
			name:    "negative id",
			mutate:  func(r *ChunkRecord) { r.ChunkID = "-1" },
			wantErr: ErrInvalidChunkID,
		},
		{
			name:    "empty chunk",
			mutate:  func(r *ChunkRecord) { r.Chunk = "" },
			wantErr: ErrEmptyChunk,
		},
		{
			name:    "missing vector",
			mutate:  func(r *ChunkRecord) { r.Vector = nil },
			wantErr: ErrEmptyVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord("0")
			tt.mutate(&r)
			err := ValidateChunkRecord(&r)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunkRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunkRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidChunkRecord) {
				t.Errorf("ValidateChunkRecord() error = %v, want wrapped ErrInvalidChunkRecord", err)
			}
		})
	}

	if err := ValidateChunkRecord(nil); !errors.Is(err, ErrInvalidChunkRecord) {
		t.Errorf("ValidateChunkRecord(nil) error = %v", err)
	}
}

func TestValidateFileRecords(t *testing.T) {
	ok := []ChunkRecord{validRecord("0"), validRecord("1"), validRecord("2")}
	if err := ValidateFileRecords(ok); err != nil {
		t.Fatalf("ValidateFileRecords() unexpected error = %v", err)
	}

	if err := ValidateFileRecords(nil); err != nil {
		t.Fatalf("ValidateFileRecords(nil) unexpected error = %v", err)
	}

	gap := []ChunkRecord{validRecord("0"), validRecord("2")}
	if err := ValidateFileRecords(gap); !errors.Is(err, ErrNonContiguousIDs) {
		t.Errorf("ValidateFileRecords(gap) error = %v, want ErrNonContiguousIDs", err)
	}

	mixed := []ChunkRecord{validRecord("0"), validRecord("1")}
	mixed[1].FileName = "other.pdf"
	if err := ValidateFileRecords(mixed); !errors.Is(err, ErrInvalidChunkRecord) {
		t.Errorf("ValidateFileRecords(mixed) error = %v, want ErrInvalidChunkRecord", err)
	}
}

func TestChunkIDRoundTrip(t *testing.T) {
	for _, id := range []int{0, 1, 42, 1000} {
		got, err := ParseChunkID(FormatChunkID(id))
		if err != nil || got != id {
			t.Errorf("ParseChunkID(FormatChunkID(%d)) = %d, %v", id, got, err)
		}
	}
}
