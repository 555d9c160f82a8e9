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


package core

import (
	"fmt"
	"strconv"
)

// ValidateChunkRecord validates a ChunkRecord according to domain rules.
//
// Validation rules:
//   - FileName must not be empty
//   - ChunkID must be a non-negative decimal integer
//   - Chunk must not be empty
//   - Vector must not be empty
func ValidateChunkRecord(record *ChunkRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidChunkRecord)
	}

	if record.FileName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyFileName)
	}

	if _, err := ParseChunkID(record.ChunkID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, err)
	}

	if record.Chunk == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyChunk)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunkRecord, ErrEmptyVector)
	}

	return nil
}

// ValidateFileRecords checks every record of one file and that their ids are
// exactly 0..n-1 in order.
func ValidateFileRecords(records []ChunkRecord) error {
	for i := range records {
		if err := ValidateChunkRecord(&records[i]); err != nil {
			return err
		}
		id, _ := ParseChunkID(records[i].ChunkID)
		if id != i {
			return fmt.Errorf("%w: position %d has id %d", ErrNonContiguousIDs, i, id)
		}
		if records[i].FileName != records[0].FileName {
			return fmt.Errorf("%w: mixed file names %q and %q",
				ErrInvalidChunkRecord, records[0].FileName, records[i].FileName)
		}
	}
	return nil
}

// FormatChunkID renders a chunk id in its string form.
func FormatChunkID(id int) string {
	return strconv.Itoa(id)
}

// ParseChunkID parses a chunk id produced by FormatChunkID.
func ParseChunkID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChunkID, s)
	}
	return id, nil
}
