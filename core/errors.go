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
	"errors"
	"fmt"
)

// Stage failure taxonomy.
var (
	// ErrExtraction indicates the extraction collaborator failed for a file.
	ErrExtraction = errors.New("extraction failed")

	// ErrSectionSplit indicates the extracted text could not be chunked.
	ErrSectionSplit = errors.New("section split failed")

	// ErrEmbedding indicates an embedding failed permanently or exhausted its retries.
	ErrEmbedding = errors.New("embedding failed")

	// ErrUpload indicates the search index rejected or did not receive a batch.
	ErrUpload = errors.New("upload failed")

	// ErrPersistence indicates a local artifact could not be written.
	ErrPersistence = errors.New("persistence failed")
)

// Domain validation errors
var (
	// ErrInvalidChunkRecord indicates a ChunkRecord failed validation.
	ErrInvalidChunkRecord = errors.New("invalid chunk record")

	// ErrEmptyFileName indicates the FileName field is empty.
	ErrEmptyFileName = errors.New("file name cannot be empty")

	// ErrEmptyChunk indicates the Chunk text is empty.
	ErrEmptyChunk = errors.New("chunk cannot be empty")

	// ErrEmptyVector indicates the record carries no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidChunkID indicates a chunk id that is not a non-negative integer.
	ErrInvalidChunkID = errors.New("invalid chunk id")

	// ErrNonContiguousIDs indicates a file's chunk ids are not exactly 0..n-1.
	ErrNonContiguousIDs = errors.New("chunk ids are not contiguous")
)

// StageError records the failure of one stage for one file.
type StageError struct {
	Stage Stage
	File  string
	// Chunk is the generation sequence of the failing chunk, or -1.
	Chunk int
	Err   error
}

// NewStageError wraps err as a failure of stage for file.
func NewStageError(stage Stage, file string, err error) *StageError {
	return &StageError{Stage: stage, File: file, Chunk: -1, Err: err}
}

func (e *StageError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("%s %s chunk %d: %v", e.Stage, e.File, e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.File, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the failing stage.
func (e *StageError) Is(target error) bool {
	s := e.Stage.Sentinel()
	return s != nil && target == s
}

// ErrorKind classifies a collaborator failure for retry decisions.
type ErrorKind int

const (
	// KindUnknown is reported for untagged errors. Retry loops treat it as transient.
	KindUnknown ErrorKind = iota
	KindTransient
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

type kindError struct {
	kind ErrorKind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Transient tags err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: KindTransient, err: err}
}

// Permanent tags err as terminal. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: KindPermanent, err: err}
}

// KindOf returns the outermost kind tag found in err's chain.
func KindOf(err error) ErrorKind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// IsPermanent reports whether err was tagged with Permanent.
func IsPermanent(err error) bool {
	return KindOf(err) == KindPermanent
}

// ClassifyStatus tags err by HTTP status code: 408, 429 and 5xx are
// transient, every other status is permanent.
func ClassifyStatus(code int, err error) error {
	if code == 408 || code == 429 || code >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
