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


// Package core defines the domain types shared by every stage of the
// document indexing pipeline.
//
// A FileTask names one discovered input file. The extraction stage turns it
// into markdown-like text, the chunking stage splits that text into Sections
// and then token-bounded Chunks, and the embedding stage turns each Chunk into
// an immutable ChunkRecord. The records of one file, together with any stage
// failures, make up its FileResult.
//
// # Errors
//
// Stage failures are reported as *StageError values. Each stage maps to one of
// the sentinel errors (ErrExtraction, ErrSectionSplit, ErrEmbedding, ErrUpload,
// ErrPersistence) so callers can branch with errors.Is:
//
//	if errors.Is(err, core.ErrEmbedding) {
//		// chunk skipped, continue with the next one
//	}
//
// Collaborator adapters tag errors with Transient or Permanent so that retry
// loops can stop early on failures that cannot succeed on a later attempt.
package core
