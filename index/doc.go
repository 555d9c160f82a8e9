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


// Package index publishes ChunkRecords to a search index.
//
// Implementations live in sub-packages: azuresearch pushes documents to an
// Azure AI Search index, badger keeps a local embedded index that
// also supports similarity queries, and pgvector writes to PostgreSQL. Nop
// discards uploads for runs that only need local artifacts.
//
// Uploads are keyed by core.RecordKey(source, chunk_id), where source is the
// file's path relative to the input directory. Sending the same records twice
// replaces rather than duplicates them. Delivery is at-least-once per file.
package index
