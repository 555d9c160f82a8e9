// Package ingestion runs the per-file indexing pipeline.
//
// Discover enumerates the input files. A Pipeline dispatches one task per
// file onto a bounded worker pool and collects the FileResults as tasks
// finish. Each task is executed by a Runner, which walks the file through
// extraction, text persistence, chunking, embedding, upload and manifest
// persistence.
//
// Failures are isolated per stage: extraction and chunking failures end the
// file's task, an embedding failure skips only the affected chunk, and
// persistence or upload failures are recorded without undoing earlier work.
// No failure of one file affects any other file in the batch.
package ingestion
