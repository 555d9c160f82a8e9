package ingestion

import "errors"

var (
	// ErrSelectorRequired is returned when an endpoint selector is not provided.
	ErrSelectorRequired = errors.New("endpoint selector required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrEmbedderRequired is returned when an embedding client is not provided.
	ErrEmbedderRequired = errors.New("embedding client required")

	// ErrStoreRequired is returned when an artifact store is not provided.
	ErrStoreRequired = errors.New("artifact store required")

	// ErrRunnerRequired is returned when a pipeline has no runner.
	ErrRunnerRequired = errors.New("runner required")

	// ErrNotDirectory is returned when the input path is not a directory.
	ErrNotDirectory = errors.New("input path is not a directory")

	// ErrArtifactCollision is returned when two input files would write the
	// same text and manifest artifacts, such as report.pdf and report.docx.
	ErrArtifactCollision = errors.New("input files share an artifact path")

	// errPanic marks a stage that panicked.
	errPanic = errors.New("panic during stage")
)
