package chunking

import "errors"

var (
	// ErrInvalidChunkSize is returned when the window size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrInvalidOverlap is returned when the overlap is negative or not smaller than the window size.
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")

	// ErrTokenizerRequired is returned when no tokenizer is provided.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrInvalidText is returned for input that is not valid UTF-8.
	ErrInvalidText = errors.New("text is not valid UTF-8")

	// ErrUnknownEncoding is returned for an unsupported tokenizer encoding name.
	ErrUnknownEncoding = errors.New("unknown tokenizer encoding")
)
