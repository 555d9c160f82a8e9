package chunking

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text to subword tokens and back.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Forker is implemented by tokenizers that accumulate state while encoding.
// Chunker encodes each section with its own Fork, so that state lives only
// as long as the section.
type Forker interface {
	Fork() Tokenizer
}

// EncodingWords selects WordTokenizer in NewTokenizer.
const EncodingWords = "words"

// NewTokenizer returns a tokenizer for the named encoding: EncodingWords or
// any tiktoken encoding such as "cl100k_base".
func NewTokenizer(encoding string) (Tokenizer, error) {
	if encoding == EncodingWords {
		return NewWordTokenizer(), nil
	}
	return NewTiktokenTokenizer(encoding)
}

// TiktokenTokenizer wraps a tiktoken BPE encoding.
type TiktokenTokenizer struct {
	tk *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named BPE encoding. The encoding file is
// fetched and cached by tiktoken-go on first use.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownEncoding, encoding, err)
	}
	return &TiktokenTokenizer{tk: tk}, nil
}

// Encode tokenizes text. Special-token text is encoded as ordinary text.
func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.tk.EncodeOrdinary(text)
}

// Decode reverses Encode.
func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.tk.Decode(tokens)
}

// WordTokenizer treats every whitespace-separated word as one token. Decode
// joins words with single spaces. It needs no model files, which makes it
// useful offline and in tests.
//
// Ids index a vocabulary that grows with every distinct word encoded, so a
// long-lived WordTokenizer should only be used through Fork.
type WordTokenizer struct {
	mu    sync.RWMutex
	ids   map[string]int
	words []string
}

// NewWordTokenizer creates an empty word vocabulary.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{ids: make(map[string]int)}
}

// Fork returns a WordTokenizer with an empty vocabulary.
func (w *WordTokenizer) Fork() Tokenizer {
	return NewWordTokenizer()
}

// Len returns the vocabulary size.
func (w *WordTokenizer) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.words)
}

// Encode assigns each distinct word a stable id.
func (w *WordTokenizer) Encode(text string) []int {
	fields := strings.Fields(text)
	tokens := make([]int, len(fields))

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, f := range fields {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.words)
			w.ids[f] = id
			w.words = append(w.words, f)
		}
		tokens[i] = id
	}
	return tokens
}

// Decode maps ids back to words. Unknown ids are skipped.
func (w *WordTokenizer) Decode(tokens []int) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(w.words) {
			parts = append(parts, w.words[id])
		}
	}
	return strings.Join(parts, " ")
}
