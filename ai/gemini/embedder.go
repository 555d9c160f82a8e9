// Package gemini provides an ai.Embedder backed by the Google Generative
// Language API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrEmptyEmbedding is returned when the service answers without a vector.
var ErrEmptyEmbedding = errors.New("gemini returned no embedding")

// Embedder implements ai.Embedder and ai.Provider using Gemini embedding models.
type Embedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	logger *slog.Logger
}

// NewProvider creates a Gemini client for config.EmbeddingModel.
// Documents are embedded with the retrieval-document task type.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(ctx context.Context, config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderGemini {
		return nil, fmt.Errorf("gemini: unexpected provider %q", config.Provider)
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.EmbeddingHost != "" {
		opts = append(opts, option.WithEndpoint(config.EmbeddingHost))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := client.EmbeddingModel(config.EmbeddingModel)
	model.TaskType = genai.TaskTypeRetrievalDocument

	return &Embedder{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "gemini-embedder"),
	}, nil
}

// Embedder returns e itself.
func (e *Embedder) Embedder() ai.Embedder {
	return e
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, core.Transient(ErrEmptyEmbedding)
	}
	return resp.Embedding.Values, nil
}

// EmbedTexts batches all texts in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify(err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		out = append(out, emb.Values)
	}
	if len(out) != len(texts) {
		return nil, core.Transient(fmt.Errorf("gemini returned %d embeddings for %d texts", len(out), len(texts)))
	}
	return out, nil
}

// classify tags gRPC failures by status code. Errors without a status and
// context errors are returned unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument,
		codes.Unauthenticated,
		codes.PermissionDenied,
		codes.NotFound,
		codes.FailedPrecondition,
		codes.Unimplemented,
		codes.OutOfRange:
		return core.Permanent(err)
	case codes.Unavailable,
		codes.ResourceExhausted,
		codes.DeadlineExceeded,
		codes.Aborted,
		codes.Internal,
		codes.Unknown:
		return core.Transient(err)
	default:
		return err
	}
}
