package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), core.KindPermanent},
		{"unauthenticated", status.Error(codes.Unauthenticated, "key"), core.KindPermanent},
		{"permission denied", status.Error(codes.PermissionDenied, "no"), core.KindPermanent},
		{"not found", status.Error(codes.NotFound, "model"), core.KindPermanent},
		{"unavailable", status.Error(codes.Unavailable, "down"), core.KindTransient},
		{"exhausted", status.Error(codes.ResourceExhausted, "quota"), core.KindTransient},
		{"internal", status.Error(codes.Internal, "oops"), core.KindTransient},
		{"wrapped status", fmt.Errorf("call: %w", status.Error(codes.Unavailable, "down")), core.KindTransient},
		{"plain error", errors.New("plain"), core.KindUnknown},
		{"canceled", context.Canceled, core.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.want, core.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(context.Background(), &ai.Config{Provider: ai.ProviderGemini, EmbeddingModel: "text-embedding-004"})
	assert.Error(t, err, "api key is required")

	_, err = NewProvider(context.Background(), ai.DefaultConfig())
	assert.Error(t, err, "provider must be gemini")
}
