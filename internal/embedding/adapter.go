package embedding

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"venue-enrichment/internal/models"
	errs "venue-enrichment/pkg/errors"
)

// Embedder produces a fixed-dimension vector for a text blob.
type Embedder interface {
	Embed(ctx context.Context, text string) (*models.EmbeddingVector, error)
}

// EmbeddingsClient is the slice of the OpenAI client the adapter needs.
type EmbeddingsClient interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Adapter calls the upstream embeddings endpoint and L2-normalizes the
// result so cosine similarity reduces to a dot product downstream.
type Adapter struct {
	client EmbeddingsClient
	model  openai.EmbeddingModel
}

func NewAdapter(client EmbeddingsClient, model string) *Adapter {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Adapter{client: client, model: openai.EmbeddingModel(model)}
}

func (a *Adapter) Embed(ctx context.Context, text string) (*models.EmbeddingVector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.NewEmbedding("embedding.Embed", errs.EmbeddingEmptyInput, "text is empty", nil)
	}

	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.NewEmbedding("embedding.Embed", errs.EmbeddingUpstreamTimeout, "embeddings call timed out", err)
		}
		return nil, errs.NewEmbedding("embedding.Embed", errs.EmbeddingUpstreamUnavailable, "embeddings call failed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errs.NewEmbedding("embedding.Embed", errs.EmbeddingUpstreamUnavailable, "embeddings response has no data", nil)
	}

	values := make([]float32, len(resp.Data[0].Embedding))
	copy(values, resp.Data[0].Embedding)
	Normalize(values)

	return &models.EmbeddingVector{
		Values:   values,
		TextHash: TextHash(text),
	}, nil
}

// Normalize scales the vector to unit length in place. Zero vectors are
// left untouched.
func Normalize(values []float32) {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range values {
		values[i] = float32(float64(values[i]) / norm)
	}
}

// TextHash identifies the originating text of a vector.
func TextHash(text string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(text)))
}
