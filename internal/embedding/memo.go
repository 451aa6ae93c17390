package embedding

import (
	"context"

	"venue-enrichment/internal/models"
)

// Memo caches embeddings by text hash for the lifetime of one pipeline run,
// so identical text is never embedded twice within a run. It carries no
// cross-run state; the engine creates a fresh Memo per run. Not safe for
// concurrent use; a run is processed by a single worker.
type Memo struct {
	inner Embedder
	cache map[string]*models.EmbeddingVector
}

func NewMemo(inner Embedder) *Memo {
	return &Memo{inner: inner, cache: make(map[string]*models.EmbeddingVector)}
}

func (m *Memo) Embed(ctx context.Context, text string) (*models.EmbeddingVector, error) {
	key := TextHash(text)
	if vec, ok := m.cache[key]; ok {
		return vec, nil
	}
	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.cache[key] = vec
	return vec, nil
}
