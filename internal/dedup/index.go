package dedup

import (
	"sort"
	"sync"

	"venue-enrichment/internal/models"
)

// Match is one nearest-neighbor hit.
type Match struct {
	VenueID    string
	Similarity float64
}

// Index is an exact nearest-neighbor index over published venue embeddings.
// Brute-force scan; venue counts stay small enough that approximate
// structures are not worth the complexity. Vectors are L2-normalized by
// the embedding adapter, so cosine similarity reduces to a dot product.
type Index struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

func NewIndex() *Index {
	return &Index{entries: make(map[string][]float32)}
}

// Insert registers a published venue's embedding. Re-inserting a venue ID
// replaces its vector.
func (idx *Index) Insert(venueID string, vec *models.EmbeddingVector) {
	if vec == nil || len(vec.Values) == 0 {
		return
	}
	values := make([]float32, len(vec.Values))
	copy(values, vec.Values)

	idx.mu.Lock()
	idx.entries[venueID] = values
	idx.mu.Unlock()
}

// Query returns the topK most similar venues, highest similarity first.
// Ties are broken by lowest venue ID for deterministic ordering.
func (idx *Index) Query(vec *models.EmbeddingVector, topK int) []Match {
	if vec == nil || len(vec.Values) == 0 || topK <= 0 {
		return nil
	}

	idx.mu.RLock()
	matches := make([]Match, 0, len(idx.entries))
	for id, entry := range idx.entries {
		if len(entry) != len(vec.Values) {
			continue
		}
		matches = append(matches, Match{VenueID: id, Similarity: dot(entry, vec.Values)})
	}
	idx.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].VenueID < matches[j].VenueID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Len reports how many venues the index holds.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
