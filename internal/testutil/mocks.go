package testutil

import (
	"context"
	"sync"

	"venue-enrichment/internal/embedding"
	"venue-enrichment/internal/models"
)

// MockPlaceMapper implements workflow.PlaceMapper for tests. Errs is
// consumed one per call; once drained, Result is returned.
type MockPlaceMapper struct {
	Mu     sync.Mutex
	Result *models.MappedPlaceAttributes
	Errs   []error
	Calls  int
}

func (m *MockPlaceMapper) MapPlace(ctx context.Context, sub models.VenueSubmission) (*models.MappedPlaceAttributes, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if m.Result != nil {
		return m.Result, nil
	}
	// default: minimal valid attributes
	return &models.MappedPlaceAttributes{
		PlaceID: "mock-place",
		Address: models.AddressParts{Formatted: sub.Address},
		Lat:     40.0,
		Lng:     -70.0,
	}, nil
}

// MockInferrer implements workflow.ActivityInferrer for tests. Errs is
// consumed one per call. StrictCalls counts invocations with the strict
// prompt variant.
type MockInferrer struct {
	Mu          sync.Mutex
	Candidates  []models.ActivityCandidate
	Errs        []error
	Calls       int
	StrictCalls int
}

func (m *MockInferrer) Infer(ctx context.Context, text models.VenueText, mapped *models.MappedPlaceAttributes, strict bool) ([]models.ActivityCandidate, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if strict {
		m.StrictCalls++
	}
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.Candidates, nil
}

// MockEmbedder implements workflow.Embedder for tests. Vectors holds
// scripted responses keyed by input text; unmatched text gets a
// deterministic unit vector derived from the text length. Err, when set,
// fails every call.
type MockEmbedder struct {
	Mu      sync.Mutex
	Vectors map[string][]float32
	Err     error
	Calls   int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) (*models.EmbeddingVector, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if vec, ok := m.Vectors[text]; ok {
		values := make([]float32, len(vec))
		copy(values, vec)
		embedding.Normalize(values)
		return &models.EmbeddingVector{Values: values, TextHash: embedding.TextHash(text)}, nil
	}
	values := []float32{float32(len(text)%7 + 1), float32(len(text)%5 + 1), float32(len(text)%3 + 1)}
	embedding.Normalize(values)
	return &models.EmbeddingVector{Values: values, TextHash: embedding.TextHash(text)}, nil
}

// MockRunStore implements workflow.RunStore for tests.
type MockRunStore struct {
	Mu    sync.Mutex
	Saved []*models.WorkflowRun
	Err   error
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Saved = append(m.Saved, run)
	return nil
}
