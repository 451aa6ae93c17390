package dedup

import (
	"testing"

	"venue-enrichment/internal/models"
)

func vec(values ...float32) *models.EmbeddingVector {
	return &models.EmbeddingVector{Values: values}
}

func TestQuery_OrdersBySimilarity(t *testing.T) {
	idx := NewIndex()
	idx.Insert("venue-a", vec(1, 0, 0))
	idx.Insert("venue-b", vec(0, 1, 0))
	idx.Insert("venue-c", vec(0.8, 0.6, 0))

	matches := idx.Query(vec(1, 0, 0), 3)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %+v", matches)
	}
	if matches[0].VenueID != "venue-a" || matches[0].Similarity != 1.0 {
		t.Fatalf("expected exact match first, got %+v", matches[0])
	}
	if matches[1].VenueID != "venue-c" {
		t.Fatalf("expected venue-c second, got %+v", matches[1])
	}
}

func TestQuery_TopKLimit(t *testing.T) {
	idx := NewIndex()
	idx.Insert("venue-a", vec(1, 0))
	idx.Insert("venue-b", vec(0, 1))

	if matches := idx.Query(vec(1, 0), 1); len(matches) != 1 {
		t.Fatalf("expected 1 match, got %+v", matches)
	}
	if matches := idx.Query(vec(1, 0), 0); matches != nil {
		t.Fatalf("expected nil for topK 0, got %+v", matches)
	}
}

func TestQuery_TieBreakLowestID(t *testing.T) {
	idx := NewIndex()
	// Identical vectors: similarity ties exactly.
	idx.Insert("venue-z", vec(0, 1, 0))
	idx.Insert("venue-a", vec(0, 1, 0))
	idx.Insert("venue-m", vec(0, 1, 0))

	matches := idx.Query(vec(0, 1, 0), 3)
	if matches[0].VenueID != "venue-a" || matches[1].VenueID != "venue-m" || matches[2].VenueID != "venue-z" {
		t.Fatalf("expected deterministic lowest-ID tie-break, got %+v", matches)
	}
}

func TestInsert_ReplacesVector(t *testing.T) {
	idx := NewIndex()
	idx.Insert("venue-a", vec(1, 0))
	idx.Insert("venue-a", vec(0, 1))

	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry after re-insert, got %d", idx.Len())
	}
	matches := idx.Query(vec(0, 1), 1)
	if matches[0].Similarity != 1.0 {
		t.Fatalf("expected replaced vector, got %+v", matches[0])
	}
}

func TestQuery_SkipsDimensionMismatch(t *testing.T) {
	idx := NewIndex()
	idx.Insert("venue-a", vec(1, 0, 0))

	if matches := idx.Query(vec(1, 0), 5); len(matches) != 0 {
		t.Fatalf("expected no matches across dimensions, got %+v", matches)
	}
}
