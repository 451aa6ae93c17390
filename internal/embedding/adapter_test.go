package embedding

import (
	"context"
	"math"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	errs "venue-enrichment/pkg/errors"
)

type fakeEmbeddings struct {
	embedding []float32
	err       error
	calls     int
}

func (f *fakeEmbeddings) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	return openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: f.embedding}},
	}, nil
}

func TestEmbed_NormalizesVector(t *testing.T) {
	client := &fakeEmbeddings{embedding: []float32{3, 4}}
	a := NewAdapter(client, "")

	vec, err := a.Embed(context.Background(), "sunny park café")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, v := range vec.Values {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("expected unit vector, squared norm %v", norm)
	}
	if vec.TextHash == "" {
		t.Fatalf("expected text hash set: %+v", vec)
	}
}

func TestEmbed_EmptyInput(t *testing.T) {
	a := NewAdapter(&fakeEmbeddings{}, "")

	_, err := a.Embed(context.Background(), "   ")
	ee, ok := errs.AsEmbedding(err)
	if !ok || ee.Reason != errs.EmbeddingEmptyInput {
		t.Fatalf("expected empty-input, got %v", err)
	}
}

func TestEmbed_TimeoutReason(t *testing.T) {
	a := NewAdapter(&fakeEmbeddings{err: context.DeadlineExceeded}, "")

	_, err := a.Embed(context.Background(), "text")
	ee, ok := errs.AsEmbedding(err)
	if !ok || ee.Reason != errs.EmbeddingUpstreamTimeout {
		t.Fatalf("expected upstream-timeout, got %v", err)
	}
}

func TestEmbed_EmptyResponseData(t *testing.T) {
	client := &fakeEmbeddings{embedding: nil}
	a := NewAdapter(client, "")

	_, err := a.Embed(context.Background(), "text")
	ee, ok := errs.AsEmbedding(err)
	if !ok || ee.Reason != errs.EmbeddingUpstreamUnavailable {
		t.Fatalf("expected upstream-unavailable, got %v", err)
	}
}

func TestMemo_EmbedsIdenticalTextOnce(t *testing.T) {
	client := &fakeEmbeddings{embedding: []float32{1, 0}}
	memo := NewMemo(NewAdapter(client, ""))

	first, err := memo.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := memo.Embed(context.Background(), "same text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", client.calls)
	}
	if first != second {
		t.Fatalf("expected memoized vector reused")
	}

	if _, err := memo.Embed(context.Background(), "different text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected second upstream call for new text, got %d", client.calls)
	}
}

func TestMemo_DoesNotCacheFailures(t *testing.T) {
	client := &fakeEmbeddings{err: context.DeadlineExceeded}
	memo := NewMemo(NewAdapter(client, ""))

	if _, err := memo.Embed(context.Background(), "text"); err == nil {
		t.Fatalf("expected error")
	}

	client.err = nil
	client.embedding = []float32{1, 0}
	vec, err := memo.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(vec.Values) != 2 {
		t.Fatalf("unexpected vector: %+v", vec)
	}
}

func TestNormalize_ZeroVectorUntouched(t *testing.T) {
	values := []float32{0, 0, 0}
	Normalize(values)
	for _, v := range values {
		if v != 0 {
			t.Fatalf("zero vector must stay zero: %v", values)
		}
	}
}
