package workflow

import (
	"context"
	"fmt"
	"time"

	"venue-enrichment/internal/dedup"
	"venue-enrichment/internal/models"
	errs "venue-enrichment/pkg/errors"
)

// PlaceMapper resolves a submission to normalized place attributes.
type PlaceMapper interface {
	MapPlace(ctx context.Context, sub models.VenueSubmission) (*models.MappedPlaceAttributes, error)
}

// ActivityInferrer extracts activity candidates from venue text. The strict
// flag selects the fallback prompt variant after an unparsable response.
type ActivityInferrer interface {
	Infer(ctx context.Context, text models.VenueText, mapped *models.MappedPlaceAttributes, strict bool) ([]models.ActivityCandidate, error)
}

// CostReporter is implemented by inferrers that meter model usage. The
// engine surfaces the numbers through its stats when available.
type CostReporter interface {
	GetCostStats() (totalTokens, totalRequests int, estimatedCostUSD float64, duration time.Duration)
}

// Embedder produces a vector for dedup comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) (*models.EmbeddingVector, error)
}

// QualityScorer computes the composite score. Never fails.
type QualityScorer interface {
	Score(run *models.WorkflowRun) models.QualityScore
}

// DuplicateIndex is the published-venue nearest-neighbor index.
type DuplicateIndex interface {
	Query(vec *models.EmbeddingVector, topK int) []dedup.Match
	Insert(venueID string, vec *models.EmbeddingVector)
}

// RunStore persists terminal run records. Nil-able: the engine runs without
// persistence in tests and DB-less deployments.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.WorkflowRun) error
}

// EngineConfig holds all cross-cutting knobs for the workflow engine.
// Passed explicitly rather than read from ambient state so parallel tests
// can run with different configurations.
type EngineConfig struct {
	WorkerCount int
	QueueSize   int

	MappingMaxRetries   int
	InferenceMaxRetries int
	RetryBackoff        time.Duration

	MappingTimeout   time.Duration
	InferenceTimeout time.Duration
	EmbeddingTimeout time.Duration

	DuplicateThreshold float64
	DuplicateTopK      int

	ProviderRPS   int
	ProviderBurst int
	ModelRPS      int
	ModelBurst    int
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WorkerCount:         8,
		QueueSize:           500,
		MappingMaxRetries:   2,
		InferenceMaxRetries: 2,
		RetryBackoff:        2 * time.Second,
		MappingTimeout:      15 * time.Second,
		InferenceTimeout:    45 * time.Second,
		EmbeddingTimeout:    10 * time.Second,
		DuplicateThreshold:  0.92,
		DuplicateTopK:       5,
		ProviderRPS:         10,
		ProviderBurst:       20,
		ModelRPS:            5,
		ModelBurst:          10,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c EngineConfig) Validate() error {
	if c.WorkerCount <= 0 {
		return errs.NewConfiguration("workflow.Validate", "worker count must be positive")
	}
	if c.QueueSize <= 0 {
		return errs.NewConfiguration("workflow.Validate", "queue size must be positive")
	}
	if c.MappingMaxRetries < 0 || c.InferenceMaxRetries < 0 {
		return errs.NewConfiguration("workflow.Validate", "retry counts must be non-negative")
	}
	if c.RetryBackoff < 0 {
		return errs.NewConfiguration("workflow.Validate", "retry backoff must be non-negative")
	}
	if c.MappingTimeout <= 0 || c.InferenceTimeout <= 0 || c.EmbeddingTimeout <= 0 {
		return errs.NewConfiguration("workflow.Validate", "stage timeouts must be positive")
	}
	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		return errs.NewConfiguration("workflow.Validate",
			fmt.Sprintf("duplicate threshold %v must be in (0,1]", c.DuplicateThreshold))
	}
	if c.DuplicateTopK <= 0 {
		return errs.NewConfiguration("workflow.Validate", "duplicate topK must be positive")
	}
	return nil
}
