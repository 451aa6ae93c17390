package scoring

import (
	"time"

	"venue-enrichment/internal/models"
	"venue-enrichment/pkg/config"
)

// Scorer computes the composite quality score for a run. Pure function of
// run data and the policy; never fails. Missing inputs lower the relevant
// sub-score to zero rather than erroring. Scoring an unchanged run twice
// yields identical results: freshness is anchored to the run's start time,
// not the wall clock.
type Scorer struct {
	policy config.ScoringPolicy
}

func New(policy config.ScoringPolicy) *Scorer {
	return &Scorer{policy: policy}
}

// Score derives the quality score from the run's accumulated data. The
// latest computation supersedes prior ones; no history is kept here.
func (s *Scorer) Score(run *models.WorkflowRun) models.QualityScore {
	sub := map[string]float64{
		models.SubScoreCompleteness:        s.completeness(run),
		models.SubScoreInferenceConfidence: s.inferenceConfidence(run),
		models.SubScoreSentiment:           s.sentiment(run),
		models.SubScoreFreshness:           s.freshness(run),
	}

	w := s.policy.Weights
	scalar := w.Completeness*sub[models.SubScoreCompleteness] +
		w.InferenceConfidence*sub[models.SubScoreInferenceConfidence] +
		w.Sentiment*sub[models.SubScoreSentiment] +
		w.Freshness*sub[models.SubScoreFreshness]
	scalar = clamp01(scalar)

	return models.QualityScore{
		Scalar:    scalar,
		Decision:  s.decide(scalar),
		SubScores: sub,
	}
}

func (s *Scorer) decide(scalar float64) models.Decision {
	switch {
	case scalar >= s.policy.Thresholds.Publishable:
		return models.DecisionPublishable
	case scalar < s.policy.Thresholds.RejectBelow:
		return models.DecisionRejected
	default:
		return models.DecisionNeedsReview
	}
}

// completeness is the fraction of required attribute slots populated:
// address, hours, at least one activity, at least one photo reference.
func (s *Scorer) completeness(run *models.WorkflowRun) float64 {
	if run.Mapped == nil {
		if len(run.Candidates) > 0 {
			return 0.25
		}
		return 0
	}

	filled := 0
	if run.Mapped.Address.Formatted != "" {
		filled++
	}
	if len(run.Mapped.Hours) > 0 {
		filled++
	}
	if len(run.Candidates) > 0 {
		filled++
	}
	if len(run.Mapped.PhotoRefs) > 0 {
		filled++
	}
	return float64(filled) / 4.0
}

func (s *Scorer) inferenceConfidence(run *models.WorkflowRun) float64 {
	if len(run.Candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range run.Candidates {
		sum += c.Confidence
	}
	return clamp01(sum / float64(len(run.Candidates)))
}

func (s *Scorer) sentiment(run *models.WorkflowRun) float64 {
	if run.Mapped == nil {
		return 0.5
	}
	return Sentiment(run.Mapped.Reviews)
}

// freshness decays linearly from 1.0 at age zero to the policy floor at
// the policy horizon. Attributes fetched within the current run score 1.0.
func (s *Scorer) freshness(run *models.WorkflowRun) float64 {
	if run.Mapped == nil {
		return 0
	}
	if !run.Mapped.FetchedAt.Before(run.StartedAt) {
		return 1.0
	}

	age := run.StartedAt.Sub(run.Mapped.FetchedAt)
	horizon := time.Duration(s.policy.Freshness.HorizonDays) * 24 * time.Hour
	if horizon <= 0 || age >= horizon {
		return s.policy.Freshness.Floor
	}

	frac := float64(age) / float64(horizon)
	return 1.0 - frac*(1.0-s.policy.Freshness.Floor)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
