package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	errs "venue-enrichment/pkg/errors"
)

// ScoringPolicy holds the externally tunable knobs of the quality scorer:
// sub-score weights, decision thresholds, the freshness decay shape and the
// confidence-fallback heuristic. Loaded from YAML so editors can adjust
// gating without a code change.
type ScoringPolicy struct {
	Weights            Weights            `yaml:"weights"`
	Thresholds         Thresholds         `yaml:"thresholds"`
	Freshness          FreshnessPolicy    `yaml:"freshness"`
	FallbackConfidence FallbackConfidence `yaml:"fallback_confidence"`
}

// Weights for the composite quality scalar. Must sum to 1.0.
type Weights struct {
	Completeness        float64 `yaml:"completeness"`
	InferenceConfidence float64 `yaml:"inference_confidence"`
	Sentiment           float64 `yaml:"sentiment"`
	Freshness           float64 `yaml:"freshness"`
}

// Thresholds partition the scalar into decisions:
// scalar >= Publishable -> publishable; scalar < RejectBelow -> rejected;
// everything between -> needs review.
type Thresholds struct {
	Publishable float64 `yaml:"publishable"`
	RejectBelow float64 `yaml:"reject_below"`
}

// FreshnessPolicy shapes the decay of the freshness sub-score: 1.0 at age
// zero, linear down to Floor at HorizonDays.
type FreshnessPolicy struct {
	HorizonDays int     `yaml:"horizon_days"`
	Floor       float64 `yaml:"floor"`
}

// FallbackConfidence tunes the lexical-overlap heuristic used when the model
// omits a self-reported confidence. Cap bounds the derived value since the
// heuristic is weaker evidence than model certainty.
type FallbackConfidence struct {
	Cap         float64 `yaml:"cap"`
	MinTokenLen int     `yaml:"min_token_len"`
}

// DefaultPolicy returns the recognized default policy.
func DefaultPolicy() ScoringPolicy {
	return ScoringPolicy{
		Weights: Weights{
			Completeness:        0.35,
			InferenceConfidence: 0.35,
			Sentiment:           0.15,
			Freshness:           0.15,
		},
		Thresholds: Thresholds{
			Publishable: 0.75,
			RejectBelow: 0.45,
		},
		Freshness: FreshnessPolicy{
			HorizonDays: 30,
			Floor:       0.2,
		},
		FallbackConfidence: FallbackConfidence{
			Cap:         0.6,
			MinTokenLen: 3,
		},
	}
}

// LoadPolicy reads a policy file, falling back to defaults when path is
// empty. Missing fields inherit defaults; the merged result is validated.
func LoadPolicy(path string) (ScoringPolicy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return policy, errs.NewConfiguration("config.LoadPolicy", fmt.Sprintf("read policy file %s: %v", path, err))
	}
	if err := yaml.Unmarshal(b, &policy); err != nil {
		return policy, errs.NewConfiguration("config.LoadPolicy", fmt.Sprintf("parse policy file %s: %v", path, err))
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

// Validate checks the policy invariants. Violations are ConfigurationErrors;
// the engine refuses to start on any of them.
func (p ScoringPolicy) Validate() error {
	const op = "config.ScoringPolicy.Validate"

	sum := p.Weights.Completeness + p.Weights.InferenceConfidence + p.Weights.Sentiment + p.Weights.Freshness
	if math.Abs(sum-1.0) > 1e-9 {
		return errs.NewConfiguration(op, fmt.Sprintf("weights must sum to 1.0, got %v", sum))
	}
	for name, w := range map[string]float64{
		"completeness":         p.Weights.Completeness,
		"inference_confidence": p.Weights.InferenceConfidence,
		"sentiment":            p.Weights.Sentiment,
		"freshness":            p.Weights.Freshness,
	} {
		if w < 0 || w > 1 {
			return errs.NewConfiguration(op, fmt.Sprintf("weight %s out of [0,1]: %v", name, w))
		}
	}

	if p.Thresholds.Publishable <= 0 || p.Thresholds.Publishable >= 1 {
		return errs.NewConfiguration(op, fmt.Sprintf("publishable threshold out of (0,1): %v", p.Thresholds.Publishable))
	}
	if p.Thresholds.RejectBelow <= 0 || p.Thresholds.RejectBelow >= 1 {
		return errs.NewConfiguration(op, fmt.Sprintf("reject threshold out of (0,1): %v", p.Thresholds.RejectBelow))
	}
	if p.Thresholds.RejectBelow >= p.Thresholds.Publishable {
		return errs.NewConfiguration(op, fmt.Sprintf("reject threshold %v must be below publishable threshold %v",
			p.Thresholds.RejectBelow, p.Thresholds.Publishable))
	}

	if p.Freshness.HorizonDays <= 0 {
		return errs.NewConfiguration(op, fmt.Sprintf("freshness horizon must be positive, got %d", p.Freshness.HorizonDays))
	}
	if p.Freshness.Floor < 0 || p.Freshness.Floor > 1 {
		return errs.NewConfiguration(op, fmt.Sprintf("freshness floor out of [0,1]: %v", p.Freshness.Floor))
	}

	if p.FallbackConfidence.Cap <= 0 || p.FallbackConfidence.Cap > 1 {
		return errs.NewConfiguration(op, fmt.Sprintf("fallback confidence cap out of (0,1]: %v", p.FallbackConfidence.Cap))
	}
	if p.FallbackConfidence.MinTokenLen < 1 {
		return errs.NewConfiguration(op, fmt.Sprintf("fallback min token length must be >= 1, got %d", p.FallbackConfidence.MinTokenLen))
	}

	return nil
}
