package scoring

import (
	"math"
	"testing"
	"time"

	"venue-enrichment/internal/models"
	"venue-enrichment/pkg/config"
)

func publishableRun(startedAt time.Time) *models.WorkflowRun {
	run := models.NewWorkflowRun("run-1", models.VenueSubmission{
		ID:          "venue-1",
		Name:        "Sunny Park Café",
		Address:     "12 Oak St",
		Description: "family café with a play area and weekend story-time",
	}, startedAt)
	run.Mapped = &models.MappedPlaceAttributes{
		PlaceID:   "place-1",
		Address:   models.AddressParts{Formatted: "12 Oak St, Springfield"},
		Lat:       41.2,
		Lng:       -73.9,
		Hours:     []string{"Monday: 8:00 AM – 6:00 PM"},
		PhotoRefs: []string{"photo-1"},
		FetchedAt: startedAt,
	}
	run.Candidates = []models.ActivityCandidate{
		{Label: "play-area", Confidence: 0.9, Source: models.SourceDescription},
		{Label: "story-time", Confidence: 0.8, Source: models.SourceDescription},
	}
	return run
}

func TestScore_EndToEndScenario(t *testing.T) {
	start := time.Now()
	run := publishableRun(start)

	s := New(config.DefaultPolicy())
	score := s.Score(run)

	if math.Abs(score.Scalar-0.8725) > 1e-9 {
		t.Fatalf("expected scalar 0.8725, got %v", score.Scalar)
	}
	if score.Decision != models.DecisionPublishable {
		t.Fatalf("expected publishable, got %+v", score)
	}
	if score.SubScores[models.SubScoreCompleteness] != 1.0 {
		t.Fatalf("expected completeness 1.0, got %v", score.SubScores[models.SubScoreCompleteness])
	}
	if math.Abs(score.SubScores[models.SubScoreInferenceConfidence]-0.85) > 1e-9 {
		t.Fatalf("expected inference confidence 0.85, got %v", score.SubScores[models.SubScoreInferenceConfidence])
	}
	if score.SubScores[models.SubScoreSentiment] != 0.5 {
		t.Fatalf("expected neutral sentiment with no reviews, got %v", score.SubScores[models.SubScoreSentiment])
	}
	if score.SubScores[models.SubScoreFreshness] != 1.0 {
		t.Fatalf("expected freshness 1.0, got %v", score.SubScores[models.SubScoreFreshness])
	}
}

func TestScore_Idempotent(t *testing.T) {
	run := publishableRun(time.Now())
	s := New(config.DefaultPolicy())

	first := s.Score(run)
	second := s.Score(run)

	if first.Scalar != second.Scalar || first.Decision != second.Decision {
		t.Fatalf("re-scoring an unchanged run diverged: %+v vs %+v", first, second)
	}
	for k, v := range first.SubScores {
		if second.SubScores[k] != v {
			t.Fatalf("sub-score %s diverged: %v vs %v", k, v, second.SubScores[k])
		}
	}
}

func TestScore_EmptyRunNeverFails(t *testing.T) {
	run := models.NewWorkflowRun("run-2", models.VenueSubmission{Name: "Bare"}, time.Now())

	score := New(config.DefaultPolicy()).Score(run)

	if score.Scalar < 0 || score.Scalar > 1 {
		t.Fatalf("scalar out of range: %v", score.Scalar)
	}
	if score.Decision != models.DecisionRejected {
		t.Fatalf("expected rejected for empty run, got %+v", score)
	}
	if score.SubScores[models.SubScoreCompleteness] != 0 {
		t.Fatalf("expected completeness 0, got %v", score.SubScores[models.SubScoreCompleteness])
	}
	if score.SubScores[models.SubScoreInferenceConfidence] != 0 {
		t.Fatalf("expected inference confidence 0, got %v", score.SubScores[models.SubScoreInferenceConfidence])
	}
}

func TestScore_DegradedEmptyCandidates(t *testing.T) {
	run := publishableRun(time.Now())
	run.Candidates = nil
	run.InferenceDegraded = true

	score := New(config.DefaultPolicy()).Score(run)

	if score.SubScores[models.SubScoreInferenceConfidence] != 0 {
		t.Fatalf("expected zero confidence with no candidates, got %v", score.SubScores[models.SubScoreInferenceConfidence])
	}
	// completeness loses the activity slot: 3/4
	if score.SubScores[models.SubScoreCompleteness] != 0.75 {
		t.Fatalf("expected completeness 0.75, got %v", score.SubScores[models.SubScoreCompleteness])
	}
	if score.Decision == models.DecisionPublishable {
		t.Fatalf("degraded run should not be publishable: %+v", score)
	}
}

func TestScore_FreshnessDecay(t *testing.T) {
	start := time.Now()
	policy := config.DefaultPolicy()
	s := New(policy)

	run := publishableRun(start)

	// Fetched within the run: full freshness.
	run.Mapped.FetchedAt = start.Add(time.Minute)
	if f := s.Score(run).SubScores[models.SubScoreFreshness]; f != 1.0 {
		t.Fatalf("expected 1.0 for in-run fetch, got %v", f)
	}

	// Halfway to the horizon: halfway between 1.0 and the floor.
	run.Mapped.FetchedAt = start.Add(-15 * 24 * time.Hour)
	want := 1.0 - 0.5*(1.0-policy.Freshness.Floor)
	if f := s.Score(run).SubScores[models.SubScoreFreshness]; math.Abs(f-want) > 1e-9 {
		t.Fatalf("expected %v at half horizon, got %v", want, f)
	}

	// Past the horizon: floor.
	run.Mapped.FetchedAt = start.Add(-90 * 24 * time.Hour)
	if f := s.Score(run).SubScores[models.SubScoreFreshness]; f != policy.Freshness.Floor {
		t.Fatalf("expected floor %v, got %v", policy.Freshness.Floor, f)
	}
}

func TestScore_SentimentFromReviews(t *testing.T) {
	run := publishableRun(time.Now())
	run.Mapped.Reviews = []string{"great coffee, friendly staff", "the patio was lovely"}

	score := New(config.DefaultPolicy()).Score(run)
	if score.SubScores[models.SubScoreSentiment] != 1.0 {
		t.Fatalf("expected all-positive sentiment 1.0, got %v", score.SubScores[models.SubScoreSentiment])
	}

	run.Mapped.Reviews = []string{"rude staff and dirty tables", "terrible"}
	score = New(config.DefaultPolicy()).Score(run)
	if score.SubScores[models.SubScoreSentiment] != 0.0 {
		t.Fatalf("expected all-negative sentiment 0.0, got %v", score.SubScores[models.SubScoreSentiment])
	}
}

func TestScore_ThresholdBoundaries(t *testing.T) {
	policy := config.DefaultPolicy()
	s := New(policy)

	cases := []struct {
		name       string
		confidence float64
		want       models.Decision
	}{
		// scalar = 0.35 + 0.35*c + 0.075 + 0.15
		{"high confidence publishes", 0.9, models.DecisionPublishable},
		{"low confidence needs review", 0.3, models.DecisionNeedsReview},
	}
	for _, tc := range cases {
		run := publishableRun(time.Now())
		run.Candidates = []models.ActivityCandidate{{Label: "play-area", Confidence: tc.confidence}}
		if got := s.Score(run).Decision; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}

	run := models.NewWorkflowRun("run-3", models.VenueSubmission{Name: "Empty"}, time.Now())
	if got := s.Score(run).Decision; got != models.DecisionRejected {
		t.Fatalf("expected rejected below %v, got %s", policy.Thresholds.RejectBelow, got)
	}
}

func TestScore_WeightShiftMovesScalarLinearly(t *testing.T) {
	run := publishableRun(time.Now())
	base := New(config.DefaultPolicy()).Score(run)

	// Moving weight between two components shifts the scalar by exactly the
	// weight delta times the difference of their sub-scores.
	cases := []struct {
		name  string
		delta float64
		to    string
		from  string
		shift func(w *config.Weights, d float64)
	}{
		{
			"completeness from sentiment", 0.1,
			models.SubScoreCompleteness, models.SubScoreSentiment,
			func(w *config.Weights, d float64) { w.Completeness += d; w.Sentiment -= d },
		},
		{
			"freshness from confidence", 0.05,
			models.SubScoreFreshness, models.SubScoreInferenceConfidence,
			func(w *config.Weights, d float64) { w.Freshness += d; w.InferenceConfidence -= d },
		},
		{
			"sentiment from completeness", 0.15,
			models.SubScoreSentiment, models.SubScoreCompleteness,
			func(w *config.Weights, d float64) { w.Sentiment += d; w.Completeness -= d },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := config.DefaultPolicy()
			tc.shift(&policy.Weights, tc.delta)
			if err := policy.Validate(); err != nil {
				t.Fatalf("shifted policy must stay valid: %+v", err)
			}

			got := New(policy).Score(run)
			want := base.Scalar + tc.delta*(base.SubScores[tc.to]-base.SubScores[tc.from])
			if math.Abs(got.Scalar-want) > 1e-9 {
				t.Fatalf("expected scalar %v after the weight shift, got %v", want, got.Scalar)
			}
		})
	}
}
