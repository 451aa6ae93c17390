package models

import (
	"time"
)

// Stage identifies one phase of the enrichment workflow.
type Stage string

const (
	StageStart      Stage = "start"
	StageMapping    Stage = "mapping"
	StageInferring  Stage = "inferring"
	StageScoring    Stage = "scoring"
	StageDedupCheck Stage = "dedup_check"
	StageTerminal   Stage = "terminal"
)

// Outcome is the terminal state of a workflow run.
type Outcome string

const (
	OutcomePublished   Outcome = "published"
	OutcomeNeedsReview Outcome = "needs_review"
	OutcomeRejected    Outcome = "rejected"
	OutcomeFailed      Outcome = "failed"
)

// Decision is the publishability category produced by the quality scorer.
type Decision string

const (
	DecisionPublishable Decision = "publishable"
	DecisionNeedsReview Decision = "needs_review"
	DecisionRejected    Decision = "rejected"
)

// VenueSubmission is the raw inbound record. Immutable once a run accepts it.
type VenueSubmission struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	VendorID    *string `json:"vendor_id,omitempty"`
	// PlaceRef is the submitter-supplied provider place identifier, if any.
	PlaceRef    *string   `json:"place_ref,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// VenueText is the textual material handed to the activity inferrer.
type VenueText struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Reviews     []string `json:"reviews,omitempty"`
}

// AddressParts holds canonical address components mapped from the provider.
type AddressParts struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Formatted  string `json:"formatted"`
}

// CategoryTag is one provider category translated through the static lookup
// table. Unknown provider tags are kept verbatim with Unmapped set, so
// downstream stages can still use them as weak signals.
type CategoryTag struct {
	Label    string `json:"label"`
	Unmapped bool   `json:"unmapped,omitempty"`
}

// MappedPlaceAttributes is the normalized third-party place metadata.
// Produced once per run; re-fetches produce a new instance, never a mutation.
type MappedPlaceAttributes struct {
	PlaceID    string        `json:"place_id"`
	Address    AddressParts  `json:"address"`
	Lat        float64       `json:"lat"`
	Lng        float64       `json:"lng"`
	Categories []CategoryTag `json:"categories,omitempty"`
	// LocalityPath is the canonical geographic path for directory placement,
	// e.g. "north_america|united_states|illinois|chicago".
	LocalityPath string    `json:"locality_path,omitempty"`
	Hours        []string  `json:"hours,omitempty"`
	PhotoRefs    []string  `json:"photo_refs,omitempty"`
	Reviews      []string  `json:"reviews,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// CandidateSource tags where an inferred activity came from.
type CandidateSource string

const (
	SourceDescription CandidateSource = "inferred-from-description"
	SourceReviews     CandidateSource = "inferred-from-reviews"
	SourcePlaceTags   CandidateSource = "inferred-from-place-tags"
)

// ActivityCandidate is one inferred activity with its confidence.
// Confidence is always in [0,1].
type ActivityCandidate struct {
	Label         string          `json:"label"`
	Justification string          `json:"justification"`
	Confidence    float64         `json:"confidence"`
	Source        CandidateSource `json:"source"`
}

// QualityScore is the composite publishability signal. Scalar is in [0,1]
// and is a deterministic weighted sum of SubScores, never an opaque value.
type QualityScore struct {
	Scalar    float64            `json:"scalar"`
	Decision  Decision           `json:"decision"`
	SubScores map[string]float64 `json:"sub_scores"`
}

// Sub-score keys used in QualityScore.SubScores.
const (
	SubScoreCompleteness        = "completeness"
	SubScoreInferenceConfidence = "inference_confidence"
	SubScoreSentiment           = "sentiment"
	SubScoreFreshness           = "freshness"
)

// EmbeddingVector is a fixed-length vector plus the hash of the text it was
// produced from. Used only for similarity comparison within a pipeline run.
type EmbeddingVector struct {
	Values   []float32 `json:"values"`
	TextHash string    `json:"text_hash"`
}

// Transition records one state-machine step for audit purposes.
type Transition struct {
	From Stage     `json:"from"`
	To   Stage     `json:"to"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}

// WorkflowRun carries the mutable state of one submission through the
// pipeline. Owned exclusively by the workflow engine until terminal.
type WorkflowRun struct {
	ID         string          `json:"id"`
	Submission VenueSubmission `json:"submission"`

	Stage    Stage         `json:"stage"`
	Attempts map[Stage]int `json:"attempts"`

	// Priority is the queue ordering bonus from the submitter's trust
	// assessment. Recorded for observability; it never affects scoring.
	Priority int `json:"priority,omitempty"`

	Mapped     *MappedPlaceAttributes `json:"mapped,omitempty"`
	Candidates []ActivityCandidate    `json:"candidates,omitempty"`
	Score      *QualityScore          `json:"score,omitempty"`

	// InferenceDegraded marks that inference retries were exhausted and the
	// run was scored with an empty candidate list instead of failing.
	InferenceDegraded bool `json:"inference_degraded,omitempty"`

	Outcome             Outcome `json:"outcome,omitempty"`
	DuplicateOf         string  `json:"duplicate_of,omitempty"`
	DuplicateSimilarity float64 `json:"duplicate_similarity,omitempty"`

	// Failure context, set only when Outcome is failed.
	FailureStage Stage  `json:"failure_stage,omitempty"`
	FailureKind  string `json:"failure_kind,omitempty"`
	LastErr      error  `json:"-"`

	Transitions []Transition `json:"transitions,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// NewWorkflowRun creates a run at the start stage for a submission.
func NewWorkflowRun(id string, sub VenueSubmission, startedAt time.Time) *WorkflowRun {
	return &WorkflowRun{
		ID:         id,
		Submission: sub,
		Stage:      StageStart,
		Attempts:   make(map[Stage]int),
		StartedAt:  startedAt,
	}
}

// Terminal reports whether the run has settled.
func (r *WorkflowRun) Terminal() bool { return r.Stage == StageTerminal }

// Text assembles the inference input from the submission and any mapped
// review excerpts.
func (r *WorkflowRun) Text() VenueText {
	vt := VenueText{
		Name:        r.Submission.Name,
		Description: r.Submission.Description,
	}
	if r.Mapped != nil {
		vt.Reviews = r.Mapped.Reviews
	}
	return vt
}

// DedupText is the blob embedded for near-duplicate detection.
func (r *WorkflowRun) DedupText() string {
	addr := r.Submission.Address
	if r.Mapped != nil && r.Mapped.Address.Formatted != "" {
		addr = r.Mapped.Address.Formatted
	}
	return r.Submission.Name + "\n" + addr + "\n" + r.Submission.Description
}
