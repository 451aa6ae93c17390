package models

import (
	"reflect"
	"sort"
	"testing"
)

func TestMergeCandidates_SameLabelSharedEvidence(t *testing.T) {
	cands := []ActivityCandidate{
		{Label: "live-music", Justification: "live jazz band every friday night", Confidence: 0.6, Source: SourceDescription},
		{Label: "live-music", Justification: "friday night jazz band plays live", Confidence: 0.8, Source: SourceReviews},
	}

	merged := MergeCandidates(cands)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged candidate, got %+v", merged)
	}
	if merged[0].Confidence != 0.8 {
		t.Fatalf("expected the stronger confidence to survive, got %v", merged[0].Confidence)
	}
	if merged[0].Source != SourceReviews {
		t.Fatalf("source should follow the surviving evidence, got %q", merged[0].Source)
	}
}

func TestMergeCandidates_SameLabelDistinctEvidence(t *testing.T) {
	cands := []ActivityCandidate{
		{Label: "workshops", Justification: "pottery classes on weekends", Confidence: 0.7},
		{Label: "workshops", Justification: "monthly latte art seminar for baristas", Confidence: 0.5},
	}

	merged := MergeCandidates(cands)
	if len(merged) != 2 {
		t.Fatalf("distinct evidence must not merge, got %+v", merged)
	}
}

func TestMergeCandidates_KeepsEmissionOrder(t *testing.T) {
	cands := []ActivityCandidate{
		{Label: "board-games", Justification: "shelf of board games", Confidence: 0.9},
		{Label: "live-music", Justification: "acoustic sets", Confidence: 0.4},
		{Label: "board-games", Justification: "big shelf of board games", Confidence: 0.5},
	}

	merged := MergeCandidates(cands)
	if len(merged) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", merged)
	}
	if merged[0].Label != "board-games" || merged[1].Label != "live-music" {
		t.Fatalf("order not preserved: %+v", merged)
	}
	// Weaker later duplicate must not overwrite the stronger first claim.
	if merged[0].Confidence != 0.9 {
		t.Fatalf("expected 0.9, got %v", merged[0].Confidence)
	}
}

func TestMergeCandidates_EmptyJustificationsAlwaysMerge(t *testing.T) {
	cands := []ActivityCandidate{
		{Label: "karaoke", Justification: "", Confidence: 0.3},
		{Label: "karaoke", Justification: "karaoke machine in the back room", Confidence: 0.6},
	}

	merged := MergeCandidates(cands)
	if len(merged) != 1 {
		t.Fatalf("bare claims of a label are one claim, got %+v", merged)
	}
	if merged[0].Confidence != 0.6 {
		t.Fatalf("expected 0.6, got %v", merged[0].Confidence)
	}
}

func TestMergeCandidates_SmallInputsPassThrough(t *testing.T) {
	if got := MergeCandidates(nil); got != nil {
		t.Fatalf("nil must pass through, got %+v", got)
	}
	one := []ActivityCandidate{{Label: "trivia-night", Confidence: 0.5}}
	if got := MergeCandidates(one); !reflect.DeepEqual(got, one) {
		t.Fatalf("single candidate must pass through, got %+v", got)
	}
}

func TestNormalizeActivityLabel(t *testing.T) {
	cases := map[string]string{
		"Board_Games":   "board-games",
		"  live music ": "live-music",
		"KARAOKE":       "karaoke",
		"story  time":   "story-time",
	}
	for in, want := range cases {
		if got := NormalizeActivityLabel(in); got != want {
			t.Fatalf("NormalizeActivityLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKnownActivityLabel(t *testing.T) {
	if !KnownActivityLabel("board-games") {
		t.Fatal("board-games should be in the vocabulary")
	}
	if KnownActivityLabel("laser-tag") {
		t.Fatal("laser-tag should not be in the vocabulary")
	}
}

func TestActivityLabels_SortedAndStable(t *testing.T) {
	labels := ActivityLabels()
	if len(labels) == 0 {
		t.Fatal("vocabulary must not be empty")
	}
	if !sort.StringsAreSorted(labels) {
		t.Fatalf("labels must be sorted: %v", labels)
	}
	if !reflect.DeepEqual(labels, ActivityLabels()) {
		t.Fatal("label listing must be stable across calls")
	}
}
