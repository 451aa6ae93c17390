package models

import (
	"sort"
	"strings"
)

// Controlled vocabulary of activity labels the inferrer is allowed to emit.
// Model output is normalized and filtered against this set; anything else is
// dropped rather than invented.
var activityVocabulary = map[string]struct{}{
	"play-area":       {},
	"story-time":      {},
	"live-music":      {},
	"open-mic":        {},
	"trivia-night":    {},
	"board-games":     {},
	"outdoor-seating": {},
	"kids-menu":       {},
	"pet-friendly":    {},
	"wifi-workspace":  {},
	"workshops":       {},
	"tastings":        {},
	"private-events":  {},
	"art-exhibits":    {},
	"sports-viewing":  {},
	"karaoke":         {},
	"dance-classes":   {},
	"book-club":       {},
}

// NormalizeActivityLabel lowercases a label and converts separators to the
// dash form used by the vocabulary.
func NormalizeActivityLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.ReplaceAll(l, "_", "-")
	l = strings.Join(strings.Fields(l), "-")
	return l
}

// KnownActivityLabel reports whether a normalized label is in the vocabulary.
func KnownActivityLabel(label string) bool {
	_, ok := activityVocabulary[label]
	return ok
}

// ActivityLabels returns the vocabulary sorted for stable prompts and docs.
func ActivityLabels() []string {
	labels := make([]string, 0, len(activityVocabulary))
	for l := range activityVocabulary {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
