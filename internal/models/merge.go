package models

import "strings"

// MergeCandidates collapses duplicate activity candidates: same label with
// overlapping justification spans merge into one, keeping the highest
// confidence. Insertion order (inference emission order) is preserved for
// the surviving candidates.
func MergeCandidates(cands []ActivityCandidate) []ActivityCandidate {
	if len(cands) < 2 {
		return cands
	}

	merged := make([]ActivityCandidate, 0, len(cands))
	for _, c := range cands {
		idx := -1
		for i := range merged {
			if merged[i].Label != c.Label {
				continue
			}
			if justificationsOverlap(merged[i].Justification, c.Justification) {
				idx = i
				break
			}
		}
		if idx < 0 {
			merged = append(merged, c)
			continue
		}
		if c.Confidence > merged[idx].Confidence {
			// Keep earlier position, take the stronger evidence.
			merged[idx].Confidence = c.Confidence
			merged[idx].Justification = c.Justification
			merged[idx].Source = c.Source
		}
	}
	return merged
}

// justificationsOverlap reports whether two justification spans share enough
// content tokens to be considered the same evidence. Empty spans always
// overlap: two bare claims of the same label are one claim.
func justificationsOverlap(a, b string) bool {
	ta := contentTokens(a)
	tb := contentTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return true
	}

	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	shared := 0
	for _, t := range tb {
		if _, ok := set[t]; ok {
			shared++
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared)/float64(smaller) >= 0.3
}

func contentTokens(s string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
