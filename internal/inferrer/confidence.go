package inferrer

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// FallbackConfidence derives a confidence value for a candidate whose model
// response carried no usable self-reported certainty. It measures the
// fraction of justification tokens present in the source text, scaled by
// cap. The cap marks heuristic confidences as lower-trust than
// model-reported ones. Tokens shorter than minTokenLen are ignored.
func FallbackConfidence(justification, source string, cap float64, minTokenLen int) float64 {
	just := contentTokens(justification, minTokenLen)
	if len(just) == 0 {
		return 0
	}

	src := make(map[string]bool)
	for _, tok := range contentTokens(source, minTokenLen) {
		src[tok] = true
	}

	matched := 0
	for _, tok := range just {
		if src[tok] {
			matched++
		}
	}

	return cap * float64(matched) / float64(len(just))
}

func contentTokens(text string, minLen int) []string {
	var out []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) >= minLen {
			out = append(out, tok)
		}
	}
	return out
}
