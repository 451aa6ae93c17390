package scoring

import (
	"regexp"
	"strings"
)

// Small polarity lexicon for review text. Deliberately coarse; the signal
// carries a low weight in the composite score.
var positiveWords = map[string]bool{
	"great": true, "good": true, "excellent": true, "amazing": true,
	"wonderful": true, "fantastic": true, "love": true, "loved": true,
	"friendly": true, "delicious": true, "clean": true, "cozy": true,
	"fun": true, "best": true, "perfect": true, "welcoming": true,
	"recommend": true, "awesome": true, "helpful": true, "lovely": true,
	"enjoyed": true, "favorite": true, "nice": true, "beautiful": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "horrible": true,
	"dirty": true, "rude": true, "slow": true, "worst": true,
	"disappointing": true, "disappointed": true, "avoid": true,
	"overpriced": true, "mediocre": true, "poor": true, "cold": true,
	"noisy": true, "crowded": true, "stale": true, "unfriendly": true,
	"hate": true, "hated": true, "broken": true, "closed": true,
}

var wordPattern = regexp.MustCompile(`[a-z]+`)

// Sentiment returns the aggregate polarity of the review texts in [0,1].
// 0.5 is the neutral baseline when no reviews or no polarity words exist.
func Sentiment(reviews []string) float64 {
	pos, neg := 0, 0
	for _, review := range reviews {
		for _, word := range wordPattern.FindAllString(strings.ToLower(review), -1) {
			if positiveWords[word] {
				pos++
			} else if negativeWords[word] {
				neg++
			}
		}
	}
	if pos+neg == 0 {
		return 0.5
	}
	return float64(pos) / float64(pos+neg)
}
