package trust

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssess_Tiers(t *testing.T) {
	c := NewDefault()

	cases := []struct {
		name      string
		history   VendorHistory
		wantTier  string
		wantBonus int
	}{
		{"unknown vendor", VendorHistory{}, "new", 0},
		{"one published", VendorHistory{Published: 1}, "regular", 5},
		{"at established threshold", VendorHistory{Published: 10}, "established", 15},
		{"verified wins over count", VendorHistory{Published: 2, Verified: true}, "verified", 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Assess(tc.history)
			if got.Tier != tc.wantTier {
				t.Fatalf("tier = %q, want %q", got.Tier, tc.wantTier)
			}
			if got.PriorityBonus != tc.wantBonus {
				t.Fatalf("bonus = %d, want %d", got.PriorityBonus, tc.wantBonus)
			}
			if got.Trust < 0 || got.Trust > 1 {
				t.Fatalf("trust out of range: %v", got.Trust)
			}
		})
	}
}

func TestAssess_HistoryBoost(t *testing.T) {
	c := NewDefault()

	base := c.Assess(VendorHistory{Published: 1})
	more := c.Assess(VendorHistory{Published: 4})
	if more.Trust <= base.Trust {
		t.Fatalf("more publications must raise trust: %v vs %v", more.Trust, base.Trust)
	}
	// 0.5 base + 4 * 0.05
	if !approx(more.Trust, 0.7) {
		t.Fatalf("expected 0.7, got %v", more.Trust)
	}
}

func TestAssess_RejectionPenalty(t *testing.T) {
	c := NewDefault()

	clean := c.Assess(VendorHistory{Published: 2})
	heavy := c.Assess(VendorHistory{Published: 2, Rejected: 5})
	if heavy.Trust >= clean.Trust {
		t.Fatalf("rejection-heavy record must lower trust: %v vs %v", heavy.Trust, clean.Trust)
	}
	if !approx(clean.Trust-heavy.Trust, DefaultConfig().RejectionPenaltyStep) {
		t.Fatalf("expected a single penalty step, got delta %v", clean.Trust-heavy.Trust)
	}

	// Rejections at or below half the record carry no penalty.
	even := c.Assess(VendorHistory{Published: 3, Rejected: 3})
	if !approx(even.Trust, clean.Trust+DefaultConfig().HistoryBoostStep) {
		t.Fatalf("balanced record must not be penalized, got %v", even.Trust)
	}
}

func TestAssess_TrustClamped(t *testing.T) {
	c := NewDefault()

	high := c.Assess(VendorHistory{Published: 50, Verified: true})
	if high.Trust != 1.0 {
		t.Fatalf("expected clamp at 1.0, got %v", high.Trust)
	}
}

func TestAssess_ReasonMentionsRecord(t *testing.T) {
	c := NewDefault()

	got := c.Assess(VendorHistory{Published: 3, Rejected: 1})
	if !strings.Contains(got.Reason, "3 published") || !strings.Contains(got.Reason, "1 rejected") {
		t.Fatalf("reason should summarize the record, got %q", got.Reason)
	}
	if !strings.HasPrefix(got.Reason, "regular") {
		t.Fatalf("reason should lead with the tier, got %q", got.Reason)
	}
}
