package trust

import (
	"fmt"
	"strings"
)

// VendorHistory summarizes a submitter's track record with the directory.
type VendorHistory struct {
	VendorID    string
	Published   int
	Rejected    int
	NeedsReview int
	Verified    bool
}

// Assessment is the unified result of vendor trust evaluation.
// Trust is 0.0-1.0. Tier is one of: "verified", "established", "regular", "new".
// PriorityBonus feeds queue ordering only; it never touches the quality
// score, which stays a pure function of run data.
// Reason gives a concise human-friendly explanation for logs/debug.
type Assessment struct {
	Trust         float64
	Tier          string
	PriorityBonus int
	Reason        string
}

// Config allows tuning the calculator without code changes.
type Config struct {
	BaseNewTrust     float64
	RegularTrust     float64
	EstablishedTrust float64
	VerifiedTrust    float64

	EstablishedThreshold int
	HistoryBoostStep     float64
	RejectionPenaltyStep float64

	BonusVerified    int
	BonusEstablished int
	BonusRegular     int
	BonusNew         int
}

// DefaultConfig returns thresholds matching current queue policy.
func DefaultConfig() Config {
	return Config{
		BaseNewTrust:         0.3,
		RegularTrust:         0.5,
		EstablishedTrust:     0.7,
		VerifiedTrust:        0.9,
		EstablishedThreshold: 10,
		HistoryBoostStep:     0.05,
		RejectionPenaltyStep: 0.1,
		BonusVerified:        30,
		BonusEstablished:     15,
		BonusRegular:         5,
		BonusNew:             0,
	}
}

// Calculator computes vendor trust consistently.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator { return &Calculator{cfg: cfg} }
func NewDefault() *Calculator              { return NewCalculator(DefaultConfig()) }

// Assess computes the trust assessment for a vendor's history.
// A zero-value history (unknown vendor) lands in the "new" tier.
func (c *Calculator) Assess(h VendorHistory) Assessment {
	if h.Verified {
		trust := c.adjust(c.cfg.VerifiedTrust, h)
		return Assessment{
			Trust:         trust,
			Tier:          "verified",
			PriorityBonus: c.cfg.BonusVerified,
			Reason:        c.buildReason("verified", trust, h),
		}
	}

	if h.Published >= c.cfg.EstablishedThreshold {
		trust := c.adjust(c.cfg.EstablishedTrust, h)
		return Assessment{
			Trust:         trust,
			Tier:          "established",
			PriorityBonus: c.cfg.BonusEstablished,
			Reason:        c.buildReason("established", trust, h),
		}
	}

	if h.Published > 0 {
		trust := c.adjust(c.cfg.RegularTrust, h)
		return Assessment{
			Trust:         trust,
			Tier:          "regular",
			PriorityBonus: c.cfg.BonusRegular,
			Reason:        c.buildReason("regular", trust, h),
		}
	}

	trust := c.adjust(c.cfg.BaseNewTrust, h)
	return Assessment{
		Trust:         trust,
		Tier:          "new",
		PriorityBonus: c.cfg.BonusNew,
		Reason:        c.buildReason("new", trust, h),
	}
}

// adjust boosts trust for publication history and penalizes a rejection-heavy
// record, clamped to [0,1].
func (c *Calculator) adjust(base float64, h VendorHistory) float64 {
	trust := base
	trust += float64(h.Published) * c.cfg.HistoryBoostStep
	if h.Published+h.Rejected > 0 {
		rejectRate := float64(h.Rejected) / float64(h.Published+h.Rejected)
		if rejectRate > 0.5 {
			trust -= c.cfg.RejectionPenaltyStep
		}
	}
	if trust > 1.0 {
		trust = 1.0
	}
	if trust < 0.0 {
		trust = 0.0
	}
	return trust
}

func (c *Calculator) buildReason(tier string, trust float64, h VendorHistory) string {
	parts := []string{tier}
	if h.Published > 0 {
		parts = append(parts, fmt.Sprintf("%d published", h.Published))
	}
	if h.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", h.Rejected))
	}
	return fmt.Sprintf("%s, trust=%.2f", strings.Join(parts, ", "), trust)
}
