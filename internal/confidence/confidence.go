// Package confidence scores and classifies research evidence. The
// aggregate across tiers is a weighted maximum, not an average: one
// strong, direct piece of evidence should carry the answer, and piling
// weak tiers on top must never dilute it.
package confidence

// Confidence thresholds for classification.
const (
	HighConfidenceThreshold   = 0.80
	MediumConfidenceThreshold = 0.60
)

// defaultWeight applies to tiers missing from the weight table.
const defaultWeight = 0.5

// Band classifies an overall confidence into a recommended posture.
type Band string

const (
	// BandProceed: evidence is strong enough to act on directly.
	BandProceed Band = "proceed"

	// BandValidate: act, but check the evidence first.
	BandValidate Band = "validate"

	// BandResearch: evidence is too thin; research further.
	BandResearch Band = "research"
)

// Scored is one tier's contribution to the aggregate.
type Scored struct {
	Tier       string
	Confidence float64
}

// Weights maps tier names to aggregation weights in [0,1].
type Weights map[string]float64

// DefaultWeights reflects evidence reliability: files on disk and the
// live environment are first-party, recorded decisions carry their own
// stored confidence, and unverified web results rank lowest.
func DefaultWeights() Weights {
	return Weights{
		"project-files":   0.95,
		"environment":     0.95,
		"knowledge-graph": 0.90,
		"web-search":      0.50,
	}
}

// weight returns the weight for a tier, defaulting for unknown names.
func (w Weights) weight(tier string) float64 {
	if w == nil {
		return defaultWeight
	}
	v, ok := w[tier]
	if !ok {
		return defaultWeight
	}
	return clamp(v)
}

// Aggregate combines per-tier confidences into one overall score:
// the maximum of weight x confidence across tiers, clamped to [0,1].
// Pure and deterministic - equal inputs always produce equal output,
// and adding a tier can only raise the score.
func Aggregate(scores []Scored, w Weights) float64 {
	best := 0.0
	for _, s := range scores {
		v := w.weight(s.Tier) * clamp(s.Confidence)
		if v > best {
			best = v
		}
	}
	return clamp(best)
}

// BandFor classifies an overall confidence.
func BandFor(score float64) Band {
	switch {
	case score >= HighConfidenceThreshold:
		return BandProceed
	case score >= MediumConfidenceThreshold:
		return BandValidate
	default:
		return BandResearch
	}
}

// Level names the confidence for humans: high, medium, or low.
func Level(score float64) string {
	switch {
	case score >= HighConfidenceThreshold:
		return "high"
	case score >= MediumConfidenceThreshold:
		return "medium"
	default:
		return "low"
	}
}

// Actions returns the recommended next steps for a band.
func Actions(b Band) []string {
	switch b {
	case BandProceed:
		return []string{
			"Proceed: confidence is high enough to act on this answer.",
		}
	case BandValidate:
		return []string{
			"Validate the answer against the identified evidence before acting on it.",
		}
	default:
		return []string{
			"Perform additional research before acting on this answer.",
			"Run a web search to close the confidence gap.",
		}
	}
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
