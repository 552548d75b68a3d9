package brd

// RiskLevel is the tri-state hallucination risk of a run.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskFromConfidence maps an overall confidence score to a risk level.
func RiskFromConfidence(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskLow
	case score >= 0.5:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// MeanConfidence is the arithmetic mean of claim confidences.
// An empty claim list yields 0, never 1: a section without claims is
// unverifiable, not trustworthy.
func MeanConfidence(claims []Claim) float64 {
	if len(claims) == 0 {
		return 0
	}
	var sum float64
	for _, c := range claims {
		sum += c.Confidence
	}
	return sum / float64(len(claims))
}

// SectionMean is the arithmetic mean of section confidences.
func SectionMean(sections []SectionResult) float64 {
	if len(sections) == 0 {
		return 0
	}
	var sum float64
	for _, s := range sections {
		sum += s.Confidence
	}
	return sum / float64(len(sections))
}

// MaxEvidenceWeight returns the strongest evidence weight on a claim,
// zero when the claim carries no evidence.
func MaxEvidenceWeight(items []EvidenceItem) float64 {
	var max float64
	for _, e := range items {
		if e.Weight > max {
			max = e.Weight
		}
	}
	return max
}

// NewEvidenceBundle rolls processed sections up into the run-level bundle.
func NewEvidenceBundle(sections []SectionResult) EvidenceBundle {
	b := EvidenceBundle{
		Sections:          sections,
		OverallConfidence: SectionMean(sections),
	}
	for _, s := range sections {
		b.TotalClaims += len(s.Claims)
		for _, c := range s.Claims {
			if c.Status == ClaimStatusVerified {
				b.VerifiedClaims++
			}
		}
	}
	b.HallucinationRisk = RiskFromConfidence(b.OverallConfidence)
	return b
}
