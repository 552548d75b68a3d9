package telemetry

// Event names.
const (
	EventRunCompleted       = "run_completed"
	EventDecomposeCompleted = "decompose_completed"
)

// RunProperties builds the run_completed payload. Confidence is reported
// as a coarse bucket, never the raw score.
func RunProperties(sections int, risk string, confidence float64, durationMs int64) Properties {
	return Properties{
		"sections":          sections,
		"risk":              risk,
		"confidence_bucket": ConfidenceBucket(confidence),
		"duration_ms":       durationMs,
	}
}

// ConfidenceBucket coarsens a confidence score for reporting.
func ConfidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "0.9+"
	case confidence >= 0.8:
		return "0.8-0.9"
	case confidence >= 0.7:
		return "0.7-0.8"
	case confidence >= 0.5:
		return "0.5-0.7"
	default:
		return "<0.5"
	}
}
