package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"brdgen/internal/brd"
)

// RenderSummary formats the post-run summary box shown by the generate
// command.
func RenderSummary(a *brd.Artifact) string {
	if a == nil {
		return ""
	}

	accepted := 0
	for _, s := range a.Evidence.Sections {
		if s.Accepted {
			accepted++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", StyleTitle.Render(a.BRD.Title))
	fmt.Fprintf(&b, "Sections      %d (%d accepted)\n", len(a.Evidence.Sections), accepted)
	fmt.Fprintf(&b, "Requirements  %d functional, %d technical\n",
		len(a.BRD.FunctionalRequirements), len(a.BRD.TechnicalRequirements))
	fmt.Fprintf(&b, "Claims        %d verified, %d failed\n",
		a.Metadata.ClaimsVerified, a.Metadata.ClaimsFailed)
	fmt.Fprintf(&b, "Confidence    %s\n", renderConfidence(a.Metadata.OverallConfidence, a.Metadata.HallucinationRisk))
	fmt.Fprintf(&b, "Risk          %s\n", renderRisk(a.Metadata.HallucinationRisk))
	fmt.Fprintf(&b, "Duration      %s", (time.Duration(a.Metadata.GenerationTimeMs) * time.Millisecond).Round(time.Millisecond))
	if a.Metadata.Cancelled {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render("Run cancelled; artifact covers completed sections only"))
	}

	return StyleSummaryBox.Render(b.String())
}

func renderConfidence(score float64, risk brd.RiskLevel) string {
	return riskStyle(risk).Render(fmt.Sprintf("%.2f", score))
}

func renderRisk(risk brd.RiskLevel) string {
	return riskStyle(risk).Render(string(risk))
}

func riskStyle(risk brd.RiskLevel) lipgloss.Style {
	switch risk {
	case brd.RiskLow:
		return StyleSuccess
	case brd.RiskMedium:
		return StyleWarning
	default:
		return StyleError
	}
}
