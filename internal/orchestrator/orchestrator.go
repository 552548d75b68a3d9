/*
Package orchestrator drives the section-by-section generate, verify,
regenerate loop. It owns all mutable run state; the services it calls
return detached values and never touch the run directly. A run always
produces an artifact - backend failures degrade individual sections, and
only cancellation surfaces as an error.
*/
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"brdgen/internal/aggregate"
	"brdgen/internal/assemble"
	"brdgen/internal/brd"
	"brdgen/internal/claims"
	"brdgen/internal/config"
	"brdgen/internal/policy"
	"brdgen/internal/progress"
	"brdgen/internal/prompt"
	"brdgen/internal/runlog"
	"brdgen/internal/telemetry"
	"brdgen/internal/util"
	"brdgen/internal/verify"
)

// Request describes one BRD generation run.
type Request struct {
	Text           string
	Sections       []config.SectionConfig
	DetailLevel    config.DetailLevel
	Hints          []string
	IncludeSimilar bool
}

// Services wires the pipeline. Policy, Progress, Log, Telemetry, and Clock
// are optional and nil-safe.
type Services struct {
	LLM        claims.Completer
	Aggregator *aggregate.Aggregator
	Composer   *prompt.Composer
	Extractor  *claims.Extractor
	Verifier   *verify.Verifier

	Policy    *policy.Gate
	Progress  *progress.Reporter
	Log       *runlog.Logger
	Telemetry telemetry.Client
	Clock     func() time.Time
}

// Orchestrator runs the verified generation loop.
type Orchestrator struct {
	Services Services
	Cfg      config.VerificationConfig
}

// New builds an orchestrator over the given services.
func New(services Services, cfg config.VerificationConfig) *Orchestrator {
	return &Orchestrator{Services: services, Cfg: cfg}
}

// Run generates the BRD for one request. On cancellation it returns the
// artifact assembled from fully processed sections together with the
// context error; every other failure mode degrades and the error is nil.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*brd.Artifact, error) {
	s := o.Services
	now := s.Clock
	if now == nil {
		now = time.Now
	}

	runID := util.NewRunID()
	start := now()

	sections := req.Sections
	if len(sections) == 0 {
		sections = config.DefaultSections()
	}
	maxIterations := o.Cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}
	minConfidence := o.Cfg.MinConfidenceForApproval
	if minConfidence <= 0 {
		minConfidence = config.DefaultMinConfidenceForApproval
	}

	if s.Log != nil {
		s.Log.Info("run_started", "BRD generation started",
			map[string]any{"run_id": runID, "sections": len(sections)})
	}
	s.Progress.Emit(progress.StepContext, "aggregating codebase context")

	aggregated, err := s.Aggregator.Build(ctx, req.Text, req.Hints, req.IncludeSimilar)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	meta := brd.RunMetadata{RunID: runID}
	var processed []brd.SectionResult

	for _, sectionCfg := range sections {
		if ctx.Err() != nil {
			meta.Cancelled = true
			break
		}
		result, cancelled := o.runSection(ctx, sectionCfg, aggregated, processed, maxIterations, minConfidence, &meta)
		if cancelled {
			meta.Cancelled = true
			break
		}
		processed = append(processed, result)

		status := "partial"
		if result.Accepted {
			status = "accepted"
		}
		s.Progress.EmitSection(progress.StepSectionComplete,
			fmt.Sprintf("%s (%s, confidence %.2f)", sectionCfg.Name, status, result.Confidence),
			sectionCfg.Name, result.Iterations)
	}

	artifact := o.assemble(req, processed, meta, now().Sub(start))

	if s.Telemetry != nil {
		s.Telemetry.Track(telemetry.EventRunCompleted, telemetry.RunProperties(
			len(processed),
			string(artifact.Metadata.HallucinationRisk),
			artifact.Metadata.OverallConfidence,
			artifact.Metadata.GenerationTimeMs,
		))
	}
	if s.Log != nil {
		s.Log.Info("run_completed", "BRD generation finished", map[string]any{
			"run_id":     runID,
			"sections":   len(processed),
			"confidence": artifact.Metadata.OverallConfidence,
			"cancelled":  artifact.Metadata.Cancelled,
		})
	}

	if artifact.Metadata.Cancelled {
		return artifact, ctx.Err()
	}
	return artifact, nil
}

// runSection runs the iteration loop for one section. The returned result
// is always usable; cancelled reports that the run must stop and the
// in-flight section be discarded.
func (o *Orchestrator) runSection(
	ctx context.Context,
	sectionCfg config.SectionConfig,
	aggregated *brd.AggregatedContext,
	previous []brd.SectionResult,
	maxIterations int,
	minConfidence float64,
	meta *brd.RunMetadata,
) (brd.SectionResult, bool) {
	s := o.Services
	name := sectionCfg.Name
	log := s.Log.WithSection(name)

	s.Progress.EmitSection(progress.StepSection, "starting "+name, name, 0)

	best := brd.SectionResult{Name: name}
	feedback := ""

	for iter := 1; iter <= maxIterations; iter++ {
		if ctx.Err() != nil {
			return best, true
		}

		meta.Iterations++
		if iter > 1 {
			meta.Regenerations++
		}
		s.Progress.EmitSection(progress.StepGenerator, fmt.Sprintf("generating (attempt %d)", iter), name, iter)

		generationPrompt := s.Composer.Generation(prompt.GenerationInput{
			Section:  sectionCfg,
			Context:  aggregated,
			Previous: previous,
			Feedback: feedback,
		})
		text, err := s.LLM.Complete(ctx, generationPrompt)
		if err != nil {
			if ctx.Err() != nil {
				return best, true
			}
			log.Error("generation_failed", "completion failed, continuing with empty text", err, nil)
			text = ""
		}
		body := prompt.CleanBody(text, name)

		s.Progress.EmitSection(progress.StepVerifier, "verifying claims", name, iter)
		candidate := brd.SectionResult{Name: name, Content: body, Iterations: iter}

		if ctx.Err() != nil {
			return best, true
		}
		candidate.Claims = s.Extractor.Extract(ctx, name, body)
		s.Progress.EmitSection(progress.StepClaims, fmt.Sprintf("%d claims extracted", len(candidate.Claims)), name, iter)

		for i := range candidate.Claims {
			if ctx.Err() != nil {
				return best, true
			}
			claim := &candidate.Claims[i]
			items := s.Verifier.Verify(ctx, claim)
			s.Verifier.Finalize(claim, items)
			if claim.Status == brd.ClaimStatusVerified {
				s.Progress.EmitSection(progress.StepVerifying, "verified: "+claim.Text, name, iter)
			}
		}
		candidate.Confidence = brd.MeanConfidence(candidate.Claims)

		if candidate.Confidence > best.Confidence || best.Iterations == 0 {
			best = candidate
		}

		if candidate.Confidence >= minConfidence {
			allowed, denials, contradicted := s.Policy.Approve(ctx, candidate)
			if allowed {
				candidate.Accepted = true
				best = candidate
				log.Info("section_accepted", "section met the confidence threshold",
					map[string]any{"iteration": iter, "confidence": candidate.Confidence})
				return best, false
			}
			markContradicted(&candidate, contradicted)
			candidate.Issues = append(candidate.Issues, denials...)
			if candidate.Iterations == best.Iterations {
				best = candidate
			}
			log.Info("section_policy_denied", "acceptance policy held the section back",
				map[string]any{"iteration": iter, "denials": len(denials)})
		}

		s.Progress.EmitSection(progress.StepFeedback, "building regeneration feedback", name, iter)
		feedback = prompt.Feedback(candidate)
	}

	log.Info("section_partial", "iteration budget exhausted, keeping best candidate",
		map[string]any{"confidence": best.Confidence, "iterations": best.Iterations})
	return best, false
}

// assemble builds the final artifact from the processed sections.
func (o *Orchestrator) assemble(req Request, processed []brd.SectionResult, meta brd.RunMetadata, elapsed time.Duration) *brd.Artifact {
	bundle := assemble.Bundle(processed)

	meta.GenerationTimeMs = elapsed.Milliseconds()
	meta.OverallConfidence = bundle.OverallConfidence
	meta.HallucinationRisk = bundle.HallucinationRisk
	for _, section := range processed {
		for _, c := range section.Claims {
			if c.Status == brd.ClaimStatusVerified {
				meta.ClaimsVerified++
			} else {
				meta.ClaimsFailed++
			}
		}
	}

	return &brd.Artifact{
		BRD:      assemble.Document(req.Text, processed),
		Evidence: bundle,
		Metadata: meta,
	}
}

// markContradicted flips the status of claims the acceptance policy named.
func markContradicted(res *brd.SectionResult, texts []string) {
	if len(texts) == 0 {
		return
	}
	named := make(map[string]bool, len(texts))
	for _, t := range texts {
		named[t] = true
	}
	for i := range res.Claims {
		if named[res.Claims[i].Text] {
			res.Claims[i].Status = brd.ClaimStatusContradicted
		}
	}
}
