package pipeline

import (
	"context"
	"time"

	"github.com/caredocs/attesta/internal/models"
	"go.uber.org/zap"
)

// Request is an explicit pipeline-run record: every stage input is declared
// here and passed by value between stages rather than held as ambient state.
type Request struct {
	Objective  models.ObjectiveContext
	SectionIDs []string
	SourceText string
	Refs       *models.ReferenceDataset
	Ref        string // document reference: objective code or NC id
	Version    string
	Title      string

	// Freeform skips relevance filtering and context merging, feeding
	// SourceText to the generators as-is. Used for evidence assembly where
	// the source content is already curated by the user.
	Freeform bool
}

// Result is the outcome of one pipeline run.
type Result struct {
	HTML     string
	Fields   SharedFields
	Sections []models.GeneratedSection
	Warnings []Warning
}

// Runner wires the pipeline stages together. It holds only immutable
// dependencies; all per-run state lives in the Request and Result.
type Runner struct {
	filter    *Filter
	generator *Generator
	policy    Policy
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunner creates a Runner. now is used for shared-field computation and is
// injectable for tests; pass nil for time.Now.
func NewRunner(filter *Filter, generator *Generator, policy Policy, logger *zap.Logger, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{filter: filter, generator: generator, policy: policy, logger: logger, now: now}
}

// Run executes filter -> merge -> generate -> assemble for one request.
// Stage failures propagate unwrapped so callers can distinguish caller-input
// problems from external-service failures.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	specs, err := models.SectionSpecs(req.SectionIDs)
	if err != nil {
		return nil, err
	}

	content := req.SourceText
	if !req.Freeform {
		filtered, err := r.filter.Run(ctx, req.SourceText, req.Objective)
		if err != nil {
			return nil, err
		}
		content, err = Merge(req.Objective.Title, req.Objective.Interpretation, filtered)
		if err != nil {
			return nil, err
		}
	}

	sections, warnings, err := r.generator.GenerateSections(ctx, content, specs, req.Refs)
	if err != nil {
		return nil, err
	}

	version := req.Version
	if version == "" {
		version = models.InitialVersion
	}
	fields := ComputeSharedFields(r.policy, req.Ref, version, r.now())

	html, err := Assemble(req.Title, specs, sections, fields)
	if err != nil {
		return nil, err
	}

	r.logger.Info("pipeline run complete",
		zap.String("ref", req.Ref),
		zap.Int("sections", len(sections)),
		zap.Int("warnings", len(warnings)))

	return &Result{HTML: html, Fields: fields, Sections: sections, Warnings: warnings}, nil
}
