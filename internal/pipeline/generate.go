package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/pkg/utils"
	"go.uber.org/zap"
)

// hazardRules is the fixed instruction block that mitigates the two known
// generation hazards: invented personal names and unfilled placeholders.
const hazardRules = `Rules:
- Use ONLY personal names from the known-personnel list below. Never invent a personal name.
- When no listed person fits, refer to the role only (e.g. "the head nurse"), not a name.
- Use ONLY equipment identifiers from the known-equipment list below.
- Do not leave bracketed placeholders such as [insert name] or [date] in the output.
- Output a clean HTML fragment only: no doctype, no <html>, <head>, <style>, or <body> tags, no markdown code fences.`

// Generator invokes the generative text service once per requested section.
type Generator struct {
	client genai.Client
	params genai.Params
	logger *zap.Logger
}

// NewGenerator creates a Generator using the given temperature and output
// budget for every section call.
func NewGenerator(client genai.Client, temperature float64, maxTokens int, logger *zap.Logger) *Generator {
	return &Generator{
		client: client,
		params: genai.Params{Temperature: temperature, MaxOutputTokens: maxTokens},
		logger: logger,
	}
}

// indexed pairs a completed section with the index of its spec, so fan-in can
// restore caller order regardless of completion order.
type indexed struct {
	idx     int
	section models.GeneratedSection
	warns   []Warning
	err     error
}

// GenerateSections generates one section per spec concurrently and waits for
// all of them. Results are returned in spec order, not completion order. If
// any section fails, the whole attempt fails with that section's id and all
// completed sections are discarded. Calls are never retried here: retrying a
// paid generative call is a caller decision.
func (g *Generator) GenerateSections(
	ctx context.Context,
	content string,
	specs []models.SectionSpec,
	refs *models.ReferenceDataset,
) ([]models.GeneratedSection, []Warning, error) {
	results := make([]indexed, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec models.SectionSpec) {
			defer wg.Done()
			results[i] = g.generateOne(ctx, i, content, spec, refs)
		}(i, spec)
	}
	wg.Wait()

	// Report the first failure in spec order; everything else is discarded.
	for _, r := range results {
		if r.err != nil {
			return nil, nil, r.err
		}
	}

	sections := make([]models.GeneratedSection, len(specs))
	var warnings []Warning
	for _, r := range results {
		sections[r.idx] = r.section
		warnings = append(warnings, r.warns...)
	}
	return sections, warnings, nil
}

func (g *Generator) generateOne(
	ctx context.Context,
	idx int,
	content string,
	spec models.SectionSpec,
	refs *models.ReferenceDataset,
) indexed {
	prompt := buildSectionPrompt(content, spec, refs)
	g.logger.Debug("generating section",
		zap.String("section_id", spec.ID),
		zap.Int("prompt_len", len(prompt)),
		zap.String("prompt_head", utils.Truncate(prompt, 120)))

	raw, err := g.client.Complete(ctx, prompt, g.params)
	if err != nil {
		return indexed{idx: idx, err: &GenerationError{SectionID: spec.ID, Err: err}}
	}

	fragment := Sanitize(raw)
	warns := Validate(spec.ID, fragment, refs)
	for _, w := range warns {
		g.logger.Warn("section validation warning",
			zap.String("section_id", w.SectionID),
			zap.String("kind", w.Kind),
			zap.String("detail", w.Detail))
	}
	return indexed{
		idx:     idx,
		section: models.GeneratedSection{SectionID: spec.ID, HTMLFragment: fragment},
		warns:   warns,
	}
}

func buildSectionPrompt(content string, spec models.SectionSpec, refs *models.ReferenceDataset) string {
	var b strings.Builder
	b.WriteString(hazardRules)
	b.WriteString("\n\n")
	if refs != nil {
		b.WriteString(refs.PromptBlock())
		b.WriteString("\n")
	}
	b.WriteString(spec.InstructionTemplate)
	b.WriteString("\n\nSource content:\n")
	b.WriteString(content)
	return b.String()
}
