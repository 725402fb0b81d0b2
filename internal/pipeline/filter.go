package pipeline

import (
	"context"
	"strings"

	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/models"
)

// bulletMarkers are the accepted list markers the filter scans for when
// trimming conversational preamble from a model response. Order here does not
// matter; the earliest occurrence in the text wins.
var bulletMarkers = []string{"- ", "* ", "• ", "1. "}

// Filter narrows noisy extracted source text to what pertains to one
// compliance objective, using the generative text service at low temperature.
type Filter struct {
	client      genai.Client
	instruction string
	params      genai.Params
}

// NewFilter creates a Filter. instruction is the externally configured filter
// instruction template; an empty instruction is rejected at run time, not
// silently defaulted.
func NewFilter(client genai.Client, instruction string, temperature float64, maxTokens int) *Filter {
	return &Filter{
		client:      client,
		instruction: instruction,
		params:      genai.Params{Temperature: temperature, MaxOutputTokens: maxTokens},
	}
}

// Run filters sourceText down to content relevant to the objective. Fails with
// ErrEmptyInput when sourceText is blank and ErrMissingPrompt when no
// instruction template is configured. Service failures propagate unretried.
func (f *Filter) Run(ctx context.Context, sourceText string, objective models.ObjectiveContext) (string, error) {
	if strings.TrimSpace(sourceText) == "" {
		return "", ErrEmptyInput
	}
	if strings.TrimSpace(f.instruction) == "" {
		return "", ErrMissingPrompt
	}

	prompt := f.buildPrompt(sourceText, objective)
	response, err := f.client.Complete(ctx, prompt, f.params)
	if err != nil {
		return "", err
	}
	return TrimPreamble(response), nil
}

func (f *Filter) buildPrompt(sourceText string, objective models.ObjectiveContext) string {
	var b strings.Builder
	b.WriteString(f.instruction)
	b.WriteString("\n\nCompliance objective ")
	b.WriteString(objective.Code)
	b.WriteString(": ")
	b.WriteString(objective.Title)
	if objective.Interpretation != "" {
		b.WriteString("\nInterpretation: ")
		b.WriteString(objective.Interpretation)
	}
	b.WriteString("\n\nSource text:\n")
	b.WriteString(sourceText)
	return b.String()
}

// TrimPreamble discards explanatory prose the model may have added before the
// first bulleted item. It scans for the earliest occurrence of any accepted
// bullet marker and truncates everything before it. Best effort: when no
// marker is found the response is kept unmodified.
func TrimPreamble(s string) string {
	earliest := -1
	for _, marker := range bulletMarkers {
		if idx := strings.Index(s, marker); idx >= 0 && (earliest < 0 || idx < earliest) {
			earliest = idx
		}
	}
	if earliest < 0 {
		return s
	}
	return s[earliest:]
}
