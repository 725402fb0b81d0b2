// Package pipeline implements the document synthesis pipeline: relevance
// filtering of extracted source text, deterministic context merging, templated
// multi-section generation, response sanitization and validation, and final
// document assembly.
//
// Each stage is a function of its declared inputs plus the generative text
// service; no stage holds mutable state between runs.
package pipeline

import (
	"errors"
	"fmt"
)

// Caller-input failures. Reported immediately, never retried.
var (
	// ErrEmptyInput is returned when the source extract is empty or whitespace.
	ErrEmptyInput = errors.New("source text is empty")

	// ErrMissingPrompt is returned when no filter instruction template is
	// configured. The pipeline never fabricates a default instruction.
	ErrMissingPrompt = errors.New("no filter instruction template configured")

	// ErrNoContent is returned when all context blocks are empty; merging
	// nothing is not a valid operation.
	ErrNoContent = errors.New("no content to merge")
)

// GenerationError reports a failed section generation call. When several
// sections are generated together and any one fails, the whole attempt fails
// with the id of the failing section; sections that succeeded are discarded.
type GenerationError struct {
	SectionID string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed for section %q: %v", e.SectionID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
