// Package models defines core data structures for objectives, sections,
// generated documents, versions, non-conformities, and reference data.
package models

import (
	"fmt"
	"strings"
)

// ObjectiveContext identifies the compliance clause a document is written to
// satisfy. Immutable once selected; read-only input to the pipeline.
type ObjectiveContext struct {
	Code           string `json:"code"`
	Title          string `json:"title"`
	Interpretation string `json:"interpretation,omitempty"`
}

// Validate ensures the objective has at least a code and a title.
func (o *ObjectiveContext) Validate() error {
	if strings.TrimSpace(o.Code) == "" {
		return fmt.Errorf("objective code cannot be empty")
	}
	if strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("objective title cannot be empty")
	}
	return nil
}
