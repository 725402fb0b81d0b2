package models

import "fmt"

// SectionSpec describes one independently generated output type. Specs are
// statically defined; users select which ones to generate by id.
type SectionSpec struct {
	ID                  string `json:"id"`
	InstructionTemplate string `json:"-"`
	PageTitle           string `json:"page_title"`
	Department          string `json:"department"`
	Category            string `json:"category"`
}

// GeneratedSection is the sanitized output of one generation call. The
// fragment carries no page chrome; headers and footers are applied at
// assembly time.
type GeneratedSection struct {
	SectionID    string `json:"section_id"`
	HTMLFragment string `json:"html_fragment"`
}

// builtinSections is the static registry of section types.
var builtinSections = []SectionSpec{
	{
		ID:        "procedure",
		PageTitle: "Standard Operating Procedure",
		Category:  "SOP",
		InstructionTemplate: `Write the body of a Standard Operating Procedure as an HTML fragment.
Structure it with these numbered parts, each under an <h3> heading:
1. Purpose, 2. Scope, 3. Responsibilities, 4. Procedure steps, 5. Related records.
Procedure steps must be an <ol> list of concrete, verifiable actions.
Use only the facts present in the source content below; do not invent measurements, frequencies, or thresholds.`,
	},
	{
		ID:         "corrective_action",
		PageTitle:  "Corrective Action Report",
		Category:   "Evidence",
		Department: "Quality",
		InstructionTemplate: `Write a corrective action report as an HTML fragment with these parts under <h3> headings:
Problem description, Root cause analysis, Corrective actions taken, Verification of effectiveness.
Corrective actions must be a <ul> list, each item naming the responsible role and completion status.`,
	},
	{
		ID:         "training_record",
		PageTitle:  "Staff Training Record",
		Category:   "Evidence",
		Department: "Human Resources",
		InstructionTemplate: `Write a staff training record as an HTML fragment containing an HTML <table> with columns:
Topic, Participants (roles), Trainer (role), Date, Evaluation method.
Derive rows only from the source content; leave out rows for which no information exists.`,
	},
	{
		ID:         "audit_checklist",
		PageTitle:  "Internal Audit Checklist",
		Category:   "Evidence",
		Department: "Quality",
		InstructionTemplate: `Write an internal audit checklist as an HTML fragment containing an HTML <table> with columns:
Item, Requirement, Conformity (Yes/No/Partial), Remarks.
Derive each checklist item from a requirement stated in the source content.`,
	},
}

// SectionSpecByID returns the static spec for id.
func SectionSpecByID(id string) (SectionSpec, error) {
	for _, s := range builtinSections {
		if s.ID == id {
			return s, nil
		}
	}
	return SectionSpec{}, fmt.Errorf("unknown section id: %s", id)
}

// SectionSpecs resolves a list of section ids to specs, preserving order.
func SectionSpecs(ids []string) ([]SectionSpec, error) {
	specs := make([]SectionSpec, 0, len(ids))
	for _, id := range ids {
		spec, err := SectionSpecByID(id)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// AllSectionSpecs returns every statically defined section spec.
func AllSectionSpecs() []SectionSpec {
	out := make([]SectionSpec, len(builtinSections))
	copy(out, builtinSections)
	return out
}
