package models

import "strings"

// Person is one entry in the personnel allow-list.
type Person struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// Equipment is one entry in the equipment allow-list.
type Equipment struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Description string `json:"description,omitempty"`
}

// ReferenceDataset holds the allow-lists a generated document may draw names
// and identifiers from. Fetched once per generation request and treated as
// read-only for the duration of that request.
type ReferenceDataset struct {
	Personnel []Person    `json:"personnel"`
	Equipment []Equipment `json:"equipment"`
}

// ContainsName reports whether name matches a personnel entry,
// case-insensitively.
func (d *ReferenceDataset) ContainsName(name string) bool {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, p := range d.Personnel {
		if strings.ToLower(p.Name) == needle {
			return true
		}
	}
	return false
}

// PromptBlock renders the allow-lists as plain text for embedding in a
// generation prompt. Empty lists yield explicit "none recorded" lines so the
// model is not tempted to fill gaps.
func (d *ReferenceDataset) PromptBlock() string {
	var b strings.Builder
	b.WriteString("Known personnel (the only names you may use):\n")
	if len(d.Personnel) == 0 {
		b.WriteString("  none recorded; use role titles only\n")
	}
	for _, p := range d.Personnel {
		b.WriteString("  - " + p.Name + " (" + p.Role)
		if p.Department != "" {
			b.WriteString(", " + p.Department)
		}
		b.WriteString(")\n")
	}
	b.WriteString("Known equipment (the only identifiers you may use):\n")
	if len(d.Equipment) == 0 {
		b.WriteString("  none recorded\n")
	}
	for _, e := range d.Equipment {
		b.WriteString("  - " + e.Identifier)
		if e.Description != "" {
			b.WriteString(": " + e.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
