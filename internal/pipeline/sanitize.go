package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/caredocs/attesta/internal/models"
)

// Warning kinds surfaced by Validate. Warnings are advisory data-quality
// signals; the document is still returned.
const (
	WarnUnfilledPlaceholder = "unfilled_placeholder"
	WarnInventedName        = "invented_name"
)

// placeholderWarnThreshold is the minimum count of unfilled-placeholder
// phrasings before a warning is raised.
const placeholderWarnThreshold = 3

// Warning is a non-fatal data-quality signal attached to a generated section.
type Warning struct {
	SectionID string `json:"section_id,omitempty"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
}

var (
	// Code fences around the whole response, e.g. ```html ... ```.
	reLeadingFence  = regexp.MustCompile("(?s)\\A\\s*```[a-zA-Z]*\\s*\n?")
	reTrailingFence = regexp.MustCompile("(?s)\n?```\\s*\\z")

	// Document-level wrapper elements. Section output is fragment-only by
	// contract; a full HTML document shell is stripped down to body content.
	reDoctype   = regexp.MustCompile(`(?i)<!DOCTYPE[^>]*>`)
	reHTMLOpen  = regexp.MustCompile(`(?i)</?html[^>]*>`)
	reHead      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	reStyle     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reBodyTag   = regexp.MustCompile(`(?i)</?body[^>]*>`)
	reBodyInner = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

	// Bracketed instructional text echoed back by the model, e.g.
	// "[insert name]", "[Enter date here]", "[TODO: specify interval]".
	rePlaceholder = regexp.MustCompile(`(?i)\[\s*(insert|enter|add|specify|todo|fill|your|name|date)[^\]\n]*\]`)
)

// genericNames are common invented personal names the validator scans for.
// Any of these appearing outside the allow-list is suspicious: the generator
// is instructed to use only allow-listed names or role-only references.
var genericNames = []string{
	"John Doe", "Jane Doe", "John Smith", "Jane Smith",
	"Dr. Smith", "Dr. Johnson", "Dr. Brown", "Nurse Joy",
	"Mary Johnson", "Robert Brown",
}

// Sanitize strips formatting artifacts from a raw model response: leading and
// trailing code fences, then any document-level wrapper (doctype, html, head,
// style, body), then surrounding whitespace. The result is a bare fragment.
func Sanitize(raw string) string {
	s := reLeadingFence.ReplaceAllString(raw, "")
	s = reTrailingFence.ReplaceAllString(s, "")

	if m := reBodyInner.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = reDoctype.ReplaceAllString(s, "")
	s = reHead.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reHTMLOpen.ReplaceAllString(s, "")
	s = reBodyTag.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

// Validate scans a sanitized fragment for two hazard classes: unfilled
// template placeholders and invented personal names outside the allow-list.
// Both are heuristics for data-quality monitoring, not hard gates.
func Validate(sectionID, fragment string, refs *models.ReferenceDataset) []Warning {
	var warnings []Warning

	if n := len(rePlaceholder.FindAllString(fragment, -1)); n >= placeholderWarnThreshold {
		warnings = append(warnings, Warning{
			SectionID: sectionID,
			Kind:      WarnUnfilledPlaceholder,
			Detail:    fmt.Sprintf("%d unfilled placeholder phrasings found", n),
		})
	}

	for _, name := range genericNames {
		if !strings.Contains(fragment, name) {
			continue
		}
		if refs != nil && refs.ContainsName(name) {
			continue
		}
		warnings = append(warnings, Warning{
			SectionID: sectionID,
			Kind:      WarnInventedName,
			Detail:    fmt.Sprintf("suspected invented name %q not in personnel allow-list", name),
		})
	}
	return warnings
}
