package pipeline

import (
	"strings"

	"github.com/caredocs/attesta/pkg/utils"
)

// Block labels for merged context, emitted in this fixed order.
const (
	labelTitle          = "## Objective"
	labelInterpretation = "## Interpretation"
	labelContent        = "## Relevant Content"
)

// Merge concatenates objective metadata and filtered content into one ordered
// context blob. Each block appears under a fixed labeled heading, in fixed
// order, and is emitted only when non-empty; merging the same inputs always
// yields byte-identical output. Fails with ErrNoContent when every input is
// empty.
func Merge(title, interpretation, filtered string) (string, error) {
	blocks := []struct {
		label string
		text  string
	}{
		{labelTitle, strings.TrimSpace(title)},
		{labelInterpretation, strings.TrimSpace(interpretation)},
		{labelContent, utils.CollapseBlankLines(strings.TrimSpace(filtered))},
	}

	var parts []string
	for _, b := range blocks {
		if b.text == "" {
			continue
		}
		parts = append(parts, b.label+"\n"+b.text)
	}
	if len(parts) == 0 {
		return "", ErrNoContent
	}
	return strings.Join(parts, "\n\n"), nil
}
