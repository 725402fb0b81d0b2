package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
)

// OpenDocument packages (odp, ods) keep their body in content.xml; visible
// text lives in text:p, text:span, and (for presentations) text:h elements.
var (
	odfPresentationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`),
		regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`),
		regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`),
	}
	odfSpreadsheetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`),
		regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`),
	}
)

const odfContentPath = "content.xml"

// readOpenDocument extracts text from an OpenDocument zip using the given
// element patterns.
func readOpenDocument(content []byte, patterns []*regexp.Regexp) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: not a zip: %w", err)
	}
	contentXML, err := readZipEntry(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: %w", err)
	}
	s := string(contentXML)
	var all [][]string
	for _, re := range patterns {
		all = append(all, re.FindAllStringSubmatch(s, -1)...)
	}
	return joinMatches(all), nil
}
