// Package extract provides best-effort text extraction from legacy document
// files. Extraction output is noisy by nature; downstream relevance filtering
// is responsible for cleaning it up.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"
)

// SourceDelimiter separates the text of multiple source files in a combined
// extract. The marker carries the file name so the filter can attribute
// content to a source.
const SourceDelimiter = "\n\n----- source: %s -----\n\n"

// ServiceError is an external-dependency failure from text extraction.
// Absence of text is terminal for that source and is not retried.
type ServiceError struct {
	Path string
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Service extracts plain text from document files.
type Service struct{}

// NewService returns a new extraction Service.
func NewService() *Service {
	return &Service{}
}

// Extract reads the file at path and returns its text content. Plain text
// formats are returned as-is (UTF-8 repaired); PDF, DOCX, ODT, RTF, XLSX,
// PPTX, ODP, and ODS are parsed from their binary formats. Failures are
// returned as *ServiceError.
func (s *Service) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	// lu4p/cat handles the OpenDocument text and RTF containers directly
	// from the file.
	switch ext {
	case ".odt", ".rtf":
		text, err := cat.File(path)
		if err != nil {
			return "", &ServiceError{Path: path, Err: err}
		}
		return text, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", &ServiceError{Path: path, Err: fmt.Errorf("read file: %w", err)}
	}
	text, err := s.fromBytes(content, ext)
	if err != nil {
		return "", &ServiceError{Path: path, Err: err}
	}
	return text, nil
}

// fromBytes extracts text from content based on ext (including the leading dot).
// Unknown extensions are treated as plain text.
func (s *Service) fromBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return readPDF(content)
	case ".docx":
		return readDOCX(content)
	case ".xlsx":
		return readWorkbook(content)
	case ".pptx":
		return readSlides(content)
	case ".odp":
		return readOpenDocument(content, odfPresentationPatterns)
	case ".ods":
		return readOpenDocument(content, odfSpreadsheetPatterns)
	default:
		return readPlain(content)
	}
}

// ExtractAll extracts every path and concatenates the results with a
// per-source delimiter. Any source failing terminally fails the whole pass;
// partial source sets are not silently assembled.
func (s *Service) ExtractAll(paths []string) (string, error) {
	var b strings.Builder
	for _, path := range paths {
		text, err := s.Extract(path)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", &ServiceError{Path: path, Err: fmt.Errorf("no text content")}
		}
		if b.Len() > 0 {
			b.WriteString(fmt.Sprintf(SourceDelimiter, filepath.Base(path)))
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
