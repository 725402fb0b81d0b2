// Package cli provides CLI output utilities for Attesta.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/internal/pipeline"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// LibraryHit is one library search result as returned by the API.
type LibraryHit struct {
	ID    string  `json:"id"`
	Path  string  `json:"path"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// LibrarySearchResponse is the shape of POST /api/v1/library/search responses.
type LibrarySearchResponse struct {
	Results []LibraryHit `json:"results"`
}

// WriteLibraryResults writes library search results to w in the given format.
func WriteLibraryResults(w io.Writer, resp *LibrarySearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\nFound %d documents\n\n", len(resp.Results))
	for i, hit := range resp.Results {
		fmt.Fprintf(w, "%2d. %s  (score %.4f)\n    %s\n", i+1, hit.Title, hit.Score, hit.Path)
	}
	return nil
}

// GenerateResponse is the shape of POST /api/v1/documents/generate responses.
type GenerateResponse struct {
	Document models.GeneratedDocument `json:"document"`
	Warnings []pipeline.Warning       `json:"warnings"`
	FileURL  string                   `json:"file_url"`
}

// WriteGenerateResult writes a generation outcome to w in the given format.
func WriteGenerateResult(w io.Writer, resp *GenerateResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "Generated document %s\n", resp.Document.ID)
	fmt.Fprintf(w, "  title:   %s\n", resp.Document.Title)
	fmt.Fprintf(w, "  version: %s\n", resp.Document.Version)
	if resp.FileURL != "" {
		fmt.Fprintf(w, "  file:    %s\n", resp.FileURL)
	}
	for _, warn := range resp.Warnings {
		fmt.Fprintf(w, "  warning [%s] %s: %s\n", warn.Kind, warn.SectionID, warn.Detail)
	}
	return nil
}

// StatusResponse is the shape of GET /api/v1/status responses.
type StatusResponse struct {
	Documents        int64                  `json:"documents"`
	NCs              int64                  `json:"ncs"`
	LegacyDocuments  int64                  `json:"legacy_documents"`
	LibraryIndexSize uint64                 `json:"library_index_size,omitempty"`
	Config           map[string]interface{} `json:"config,omitempty"`
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, status *StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "documents:          %d   # generated documents\n", status.Documents)
	fmt.Fprintf(w, "ncs:                %d   # non-conformities\n", status.NCs)
	fmt.Fprintf(w, "legacy_documents:   %d   # ingested library documents\n", status.LegacyDocuments)
	if status.LibraryIndexSize > 0 {
		fmt.Fprintf(w, "library_index_size: %d   # entries in the search index\n", status.LibraryIndexSize)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		for _, key := range []string{"model", "database_path", "bleve_index_path"} {
			if v, ok := status.Config[key]; ok {
				fmt.Fprintf(w, "%-19s %v\n", key+":", v)
			}
		}
	}
	return nil
}
