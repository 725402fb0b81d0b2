// Package library ingests legacy documents into searchable storage so that
// generation requests can pull source material from past paperwork.
package library

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// SearchResult is a single library search hit.
type SearchResult struct {
	ID    string
	Score float64
}

// indexEntry is the shape stored in the Bleve index.
type indexEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Index is a Bleve full-text index over ingested legacy documents.
type Index struct {
	index bleve.Index
}

// NewIndex creates or opens a Bleve index at path. An existing index is
// reused so unchanged files are not re-indexed across restarts. Remove the
// index directory to force a full rebuild after a mapping change.
func NewIndex(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open library index: %w", openErr)
		}
		return &Index{index: idx}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so exact clinical
	// terms like "sterilization" match without stem collisions.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create library index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Add indexes a document under id.
func (x *Index) Add(ctx context.Context, id, title, content string) error {
	return x.index.Index(id, indexEntry{Title: title, Content: content})
}

// Search runs a match query over title and content and returns up to limit
// hits, best first.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]*SearchResult, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	res, err := x.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("library search failed: %w", err)
	}
	out := make([]*SearchResult, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &SearchResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a document from the index.
func (x *Index) Delete(ctx context.Context, id string) error {
	return x.index.Delete(id)
}

// DocCount returns the number of indexed documents.
func (x *Index) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close closes the index.
func (x *Index) Close() error {
	return x.index.Close()
}
