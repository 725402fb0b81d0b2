package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/extract"
	"github.com/caredocs/attesta/internal/storage"
)

// DocID returns a stable document id for an absolute file path. The same path
// always yields the same id, so re-ingesting a changed file updates the
// existing record instead of duplicating it.
func DocID(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return "file:" + hex.EncodeToString(hash[:])
}

// Ingester extracts text from legacy files and records them in storage and
// the search index.
type Ingester struct {
	store      storage.Storage
	index      *Index
	extractor  *extract.Service
	extensions []string
	logger     *zap.Logger
}

func NewIngester(store storage.Storage, index *Index, extractor *extract.Service, extensions []string, logger *zap.Logger) *Ingester {
	return &Ingester{
		store:      store,
		index:      index,
		extractor:  extractor,
		extensions: extensions,
		logger:     logger,
	}
}

// IngestFile extracts path and stores it under its path-derived id. An
// unchanged file (same path, ingest record newer than the file) is skipped
// apart from refreshing the search index entry.
func (g *Ingester) IngestFile(ctx context.Context, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	if !g.extensionAllowed(absPath) {
		return "", fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a regular file: %s", absPath)
	}

	id := DocID(absPath)
	title := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))

	if existing, err := g.store.GetLegacyDocument(ctx, id); err == nil &&
		existing.Path == absPath && existing.IngestedAt >= info.ModTime().Unix() {
		// Bleve may have been opened empty; make sure the entry is present.
		if err := g.index.Add(ctx, id, titleForSearch(title), existing.Content); err != nil {
			return "", fmt.Errorf("failed to index document: %w", err)
		}
		g.logger.Debug("Skipping unchanged file", zap.String("path", absPath))
		return id, nil
	}

	text, err := g.extractor.Extract(absPath)
	if err != nil {
		return "", err
	}
	doc := &storage.LegacyDocument{
		ID:         id,
		Path:       absPath,
		Title:      title,
		Content:    text,
		IngestedAt: info.ModTime().Unix(),
	}
	if err := g.store.UpsertLegacyDocument(ctx, doc); err != nil {
		return "", err
	}
	if err := g.index.Add(ctx, id, titleForSearch(title), text); err != nil {
		return "", fmt.Errorf("failed to index document: %w", err)
	}
	g.logger.Debug("File ingested", zap.String("path", absPath), zap.String("doc_id", id))
	return id, nil
}

// IngestDirectory walks dir and ingests every regular file with an allowed
// extension. Returns the number of files ingested and the first error.
func (g *Ingester) IngestDirectory(ctx context.Context, dir string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	n := 0
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !g.extensionAllowed(path) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := g.IngestFile(ctx, path); ingestErr != nil {
			return ingestErr
		}
		n++
		return nil
	})
	return n, err
}

// RemoveFile drops the record and index entry for a deleted file.
func (g *Ingester) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	id := DocID(absPath)
	if err := g.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove from index: %w", err)
	}
	if err := g.store.DeleteLegacyDocument(ctx, id); err != nil {
		return err
	}
	g.logger.Debug("File removed", zap.String("path", absPath), zap.String("doc_id", id))
	return nil
}

func (g *Ingester) extensionAllowed(path string) bool {
	if len(g.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, a := range g.extensions {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}

// titleForSearch replaces underscores with spaces so a filename like
// "hand_hygiene_sop_2023" matches the query "hand hygiene".
func titleForSearch(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}
