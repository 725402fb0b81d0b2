package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/extract"
	"github.com/caredocs/attesta/internal/storage"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "library.bleve"))
	if err != nil {
		t.Fatalf("NewIndex error: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func newTestIngester(t *testing.T) (*Ingester, storage.Storage, *Index) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	idx := newTestIndex(t)
	ing := NewIngester(store, idx, extract.NewService(), []string{"txt", "md"}, zap.NewNop())
	return ing, store, idx
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDocID_StableAndPathSensitive(t *testing.T) {
	a := DocID("/library/sop.txt")
	if a != DocID("/library/sop.txt") {
		t.Error("same path produced different ids")
	}
	if a == DocID("/library/other.txt") {
		t.Error("different paths produced the same id")
	}
	// Path cleaning normalizes redundant separators.
	if a != DocID("/library//sop.txt") {
		t.Error("unclean path produced a different id")
	}
}

func TestIndex_SearchMatchesContentAndTitle(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "d1", "hand hygiene sop", "Wash hands before patient contact."); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(ctx, "d2", "equipment log", "Autoclave maintenance schedule."); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "hygiene", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "d1" {
		t.Errorf("hits = %+v", hits)
	}

	hits, err = idx.Search(ctx, "autoclave", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "d2" {
		t.Errorf("hits = %+v", hits)
	}

	if err := idx.Delete(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	hits, _ = idx.Search(ctx, "hygiene", 10)
	if len(hits) != 0 {
		t.Errorf("deleted document still matched: %+v", hits)
	}
}

func TestIngester_FileRoundTrip(t *testing.T) {
	ing, store, idx := newTestIngester(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeFile(t, dir, "hand_hygiene_sop.txt", "Five moments of hand hygiene.")
	id, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatalf("IngestFile error: %v", err)
	}

	doc, err := store.GetLegacyDocument(ctx, id)
	if err != nil {
		t.Fatalf("GetLegacyDocument error: %v", err)
	}
	if doc.Title != "hand_hygiene_sop" || doc.Content != "Five moments of hand hygiene." {
		t.Errorf("doc = %+v", doc)
	}

	// Underscored filenames are searchable as words.
	hits, err := idx.Search(ctx, "hygiene sop", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != id {
		t.Errorf("hits = %+v", hits)
	}

	if err := ing.RemoveFile(ctx, path); err != nil {
		t.Fatalf("RemoveFile error: %v", err)
	}
	if _, err := store.GetLegacyDocument(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestIngester_SkipsUnchangedFile(t *testing.T) {
	ing, store, _ := newTestIngester(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := writeFile(t, dir, "note.txt", "original")
	id, err := ing.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	// Second ingest of the untouched file keeps the stored record.
	if _, err := ing.IngestFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	doc, _ := store.GetLegacyDocument(ctx, id)
	if doc.Content != "original" {
		t.Errorf("content = %q", doc.Content)
	}

	// A genuinely newer file is re-extracted.
	if err := os.WriteFile(path, []byte("updated"), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.IngestFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	doc, _ = store.GetLegacyDocument(ctx, id)
	if doc.Content != "updated" {
		t.Errorf("content after update = %q", doc.Content)
	}
}

func TestIngester_Directory(t *testing.T) {
	ing, store, _ := newTestIngester(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, "a.txt", "alpha content")
	writeFile(t, dir, "b.md", "beta content")
	writeFile(t, dir, "ignored.bin", "binary blob")

	n, err := ing.IngestDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("IngestDirectory error: %v", err)
	}
	if n != 2 {
		t.Errorf("ingested %d files, want 2", n)
	}
	count, err := store.CountLegacyDocuments(ctx)
	if err != nil || count != 2 {
		t.Errorf("count = %d, err = %v", count, err)
	}
}

func TestIngester_RejectsDisallowedExtension(t *testing.T) {
	ing, _, _ := newTestIngester(t)
	path := writeFile(t, t.TempDir(), "image.png", "not text")
	if _, err := ing.IngestFile(context.Background(), path); err == nil {
		t.Error("disallowed extension accepted")
	}
}

func TestWatcher_IngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	ingested := make(chan string, 8)
	w := NewWatcher([]string{dir}, []string{"txt"}, true,
		func(path string) { ingested <- path },
		nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer w.Stop()

	path := writeFile(t, dir, "new.txt", "fresh content")

	select {
	case got := <-ingested:
		if filepath.Clean(got) != filepath.Clean(path) {
			t.Errorf("ingested %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("file was not ingested")
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	ingested := make(chan string, 8)
	w := NewWatcher([]string{dir}, []string{"txt"}, false,
		func(path string) { ingested <- path },
		nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	writeFile(t, dir, "skip.bin", "binary")

	select {
	case got := <-ingested:
		t.Errorf("unexpected ingest of %q", got)
	case <-time.After(900 * time.Millisecond):
	}
}

func TestWatcher_AddRemoveDirectory(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	w := NewWatcher([]string{first}, nil, true, func(string) {}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(second, false); err != nil {
		t.Fatalf("AddDirectory error: %v", err)
	}
	if got := len(w.Directories()); got != 2 {
		t.Errorf("got %d roots, want 2", got)
	}
	// Adding the same root twice is a no-op.
	if err := w.AddDirectory(second, false); err != nil {
		t.Fatal(err)
	}
	if got := len(w.Directories()); got != 2 {
		t.Errorf("got %d roots after duplicate add, want 2", got)
	}

	if err := w.RemoveDirectory(second); err != nil {
		t.Fatalf("RemoveDirectory error: %v", err)
	}
	if got := len(w.Directories()); got != 1 {
		t.Errorf("got %d roots after remove, want 1", got)
	}
}
