package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/config"
	"github.com/caredocs/attesta/internal/extract"
	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/library"
	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/internal/pipeline"
	"github.com/caredocs/attesta/internal/reference"
	"github.com/caredocs/attesta/internal/refine"
	"github.com/caredocs/attesta/internal/storage"
)

// fakeClient answers filter, section, and refinement prompts by inspecting
// the prompt text.
type fakeClient struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeClient) Complete(ctx context.Context, prompt string, params genai.Params) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	switch {
	case strings.Contains(prompt, "revising a hospital accreditation document"):
		return "<h3>Refined</h3><p>revised body</p>", nil
	case strings.Contains(prompt, "Never invent a personal name"):
		return "<h3>Purpose</h3><p>section body</p>", nil
	default:
		return "- relevant item one\n- relevant item two", nil
	}
}

func newTestServer(t *testing.T, client *fakeClient) (*Server, storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	blobs, err := storage.NewBlobStore(filepath.Join(dir, "blobs"), "/files")
	if err != nil {
		t.Fatal(err)
	}
	libIndex, err := library.NewIndex(filepath.Join(dir, "library.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { libIndex.Close() })

	logger := zap.NewNop()
	extractor := extract.NewService()
	filter := pipeline.NewFilter(client, "keep only items relevant to the objective", 0.2, 2048)
	gen := pipeline.NewGenerator(client, 0.6, 8192, logger)
	policy := pipeline.Policy{
		DocumentCode:         "QMS",
		EffectiveOffsetDays:  7,
		ReviewIntervalMonths: 24,
		Organization:         "General Hospital",
	}
	runner := pipeline.NewRunner(filter, gen, policy, logger, nil)

	srv := NewServer(Options{
		Store:     store,
		Blobs:     blobs,
		Runner:    runner,
		Refs:      reference.NewLoader(store),
		Refiner:   refine.NewManager(store, client, genai.Params{Temperature: 0.7, MaxOutputTokens: 8192}, policy, logger, nil),
		LibIndex:  libIndex,
		Ingester:  library.NewIngester(store, libIndex, extractor, []string{"txt"}, logger),
		Extractor: extractor,
		Config:    &config.Config{},
		Logger:    logger,
	})
	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGenerateDocument(t *testing.T) {
	srv, store := newTestServer(t, &fakeClient{})
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/documents/generate", map[string]interface{}{
		"objective": map[string]string{
			"code":           "7.1.2",
			"title":          "Hand hygiene compliance",
			"interpretation": "Staff perform hand hygiene per protocol.",
		},
		"section_ids": []string{"procedure"},
		"source_text": "noisy legacy extract about hand hygiene",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Document models.GeneratedDocument `json:"document"`
		FileURL  string                   `json:"file_url"`
	}
	decode(t, rec, &resp)
	if resp.Document.Version != models.InitialVersion {
		t.Errorf("version = %q", resp.Document.Version)
	}
	if !strings.Contains(resp.Document.HTMLContent, "QMS-7.1.2") {
		t.Error("document number missing from assembled document")
	}
	if resp.FileURL == "" {
		t.Error("file_url missing")
	}

	// Stored with one version entry.
	versions, err := store.ListVersions(context.Background(), resp.Document.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || versions[0].Version != "1.0" {
		t.Errorf("versions = %+v", versions)
	}

	// Retrievable over the API.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+resp.Document.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	// The rendered file is served from the blob copy.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+resp.Document.ID+"/file", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("file status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("served file is not the rendered document")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/nope/file", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d", rec.Code)
	}
}

func TestStatusForPipelineError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pipeline.ErrEmptyInput, http.StatusBadRequest},
		{pipeline.ErrNoContent, http.StatusBadRequest},
		{pipeline.ErrMissingPrompt, http.StatusBadRequest},
		{fmt.Errorf("run: %w", pipeline.ErrMissingPrompt), http.StatusBadRequest},
		{&genai.ServiceError{StatusCode: http.StatusServiceUnavailable, Err: fmt.Errorf("busy")}, http.StatusBadGateway},
		{&pipeline.GenerationError{SectionID: "procedure", Err: fmt.Errorf("boom")}, http.StatusBadGateway},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForPipelineError(tt.err); got != tt.want {
			t.Errorf("statusForPipelineError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	router := srv.Router()

	objective := map[string]string{"code": "7.1.2", "title": "T", "interpretation": "I"}

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing objective", map[string]interface{}{"section_ids": []string{"procedure"}, "source_text": "x"}},
		{"unknown section", map[string]interface{}{"objective": objective, "section_ids": []string{"bogus"}, "source_text": "x"}},
		{"no sections", map[string]interface{}{"objective": objective, "source_text": "x"}},
		{"empty source", map[string]interface{}{"objective": objective, "section_ids": []string{"procedure"}, "source_text": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/documents/generate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGenerateServiceFailure(t *testing.T) {
	client := &fakeClient{fail: &genai.ServiceError{StatusCode: 503, Err: fmt.Errorf("overloaded")}}
	srv, _ := newTestServer(t, client)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/documents/generate", map[string]interface{}{
		"objective":   map[string]string{"code": "7.1.2", "title": "T", "interpretation": "I"},
		"section_ids": []string{"procedure"},
		"source_text": "content",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGetMissingDocument(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/documents/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestNCEvidenceLifecycle(t *testing.T) {
	srv, store := newTestServer(t, &fakeClient{})
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/ncs/", map[string]string{
		"title":          "Expired reagents found in lab storage",
		"objective_code": "5.3.1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var nc models.NC
	decode(t, rec, &nc)
	if nc.Status != models.NCStatusOpen {
		t.Errorf("new nc status = %q", nc.Status)
	}

	// Open -> In Progress -> Closed -> Open.
	for _, want := range []models.NCStatus{models.NCStatusInProgress, models.NCStatusClosed, models.NCStatusOpen} {
		rec = doJSON(t, router, http.MethodPost, "/api/v1/ncs/"+nc.ID+"/advance", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("advance status = %d", rec.Code)
		}
		var got models.NC
		decode(t, rec, &got)
		if got.Status != want {
			t.Errorf("status = %q, want %q", got.Status, want)
		}
	}

	// First evidence generation creates version 1.0 and links the document.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/ncs/"+nc.ID+"/evidence", map[string]interface{}{
		"source_text": "Reagents disposed, stock rotation procedure introduced.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("evidence status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var evResp struct {
		NC       models.NC                `json:"nc"`
		Document models.GeneratedDocument `json:"document"`
	}
	decode(t, rec, &evResp)
	if evResp.NC.EvidenceDocID != evResp.Document.ID {
		t.Error("evidence link not set")
	}
	if evResp.Document.Version != "1.0" {
		t.Errorf("first evidence version = %q", evResp.Document.Version)
	}

	// Regeneration keeps the document id and appends the next version.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/ncs/"+nc.ID+"/evidence", map[string]interface{}{
		"source_text": "Additional training records attached.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("regenerate status = %d", rec.Code)
	}
	var evResp2 struct {
		Document models.GeneratedDocument `json:"document"`
	}
	decode(t, rec, &evResp2)
	if evResp2.Document.ID != evResp.Document.ID {
		t.Error("regeneration replaced the evidence document id")
	}
	if evResp2.Document.Version != "1.1" {
		t.Errorf("regenerated version = %q", evResp2.Document.Version)
	}
	versions, err := store.ListVersions(context.Background(), evResp.Document.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("got %d versions, want 2", len(versions))
	}

	// Clearing evidence unlinks but keeps the document and its history.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/ncs/"+nc.ID+"/evidence", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	var cleared models.NC
	decode(t, rec, &cleared)
	if cleared.EvidenceDocID != "" {
		t.Error("evidence link not cleared")
	}
	if _, err := store.GetDocument(context.Background(), evResp.Document.ID); err != nil {
		t.Errorf("evidence document removed by clear: %v", err)
	}
}

func TestRefineFlow(t *testing.T) {
	srv, store := newTestServer(t, &fakeClient{})
	router := srv.Router()

	doc := &models.GeneratedDocument{
		ID: "doc-1", Ref: "7.1.2", Title: "SOP",
		HTMLContent: "<h1>original</h1>", Version: "1.0", Status: models.DocumentStatusDraft,
	}
	if err := store.UpsertDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendVersion(context.Background(), &models.DocumentVersion{
		ID: "v1", DocumentID: doc.ID, Version: "1.0", Content: doc.HTMLContent,
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var started struct {
		Phase string `json:"phase"`
	}
	decode(t, rec, &started)
	if started.Phase != refine.PhaseContext {
		t.Errorf("phase = %q", started.Phase)
	}

	// Regenerating before the phases are done is rejected.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine/regenerate", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("early regenerate status = %d", rec.Code)
	}

	for _, fb := range []string{"be specific about the ward", "", "cite the objective", "plain language"} {
		rec = doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine/feedback", map[string]string{"feedback": fb})
		if rec.Code != http.StatusOK {
			t.Fatalf("feedback status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine/regenerate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var regenerated models.GeneratedDocument
	decode(t, rec, &regenerated)
	if regenerated.Version != "1.1" {
		t.Errorf("version = %q", regenerated.Version)
	}
	if !strings.Contains(regenerated.HTMLContent, "<!DOCTYPE html>") ||
		!strings.Contains(regenerated.HTMLContent, "revised body") {
		t.Errorf("refined document not standalone: %q", regenerated.HTMLContent)
	}

	versions, _ := store.ListVersions(context.Background(), "doc-1")
	if len(versions) != 2 {
		t.Errorf("got %d versions, want 2", len(versions))
	}
}

func TestRefineCancel(t *testing.T) {
	srv, store := newTestServer(t, &fakeClient{})
	router := srv.Router()

	doc := &models.GeneratedDocument{
		ID: "doc-1", Ref: "7.1.2", HTMLContent: "<h1>x</h1>", Version: "1.0", Status: models.DocumentStatusDraft,
	}
	if err := store.UpsertDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine", nil)
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine/feedback", map[string]string{"feedback": "note"})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/documents/doc-1/refine", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", rec.Code)
	}

	// A fresh session starts from the first phase again.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/documents/doc-1/refine", nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("restart status = %d", rec.Code)
	}
}

func TestReferenceCRUD(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/reference/personnel", map[string]string{
		"name": "Amara Okafor", "role": "Infection Control Nurse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add person status = %d", rec.Code)
	}
	var p models.Person
	decode(t, rec, &p)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/reference/personnel", map[string]string{"name": "No Role"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing role status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reference/personnel", nil)
	var list struct {
		Personnel []models.Person `json:"personnel"`
	}
	decode(t, rec, &list)
	if len(list.Personnel) != 1 {
		t.Errorf("personnel = %+v", list.Personnel)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/reference/personnel/"+p.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/reference/equipment", map[string]string{
		"identifier": "AUTOCLAVE-01", "description": "Steam sterilizer",
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("add equipment status = %d", rec.Code)
	}
}

func TestLibraryIngestAndSearch(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	router := srv.Router()

	dir := t.TempDir()
	path := filepath.Join(dir, "hand_hygiene_sop.txt")
	if err := os.WriteFile(path, []byte("Five moments of hand hygiene."), 0644); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/library/ingest", map[string]string{"path": dir})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ingestResp struct {
		Ingested int `json:"ingested"`
	}
	decode(t, rec, &ingestResp)
	if ingestResp.Ingested != 1 {
		t.Errorf("ingested = %d", ingestResp.Ingested)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/library/search", map[string]interface{}{"query": "hygiene"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var searchResp struct {
		Results []struct {
			Path  string `json:"path"`
			Title string `json:"title"`
		} `json:"results"`
	}
	decode(t, rec, &searchResp)
	if len(searchResp.Results) != 1 || searchResp.Results[0].Title != "hand_hygiene_sop" {
		t.Errorf("results = %+v", searchResp.Results)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/library/search", map[string]string{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	decode(t, rec, &resp)
	for _, key := range []string{"documents", "ncs", "legacy_documents"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
}
