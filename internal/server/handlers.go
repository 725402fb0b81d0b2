package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/config"
	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/internal/pipeline"
	"github.com/caredocs/attesta/internal/refine"
	"github.com/caredocs/attesta/internal/storage"
)

type generateRequest struct {
	Objective   models.ObjectiveContext `json:"objective"`
	SectionIDs  []string                `json:"section_ids"`
	SourcePaths []string                `json:"source_paths"`
	SourceText  string                  `json:"source_text"`
	Title       string                  `json:"title"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Objective.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.SectionIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "section_ids is required")
		return
	}
	for _, id := range req.SectionIDs {
		if _, err := models.SectionSpecByID(id); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sourceText := req.SourceText
	if len(req.SourcePaths) > 0 {
		extracted, err := s.extractor.ExtractAll(req.SourcePaths)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if sourceText != "" {
			sourceText = extracted + "\n\n" + sourceText
		} else {
			sourceText = extracted
		}
	}

	refs, err := s.refs.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("reference snapshot failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = req.Objective.Title
	}

	res, err := s.runner.Run(r.Context(), pipeline.Request{
		Objective:  req.Objective,
		SectionIDs: req.SectionIDs,
		SourceText: sourceText,
		Refs:       refs,
		Ref:        req.Objective.Code,
		Title:      title,
	})
	if err != nil {
		s.logger.Error("generation failed", zap.String("objective", req.Objective.Code), zap.Error(err))
		s.respondError(w, statusForPipelineError(err), err.Error())
		return
	}

	doc := &models.GeneratedDocument{
		ID:          uuid.NewString(),
		Ref:         req.Objective.Code,
		Title:       title,
		HTMLContent: res.HTML,
		Version:     res.Fields.Version,
		Status:      models.DocumentStatusDraft,
	}
	fileURL, err := s.persistGenerated(r, doc)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"document": doc,
		"warnings": res.Warnings,
		"file_url": fileURL,
	})
}

// persistGenerated stores the document, appends its version entry, and writes
// the rendered file to the blob store. The database is authoritative; a blob
// write failure is logged but does not fail the request.
func (s *Server) persistGenerated(r *http.Request, doc *models.GeneratedDocument) (string, error) {
	ctx := r.Context()
	if err := s.store.UpsertDocument(ctx, doc); err != nil {
		s.logger.Error("document store failed", zap.Error(err))
		return "", err
	}
	v := &models.DocumentVersion{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Version:    doc.Version,
		Content:    doc.HTMLContent,
	}
	if err := s.store.AppendVersion(ctx, v); err != nil {
		s.logger.Error("version append failed", zap.Error(err))
		return "", err
	}
	fileURL := ""
	if s.blobs != nil {
		url, err := s.blobs.Put("documents", doc.ID+".html", []byte(doc.HTMLContent))
		if err != nil {
			s.logger.Warn("blob write failed", zap.String("document_id", doc.ID), zap.Error(err))
		} else {
			fileURL = url
		}
	}
	return fileURL, nil
}

func statusForPipelineError(err error) int {
	var svcErr *genai.ServiceError
	var genErr *pipeline.GenerationError
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput), errors.Is(err, pipeline.ErrNoContent),
		errors.Is(err, pipeline.ErrMissingPrompt):
		return http.StatusBadRequest
	case errors.As(err, &svcErr), errors.As(err, &genErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	docs, err := s.store.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.GeneratedDocument{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// handleGetDocumentFile serves the rendered HTML of a document. The blob copy
// is preferred; the database row backs it when the blob write was skipped.
func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	content := []byte(doc.HTMLContent)
	if s.blobs != nil {
		if data, err := s.blobs.Get("documents", id+".html"); err == nil {
			content = data
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.Warn("file write failed", zap.String("document_id", id), zap.Error(err))
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.blobs != nil {
		if err := s.blobs.Delete("documents", id+".html"); err != nil {
			s.logger.Warn("blob delete failed", zap.String("document_id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	versions, err := s.store.ListVersions(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if versions == nil {
		versions = []*models.DocumentVersion{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

func (s *Server) handleRefineStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.refiner.Start(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"document_id": id, "phase": session.Phase()})
}

func (s *Server) handleRefineFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	phase, err := s.refiner.Feedback(id, req.Feedback)
	if err != nil {
		s.respondError(w, http.StatusConflict, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": id, "phase": phase})
}

func (s *Server) handleRefineRegenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.refiner.Regenerate(r.Context(), id)
	if err != nil {
		var svcErr *genai.ServiceError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "document not found")
		case errors.As(err, &svcErr):
			s.respondError(w, http.StatusBadGateway, err.Error())
		default:
			s.respondError(w, http.StatusConflict, err.Error())
		}
		return
	}
	if s.blobs != nil {
		if _, err := s.blobs.Put("documents", doc.ID+".html", []byte(doc.HTMLContent)); err != nil {
			s.logger.Warn("blob write failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRefineCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.refiner.Cancel(id); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"document_id": id, "phase": refine.StateIdle})
}

func (s *Server) handleCreateNC(w http.ResponseWriter, r *http.Request) {
	var nc models.NC
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(nc.Title) == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	nc.ID = uuid.NewString()
	nc.Status = models.NCStatusOpen
	nc.EvidenceDocID = ""
	if err := s.store.CreateNC(r.Context(), &nc); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &nc)
}

func (s *Server) handleListNCs(w http.ResponseWriter, r *http.Request) {
	ncs, err := s.store.ListNCs(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ncs == nil {
		ncs = []*models.NC{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ncs": ncs})
}

func (s *Server) handleGetNC(w http.ResponseWriter, r *http.Request) {
	nc, err := s.store.GetNC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "nc not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, nc)
}

func (s *Server) handleAdvanceNC(w http.ResponseWriter, r *http.Request) {
	nc, err := s.store.GetNC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "nc not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	nc.Status = nc.Status.Advance()
	if err := s.store.UpdateNC(r.Context(), nc); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, nc)
}

type evidenceRequest struct {
	SourceText string   `json:"source_text"`
	SectionIDs []string `json:"section_ids"`
	Title      string   `json:"title"`
}

// handleGenerateEvidence builds an evidence document for an NC from curated
// source text, skipping relevance filtering. Regenerating appends the next
// version to the existing evidence document rather than discarding history.
func (s *Server) handleGenerateEvidence(w http.ResponseWriter, r *http.Request) {
	ncID := chi.URLParam(r, "id")
	nc, err := s.store.GetNC(r.Context(), ncID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "nc not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SourceText) == "" {
		s.respondError(w, http.StatusBadRequest, "source_text is required")
		return
	}
	sectionIDs := req.SectionIDs
	if len(sectionIDs) == 0 {
		sectionIDs = []string{"corrective_action"}
	}
	for _, id := range sectionIDs {
		if _, err := models.SectionSpecByID(id); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	refs, err := s.refs.Snapshot(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = "Evidence: " + nc.Title
	}

	// Regeneration continues the existing evidence document's version line.
	docID := nc.EvidenceDocID
	version := models.InitialVersion
	if docID != "" {
		if existing, err := s.store.GetDocument(r.Context(), docID); err == nil {
			version = models.NextVersion(existing.Version)
		} else {
			docID = ""
		}
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	res, err := s.runner.Run(r.Context(), pipeline.Request{
		SectionIDs: sectionIDs,
		SourceText: req.SourceText,
		Refs:       refs,
		Ref:        "NC-" + shortID(ncID),
		Version:    version,
		Title:      title,
		Freeform:   true,
	})
	if err != nil {
		s.logger.Error("evidence generation failed", zap.String("nc_id", ncID), zap.Error(err))
		s.respondError(w, statusForPipelineError(err), err.Error())
		return
	}

	doc := &models.GeneratedDocument{
		ID:          docID,
		Ref:         nc.ID,
		Title:       title,
		HTMLContent: res.HTML,
		Version:     version,
		Status:      models.DocumentStatusDraft,
	}
	fileURL, err := s.persistGenerated(r, doc)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	nc.EvidenceDocID = doc.ID
	if err := s.store.UpdateNC(r.Context(), nc); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"nc":       nc,
		"document": doc,
		"warnings": res.Warnings,
		"file_url": fileURL,
	})
}

// handleClearEvidence unlinks the NC's evidence document. The document and
// its version history are kept.
func (s *Server) handleClearEvidence(w http.ResponseWriter, r *http.Request) {
	nc, err := s.store.GetNC(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "nc not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	nc.EvidenceDocID = ""
	if err := s.store.UpdateNC(r.Context(), nc); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, nc)
}

func (s *Server) handleLibrarySearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 10
	}
	hits, err := s.libIndex.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type hitResponse struct {
		ID    string  `json:"id"`
		Path  string  `json:"path"`
		Title string  `json:"title"`
		Score float64 `json:"score"`
	}
	results := make([]hitResponse, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.store.GetLegacyDocument(r.Context(), hit.ID)
		if err != nil {
			// Index entry without a record: stale, skip it.
			continue
		}
		results = append(results, hitResponse{ID: doc.ID, Path: doc.Path, Title: doc.Title, Score: hit.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleLibraryIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "path not accessible")
		return
	}
	if info.IsDir() {
		n, err := s.ingester.IngestDirectory(r.Context(), req.Path)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"ingested": n})
		return
	}
	id, err := s.ingester.IngestFile(r.Context(), req.Path)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ingested": 1, "id": id})
}

func (s *Server) handleWatchList(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": []string{}})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watcher.Directories()})
}

func (s *Server) handleWatchAdd(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		s.respondError(w, http.StatusConflict, "library watcher is not running")
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watcher.AddDirectory(abs, true); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistLibraryDirs()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "watching"})
}

func (s *Server) handleWatchRemove(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		s.respondError(w, http.StatusConflict, "library watcher is not running")
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watcher.RemoveDirectory(abs); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistLibraryDirs()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistLibraryDirs() {
	if s.configPath == "" || s.cfg == nil || s.watcher == nil {
		return
	}
	s.cfgMu.Lock()
	s.cfg.Library.Directories = s.watcher.Directories()
	err := config.Save(s.configPath, s.cfg)
	s.cfgMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist library config", zap.Error(err))
	}
}

func (s *Server) handleListPersonnel(w http.ResponseWriter, r *http.Request) {
	people, err := s.store.ListPersonnel(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if people == nil {
		people = []models.Person{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"personnel": people})
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	var p models.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Role) == "" {
		s.respondError(w, http.StatusBadRequest, "name and role are required")
		return
	}
	p.ID = uuid.NewString()
	if err := s.store.AddPerson(r.Context(), &p); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &p)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListEquipment(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []models.Equipment{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"equipment": items})
}

func (s *Server) handleAddEquipment(w http.ResponseWriter, r *http.Request) {
	var e models.Equipment
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(e.Identifier) == "" {
		s.respondError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	e.ID = uuid.NewString()
	if err := s.store.AddEquipment(r.Context(), &e); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, &e)
}

func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEquipment(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.store.CountDocuments(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ncCount, err := s.store.CountNCs(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	legacyCount, err := s.store.CountLegacyDocuments(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents":        docCount,
		"ncs":              ncCount,
		"legacy_documents": legacyCount,
	}
	if s.libIndex != nil {
		if indexed, err := s.libIndex.DocCount(); err == nil {
			resp["library_index_size"] = indexed
		}
	}
	if s.cfg != nil {
		resp["config"] = map[string]interface{}{
			"model":               s.cfg.GenAI.Model,
			"database_path":       s.cfg.Storage.DatabasePath,
			"bleve_index_path":    s.cfg.Storage.BleveIndexPath,
			"library_directories": s.cfg.Library.Directories,
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// shortID returns the first segment of a UUID for human-readable references.
func shortID(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
