package refine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caredocs/attesta/internal/genai"
	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/internal/pipeline"
	"github.com/caredocs/attesta/internal/storage"
)

// Manager owns at most one refinement session per document and performs the
// regeneration itself: fold the feedback into one prompt, rewrite the
// document, and append the result as the next version.
type Manager struct {
	store  storage.Storage
	client genai.Client
	params genai.Params
	policy pipeline.Policy
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. policy drives the shared fields of regenerated
// documents. now is injectable for tests; pass nil for time.Now.
func NewManager(store storage.Storage, client genai.Client, params genai.Params, policy pipeline.Policy, logger *zap.Logger, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:    store,
		client:   client,
		params:   params,
		policy:   policy,
		logger:   logger,
		now:      now,
		sessions: make(map[string]*Session),
	}
}

// Start opens a refinement session for documentID. A document has at most one
// session at a time.
func (m *Manager) Start(ctx context.Context, documentID string) (*Session, error) {
	if _, err := m.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[documentID]; exists {
		return nil, fmt.Errorf("refinement session already open for document %s", documentID)
	}
	session, err := NewSession(documentID)
	if err != nil {
		return nil, err
	}
	m.sessions[documentID] = session
	return session, nil
}

// Session returns the open session for documentID, if any.
func (m *Manager) Session(documentID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[documentID]
	return s, ok
}

// Feedback records feedback for the document's current phase and returns the
// phase the session moved to.
func (m *Manager) Feedback(documentID, text string) (string, error) {
	session, ok := m.Session(documentID)
	if !ok {
		return "", fmt.Errorf("no refinement session for document %s", documentID)
	}
	return session.Feedback(text)
}

// Cancel discards the document's session and all its feedback. The document
// and its version history are untouched.
func (m *Manager) Cancel(documentID string) error {
	session, ok := m.Session(documentID)
	if !ok {
		return fmt.Errorf("no refinement session for document %s", documentID)
	}
	if err := session.Cancel(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, documentID)
	m.mu.Unlock()
	return nil
}

// Regenerate rewrites the document from its current content and the session's
// folded feedback, then appends the result as the next version. On any
// failure the document and its version history are left untouched and the
// session stays open in the ready state.
func (m *Manager) Regenerate(ctx context.Context, documentID string) (*models.GeneratedDocument, error) {
	session, ok := m.Session(documentID)
	if !ok {
		return nil, fmt.Errorf("no refinement session for document %s", documentID)
	}
	if !session.Ready() {
		return nil, fmt.Errorf("session in %q, feedback phases not complete", session.Phase())
	}

	doc, err := m.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	prompt := buildRefinePrompt(doc.HTMLContent, session.FoldNotes())
	out, err := m.client.Complete(ctx, prompt, m.params)
	if err != nil {
		return nil, fmt.Errorf("regeneration failed: %w", err)
	}
	body := pipeline.Sanitize(out)
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("regeneration produced empty content")
	}

	next, err := m.nextVersion(ctx, doc)
	if err != nil {
		return nil, err
	}
	fields := pipeline.ComputeSharedFields(m.policy, doc.Ref, next, m.now())
	html, err := pipeline.Rewrap(doc.Title, body, fields)
	if err != nil {
		return nil, err
	}

	version := &models.DocumentVersion{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Version:    next,
		Content:    html,
	}
	if err := m.store.AppendVersion(ctx, version); err != nil {
		return nil, err
	}
	doc.HTMLContent = html
	doc.Version = next
	if err := m.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	if err := session.finish(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	delete(m.sessions, documentID)
	m.mu.Unlock()

	m.logger.Info("Document regenerated",
		zap.String("document_id", doc.ID),
		zap.String("version", next))
	return doc, nil
}

// nextVersion numbers the next version from the highest entry in the history,
// not from the document row. The two can disagree after a partially failed
// regeneration; numbering from the history max keeps version numbers unique.
func (m *Manager) nextVersion(ctx context.Context, doc *models.GeneratedDocument) (string, error) {
	versions, err := m.store.ListVersions(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	latest := doc.Version
	for _, v := range versions {
		if models.CompareVersions(v.Version, latest) > 0 {
			latest = v.Version
		}
	}
	return models.NextVersion(latest), nil
}

func buildRefinePrompt(currentHTML, notes string) string {
	var b strings.Builder
	b.WriteString("You are revising a hospital accreditation document. ")
	b.WriteString("Rewrite the document below, applying every item of reviewer feedback. ")
	b.WriteString("Keep the overall structure and all content the feedback does not touch. ")
	b.WriteString("Return only the revised HTML body content, no markdown fences, no <html> or <head> tags.\n\n")
	b.WriteString("Reviewer feedback:\n")
	if strings.TrimSpace(notes) == "" {
		b.WriteString("(no specific feedback; improve clarity where possible)\n")
	} else {
		b.WriteString(notes)
	}
	b.WriteString("\nCurrent document:\n")
	b.WriteString(currentHTML)
	return b.String()
}
