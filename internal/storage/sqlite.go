package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/caredocs/attesta/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		ref TEXT NOT NULL,
		title TEXT,
		html_content TEXT NOT NULL,
		version TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_ref ON documents(ref);

	CREATE TABLE IF NOT EXISTS document_versions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		version TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_versions_document_id ON document_versions(document_id);

	CREATE TABLE IF NOT EXISTS ncs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		objective_code TEXT,
		status TEXT NOT NULL,
		evidence_doc_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS personnel (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		department TEXT
	);

	CREATE TABLE IF NOT EXISTS equipment (
		id TEXT PRIMARY KEY,
		identifier TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS legacy_documents (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		ingested_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts or replaces a generated document by id.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.GeneratedDocument) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, ref, title, html_content, version, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   ref=excluded.ref, title=excluded.title, html_content=excluded.html_content,
		   version=excluded.version, status=excluded.status, updated_at=excluded.updated_at`,
		doc.ID, doc.Ref, doc.Title, doc.HTMLContent, doc.Version, doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return &StoreError{Op: "upsert document", Err: err}
	}
	return nil
}

// GetDocument returns a generated document by id.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	err := s.db.QueryRowContext(ctx,
		`SELECT id, ref, title, html_content, version, status, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Ref, &doc.Title, &doc.HTMLContent, &doc.Version, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get document", Err: err}
	}
	return &doc, nil
}

// DeleteDocument removes a document and, via cascade, its version history.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return &StoreError{Op: "delete document", Err: err}
	}
	return nil
}

// ListDocuments returns documents ordered by most recently updated.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.GeneratedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ref, title, html_content, version, status, created_at, updated_at
		 FROM documents ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, &StoreError{Op: "list documents", Err: err}
	}
	defer rows.Close()

	var docs []*models.GeneratedDocument
	for rows.Next() {
		var doc models.GeneratedDocument
		if err := rows.Scan(&doc.ID, &doc.Ref, &doc.Title, &doc.HTMLContent, &doc.Version, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, &StoreError{Op: "scan document", Err: err}
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// AppendVersion appends one entry to a document's version history. Existing
// entries are never modified.
func (s *SQLiteStorage) AppendVersion(ctx context.Context, v *models.DocumentVersion) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_versions (id, document_id, version, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.DocumentID, v.Version, v.Content, v.CreatedAt)
	if err != nil {
		return &StoreError{Op: "append version", Err: err}
	}
	return nil
}

// ListVersions returns all versions for a document, oldest first.
func (s *SQLiteStorage) ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, version, content, created_at
		 FROM document_versions WHERE document_id = ? ORDER BY created_at ASC`, documentID)
	if err != nil {
		return nil, &StoreError{Op: "list versions", Err: err}
	}
	defer rows.Close()

	var versions []*models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, &StoreError{Op: "scan version", Err: err}
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

// CreateNC inserts a non-conformity record.
func (s *SQLiteStorage) CreateNC(ctx context.Context, nc *models.NC) error {
	now := time.Now()
	nc.CreatedAt = now
	nc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ncs (id, title, description, objective_code, status, evidence_doc_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nc.ID, nc.Title, nc.Description, nc.ObjectiveCode, string(nc.Status), nc.EvidenceDocID, nc.CreatedAt, nc.UpdatedAt)
	if err != nil {
		return &StoreError{Op: "create nc", Err: err}
	}
	return nil
}

// GetNC returns a non-conformity by id.
func (s *SQLiteStorage) GetNC(ctx context.Context, id string) (*models.NC, error) {
	var nc models.NC
	var status string
	var evidence sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, objective_code, status, evidence_doc_id, created_at, updated_at
		 FROM ncs WHERE id = ?`, id,
	).Scan(&nc.ID, &nc.Title, &nc.Description, &nc.ObjectiveCode, &status, &evidence, &nc.CreatedAt, &nc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get nc", Err: err}
	}
	nc.Status = models.NCStatus(status)
	nc.EvidenceDocID = evidence.String
	return &nc, nil
}

// UpdateNC rewrites a non-conformity record.
func (s *SQLiteStorage) UpdateNC(ctx context.Context, nc *models.NC) error {
	nc.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE ncs SET title=?, description=?, objective_code=?, status=?, evidence_doc_id=?, updated_at=?
		 WHERE id=?`,
		nc.Title, nc.Description, nc.ObjectiveCode, string(nc.Status), nc.EvidenceDocID, nc.UpdatedAt, nc.ID)
	if err != nil {
		return &StoreError{Op: "update nc", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListNCs returns all non-conformities, newest first.
func (s *SQLiteStorage) ListNCs(ctx context.Context) ([]*models.NC, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, objective_code, status, evidence_doc_id, created_at, updated_at
		 FROM ncs ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StoreError{Op: "list ncs", Err: err}
	}
	defer rows.Close()

	var ncs []*models.NC
	for rows.Next() {
		var nc models.NC
		var status string
		var evidence sql.NullString
		if err := rows.Scan(&nc.ID, &nc.Title, &nc.Description, &nc.ObjectiveCode, &status, &evidence, &nc.CreatedAt, &nc.UpdatedAt); err != nil {
			return nil, &StoreError{Op: "scan nc", Err: err}
		}
		nc.Status = models.NCStatus(status)
		nc.EvidenceDocID = evidence.String
		ncs = append(ncs, &nc)
	}
	return ncs, rows.Err()
}

// ListPersonnel returns the personnel allow-list ordered by name.
func (s *SQLiteStorage) ListPersonnel(ctx context.Context) ([]models.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, role, department FROM personnel ORDER BY name`)
	if err != nil {
		return nil, &StoreError{Op: "list personnel", Err: err}
	}
	defer rows.Close()

	var people []models.Person
	for rows.Next() {
		var p models.Person
		var dept sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &dept); err != nil {
			return nil, &StoreError{Op: "scan person", Err: err}
		}
		p.Department = dept.String
		people = append(people, p)
	}
	return people, rows.Err()
}

// AddPerson inserts a personnel entry.
func (s *SQLiteStorage) AddPerson(ctx context.Context, p *models.Person) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO personnel (id, name, role, department) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Role, p.Department)
	if err != nil {
		return &StoreError{Op: "add person", Err: err}
	}
	return nil
}

// DeletePerson removes a personnel entry.
func (s *SQLiteStorage) DeletePerson(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM personnel WHERE id = ?`, id); err != nil {
		return &StoreError{Op: "delete person", Err: err}
	}
	return nil
}

// ListEquipment returns the equipment allow-list ordered by identifier.
func (s *SQLiteStorage) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, identifier, description FROM equipment ORDER BY identifier`)
	if err != nil {
		return nil, &StoreError{Op: "list equipment", Err: err}
	}
	defer rows.Close()

	var items []models.Equipment
	for rows.Next() {
		var e models.Equipment
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Identifier, &desc); err != nil {
			return nil, &StoreError{Op: "scan equipment", Err: err}
		}
		e.Description = desc.String
		items = append(items, e)
	}
	return items, rows.Err()
}

// AddEquipment inserts an equipment entry.
func (s *SQLiteStorage) AddEquipment(ctx context.Context, e *models.Equipment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equipment (id, identifier, description) VALUES (?, ?, ?)`,
		e.ID, e.Identifier, e.Description)
	if err != nil {
		return &StoreError{Op: "add equipment", Err: err}
	}
	return nil
}

// DeleteEquipment removes an equipment entry.
func (s *SQLiteStorage) DeleteEquipment(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ?`, id); err != nil {
		return &StoreError{Op: "delete equipment", Err: err}
	}
	return nil
}

// UpsertLegacyDocument inserts or replaces an ingested legacy document.
func (s *SQLiteStorage) UpsertLegacyDocument(ctx context.Context, doc *LegacyDocument) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_documents (id, path, title, content, ingested_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   path=excluded.path, title=excluded.title, content=excluded.content, ingested_at=excluded.ingested_at`,
		doc.ID, doc.Path, doc.Title, doc.Content, doc.IngestedAt)
	if err != nil {
		return &StoreError{Op: "upsert legacy document", Err: err}
	}
	return nil
}

// GetLegacyDocument returns an ingested legacy document by id.
func (s *SQLiteStorage) GetLegacyDocument(ctx context.Context, id string) (*LegacyDocument, error) {
	var doc LegacyDocument
	var title sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, path, title, content, ingested_at FROM legacy_documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Path, &title, &doc.Content, &doc.IngestedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get legacy document", Err: err}
	}
	doc.Title = title.String
	return &doc, nil
}

// DeleteLegacyDocument removes an ingested legacy document.
func (s *SQLiteStorage) DeleteLegacyDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM legacy_documents WHERE id = ?`, id); err != nil {
		return &StoreError{Op: "delete legacy document", Err: err}
	}
	return nil
}

// CountDocuments returns the number of generated documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, "documents")
}

// CountNCs returns the number of non-conformities.
func (s *SQLiteStorage) CountNCs(ctx context.Context) (int64, error) {
	return s.count(ctx, "ncs")
}

// CountLegacyDocuments returns the number of ingested legacy documents.
func (s *SQLiteStorage) CountLegacyDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, "legacy_documents")
}

func (s *SQLiteStorage) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, &StoreError{Op: "count " + table, Err: err}
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
