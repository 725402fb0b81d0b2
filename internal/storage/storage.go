// Package storage defines persistence for generated documents, version
// history, non-conformities, reference allow-lists, and the legacy-document
// library.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/caredocs/attesta/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// StoreError is an external-dependency failure from the durable store,
// surfaced to the caller as a retryable condition.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// LegacyDocument is one ingested legacy source document.
type LegacyDocument struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	IngestedAt int64  `json:"ingested_at"`
}

// Storage defines all persistence operations.
type Storage interface {
	// Generated documents. UpsertDocument is the single write a completed
	// pipeline run issues; last write wins.
	UpsertDocument(ctx context.Context, doc *models.GeneratedDocument) error
	GetDocument(ctx context.Context, id string) (*models.GeneratedDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.GeneratedDocument, error)

	// Version history. Strictly additive: versions are only ever appended.
	AppendVersion(ctx context.Context, v *models.DocumentVersion) error
	ListVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error)

	// Non-conformities.
	CreateNC(ctx context.Context, nc *models.NC) error
	GetNC(ctx context.Context, id string) (*models.NC, error)
	UpdateNC(ctx context.Context, nc *models.NC) error
	ListNCs(ctx context.Context) ([]*models.NC, error)

	// Reference allow-lists.
	ListPersonnel(ctx context.Context) ([]models.Person, error)
	AddPerson(ctx context.Context, p *models.Person) error
	DeletePerson(ctx context.Context, id string) error
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	AddEquipment(ctx context.Context, e *models.Equipment) error
	DeleteEquipment(ctx context.Context, id string) error

	// Legacy-document library.
	UpsertLegacyDocument(ctx context.Context, doc *LegacyDocument) error
	GetLegacyDocument(ctx context.Context, id string) (*LegacyDocument, error)
	DeleteLegacyDocument(ctx context.Context, id string) error

	// Stats.
	CountDocuments(ctx context.Context) (int64, error)
	CountNCs(ctx context.Context) (int64, error)
	CountLegacyDocuments(ctx context.Context) (int64, error)

	Close() error
}
