// Package reference loads allow-list snapshots for generation requests.
package reference

import (
	"context"
	"fmt"

	"github.com/caredocs/attesta/internal/models"
	"github.com/caredocs/attesta/internal/storage"
)

// Loader fetches reference allow-lists from storage. Each generation request
// takes exactly one snapshot up front and works from it, so a concurrent
// allow-list edit never changes validation mid-run.
type Loader struct {
	store storage.Storage
}

func NewLoader(store storage.Storage) *Loader {
	return &Loader{store: store}
}

// Snapshot returns the current personnel and equipment allow-lists as one
// read-only dataset.
func (l *Loader) Snapshot(ctx context.Context) (*models.ReferenceDataset, error) {
	personnel, err := l.store.ListPersonnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load personnel: %w", err)
	}
	equipment, err := l.store.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}
	return &models.ReferenceDataset{Personnel: personnel, Equipment: equipment}, nil
}
