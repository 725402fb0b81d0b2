package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists rendered document files on the local filesystem and
// returns the path they are served from. Files are grouped under per-purpose
// buckets (documents, evidence).
type BlobStore struct {
	root      string
	publicURL string
}

// NewBlobStore creates a blob store rooted at root. publicURL is the base the
// returned locations are joined to, typically the server's /files mount.
func NewBlobStore(root, publicURL string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &BlobStore{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Put writes data under bucket/name and returns its public URL.
func (b *BlobStore) Put(bucket, name string, data []byte) (string, error) {
	dir := filepath.Join(b.root, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &StoreError{Op: "put blob", Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", &StoreError{Op: "put blob", Err: err}
	}
	return b.publicURL + "/" + bucket + "/" + name, nil
}

// Get reads a blob previously stored under bucket/name.
func (b *BlobStore) Get(bucket, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.root, bucket, name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get blob", Err: err}
	}
	return data, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (b *BlobStore) Delete(bucket, name string) error {
	err := os.Remove(filepath.Join(b.root, bucket, name))
	if err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "delete blob", Err: err}
	}
	return nil
}

// Root returns the directory blobs are stored under, for static file serving.
func (b *BlobStore) Root() string {
	return b.root
}
