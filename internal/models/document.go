package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document statuses.
const (
	DocumentStatusDraft     = "draft"
	DocumentStatusPublished = "published"
)

// GeneratedDocument is a persisted assembled document. HTMLContent is
// self-contained (inline styles, no external scripts) so any HTML viewer can
// render it standalone.
type GeneratedDocument struct {
	ID          string    `json:"id"`
	Ref         string    `json:"ref"` // objective code or NC id the document belongs to
	Title       string    `json:"title"`
	HTMLContent string    `json:"html_content"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentVersion is one entry in a document's version history. Versions are
// strictly additive; the current content is the entry with the highest number.
type DocumentVersion struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Version    string    `json:"version"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// InitialVersion is the version number assigned at first generation.
const InitialVersion = "1.0"

// NextVersion returns the version number following v, incrementing the minor
// component by one ("1.0" -> "1.1", "1.9" -> "1.10"). An unparseable input
// falls back to the initial version.
func NextVersion(v string) string {
	major, minor, ok := splitVersion(v)
	if !ok {
		return InitialVersion
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}

// CompareVersions returns -1, 0, or 1 as a is less than, equal to, or greater
// than b in (major, minor) order.
func CompareVersions(a, b string) int {
	amaj, amin, aok := splitVersion(a)
	bmaj, bmin, bok := splitVersion(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}
	if amaj != bmaj {
		if amaj < bmaj {
			return -1
		}
		return 1
	}
	if amin != bmin {
		if amin < bmin {
			return -1
		}
		return 1
	}
	return 0
}

func splitVersion(v string) (major, minor int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
