package models

import "time"

// NCStatus is the three-state lifecycle of a non-conformity.
type NCStatus string

const (
	NCStatusOpen       NCStatus = "open"
	NCStatusInProgress NCStatus = "in_progress"
	NCStatusClosed     NCStatus = "closed"
)

// Advance returns the next status in the cycle Open -> In Progress -> Closed -> Open.
func (s NCStatus) Advance() NCStatus {
	switch s {
	case NCStatusOpen:
		return NCStatusInProgress
	case NCStatusInProgress:
		return NCStatusClosed
	default:
		return NCStatusOpen
	}
}

// NC is a recorded audit finding requiring corrective evidence. An NC owns at
// most one current evidence document at a time; regenerating replaces the
// link, deleting clears it without touching NC history.
type NC struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ObjectiveCode string    `json:"objective_code,omitempty"`
	Status        NCStatus  `json:"status"`
	EvidenceDocID string    `json:"evidence_doc_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
