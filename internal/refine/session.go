package refine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/anggasct/fluo"
)

// Session is one guided refinement walk over a single document. Feedback
// notes accumulate per phase and are only acted on at regeneration; a
// cancelled session discards them without touching the document.
type Session struct {
	DocumentID string

	mu      sync.Mutex
	machine fluo.Machine
	notes   map[string]string
}

// NewSession creates a session for documentID and enters the first feedback
// phase.
func NewSession(documentID string) (*Session, error) {
	m := sessionDefinition.CreateInstance()
	if err := m.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if res := m.SendEvent(eventStart, nil); !res.Processed {
		return nil, fmt.Errorf("failed to enter first phase: %s", res.RejectionReason)
	}
	return &Session{
		DocumentID: documentID,
		machine:    m,
		notes:      make(map[string]string),
	}, nil
}

// Phase returns the session's current state.
func (s *Session) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.CurrentState()
}

// Ready reports whether all phases are done and the session can regenerate.
func (s *Session) Ready() bool {
	return s.Phase() == StateReady
}

// Feedback records text against the current phase and advances to the next
// one. Blank text skips the phase. Returns the phase the session moved to.
func (s *Session) Feedback(text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.machine.CurrentState()
	if _, ok := phaseLabels[phase]; !ok {
		return "", fmt.Errorf("session is in %q, not a feedback phase", phase)
	}
	res := s.machine.SendEvent(eventFeedback, text)
	if !res.Processed {
		return "", fmt.Errorf("feedback rejected in %q: %s", phase, res.RejectionReason)
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		s.notes[phase] = trimmed
	}
	return res.CurrentState, nil
}

// Cancel returns the session to idle and discards all recorded feedback.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.CurrentState() == StateIdle {
		return nil
	}
	if res := s.machine.SendEvent(eventCancel, nil); !res.Processed {
		return fmt.Errorf("cancel rejected: %s", res.RejectionReason)
	}
	s.notes = make(map[string]string)
	return nil
}

// finish moves a ready session back to idle after a successful regeneration.
func (s *Session) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := s.machine.SendEvent(eventRegenerate, nil); !res.Processed {
		return fmt.Errorf("regenerate rejected in %q: %s", s.machine.CurrentState(), res.RejectionReason)
	}
	return nil
}

// FoldNotes renders the recorded feedback in phase order as one prompt block.
// Phases with no feedback are omitted.
func (s *Session) FoldNotes() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, phase := range phaseOrder {
		note, ok := s.notes[phase]
		if !ok {
			continue
		}
		b.WriteString(phaseLabels[phase] + ": " + note + "\n")
	}
	return b.String()
}
