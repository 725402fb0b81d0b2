// Package refine runs guided feedback sessions over a generated document and
// regenerates it as a new version.
package refine

import (
	"github.com/anggasct/fluo"
)

// Session states. A session walks the four feedback phases in order, then
// waits in the ready state until the caller regenerates or cancels.
const (
	StateIdle       = "idle"
	PhaseContext    = "context_specificity"
	PhasePriorRules = "prior_rules"
	PhaseCompliance = "compliance"
	PhaseClarity    = "clarity"
	StateReady      = "ready_to_regenerate"
)

// Session events.
const (
	eventStart      = "start"
	eventFeedback   = "feedback"
	eventCancel     = "cancel"
	eventRegenerate = "regenerate"
)

// phaseOrder fixes the order feedback notes are folded into the regeneration
// prompt, independent of map iteration.
var phaseOrder = []string{PhaseContext, PhasePriorRules, PhaseCompliance, PhaseClarity}

// phaseLabels name each phase in the regeneration prompt.
var phaseLabels = map[string]string{
	PhaseContext:    "Context specificity",
	PhasePriorRules: "Alignment with prior rules",
	PhaseCompliance: "Compliance",
	PhaseClarity:    "Clarity and readability",
}

var sessionDefinition = buildSessionMachine()

func buildSessionMachine() fluo.MachineDefinition {
	b := fluo.NewMachine()

	b.State(StateIdle).Initial().
		To(PhaseContext).On(eventStart)

	b.State(PhaseContext).
		To(PhasePriorRules).On(eventFeedback).
		To(StateIdle).On(eventCancel)

	b.State(PhasePriorRules).
		To(PhaseCompliance).On(eventFeedback).
		To(StateIdle).On(eventCancel)

	b.State(PhaseCompliance).
		To(PhaseClarity).On(eventFeedback).
		To(StateIdle).On(eventCancel)

	b.State(PhaseClarity).
		To(StateReady).On(eventFeedback).
		To(StateIdle).On(eventCancel)

	b.State(StateReady).
		To(StateIdle).On(eventRegenerate).
		To(StateIdle).On(eventCancel)

	return b.Build()
}
