package council

import (
	"fmt"
	"time"
)

// Phase identifies a stage of the consultation protocol.
type Phase string

const (
	PhaseConvening    Phase = "convening"
	PhaseSynthesizing Phase = "synthesizing"
)

// PhaseStartedEvent is emitted when a protocol phase begins.
type PhaseStartedEvent struct {
	RunID string
	Phase Phase
}

// PersonaResolvedEvent is emitted when one fan-out branch settles, in
// completion order (not roster order).
type PersonaResolvedEvent struct {
	RunID     string
	PersonaID string
	Name      string
	Succeeded bool
	Elapsed   time.Duration
}

// PhaseCompletedEvent is emitted when a protocol phase finishes.
type PhaseCompletedEvent struct {
	RunID     string
	Phase     Phase
	Succeeded bool
}

// EventSink receives structured progress events during a run. Implementations
// must tolerate concurrent PersonaResolved calls; the orchestrator emits them
// from the fan-out branches.
type EventSink interface {
	PhaseStarted(e PhaseStartedEvent)
	PersonaResolved(e PersonaResolvedEvent)
	PhaseCompleted(e PhaseCompletedEvent)
}

// ProgressFunc adapts a plain string callback to the EventSink interface for
// callers that only want short human-readable progress notifications.
type ProgressFunc func(msg string)

func (f ProgressFunc) PhaseStarted(e PhaseStartedEvent) {
	switch e.Phase {
	case PhaseConvening:
		f("convening the council...")
	case PhaseSynthesizing:
		f("synthesizing council perspectives...")
	}
}

func (f ProgressFunc) PersonaResolved(e PersonaResolvedEvent) {
	if e.Succeeded {
		f(fmt.Sprintf("%s responded", e.Name))
	} else {
		f(fmt.Sprintf("%s failed to respond", e.Name))
	}
}

func (f ProgressFunc) PhaseCompleted(e PhaseCompletedEvent) {}
