// Package agents contains the autonomous musical decision units.
//
// Every agent implements the same narrow contract: Decide converts an
// immutable context snapshot into note events using only precomputed
// pattern tables — a pure function, called twice with the same
// context it returns the same decision — and Play forwards a decision
// to the synthesis gateway. Agents never call back into the conductor
// and never share mutable state with each other.
package agents

import (
	"context"

	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
)

// Context is the per-cycle musical snapshot handed to every agent.
// It is a value: the conductor constructs a fresh one each cycle and
// no agent can mutate shared state through it.
type Context struct {
	Beat        float64 // monotonic except on explicit resync
	BarPhase    int     // 0-based beat within the bar
	BeatsPerBar int
	Tempo       float64 // BPM
	Chord       string
	NextChord   string  // label after the next chord change, "" if none
	BeatsToNext float64 // beats until that change, 0 if none pending
	Section     string
	Dynamics    float64 // 0..1
	Confidence  float64 // tracking confidence, 0..1
}

// NoteEvent is one note in an agent decision.
type NoteEvent struct {
	Pitch    int     // MIDI note number
	Velocity int     // 1..127
	Duration float64 // beats
	Offset   float64 // beats after the cycle's beat boundary
}

// Agent is the capability interface the conductor drives. There is no
// deeper hierarchy: bass, drums and harmony are independent
// implementations registered side by side.
type Agent interface {
	Name() string
	Decide(ctx Context) []NoteEvent
	Play(ctx context.Context, events []NoteEvent) error
}

// play converts a decision to gateway commands. Shared by all agents.
func play(ctx context.Context, gw synth.Gateway, instrument string, events []NoteEvent) error {
	if len(events) == 0 {
		return nil
	}
	cmds := make([]synth.NoteCommand, len(events))
	for i, e := range events {
		cmds[i] = synth.NoteCommand{
			Instrument: instrument,
			Pitch:      e.Pitch,
			Velocity:   e.Velocity,
			Duration:   e.Duration,
			Offset:     e.Offset,
		}
	}
	return gw.Send(ctx, cmds)
}
