package agents

import (
	"context"
	"strings"

	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
)

// General MIDI percussion notes.
const (
	drumKick      = 36
	drumSnare     = 38
	drumClosedHat = 42
	drumOpenHat   = 46
)

// drumHit is one precomputed entry in a beat-phase hit table.
type drumHit struct {
	pitch    int
	velocity int
	offset   float64 // beats after the phase boundary
}

// drumPattern indexes hits by beat phase within a 4-beat bar.
type drumPattern [4][]drumHit

// groovePattern is the default backing groove: kick on 1 and 3,
// snare on 2 and 4, closed hats on every eighth.
var groovePattern = drumPattern{
	0: {{drumKick, 110, 0}, {drumClosedHat, 70, 0}, {drumClosedHat, 55, 0.5}},
	1: {{drumSnare, 100, 0}, {drumClosedHat, 70, 0}, {drumClosedHat, 55, 0.5}},
	2: {{drumKick, 105, 0}, {drumClosedHat, 70, 0}, {drumClosedHat, 55, 0.5}},
	3: {{drumSnare, 100, 0}, {drumClosedHat, 70, 0}, {drumClosedHat, 55, 0.5}},
}

// chorusPattern is the higher-energy table selected while the section
// label reads as a chorus: doubled kick and open hats.
var chorusPattern = drumPattern{
	0: {{drumKick, 120, 0}, {drumOpenHat, 85, 0}, {drumClosedHat, 65, 0.5}},
	1: {{drumSnare, 115, 0}, {drumOpenHat, 85, 0}, {drumKick, 95, 0.5}},
	2: {{drumKick, 120, 0}, {drumOpenHat, 85, 0}, {drumClosedHat, 65, 0.5}},
	3: {{drumSnare, 115, 0}, {drumOpenHat, 85, 0}, {drumClosedHat, 65, 0.5}},
}

// Drum plays beat-phase-indexed hit tables, switching tables on the
// current section label.
type Drum struct {
	gw synth.Gateway
}

// NewDrum forwards played hits to gw.
func NewDrum(gw synth.Gateway) *Drum {
	return &Drum{gw: gw}
}

func (d *Drum) Name() string { return "drums" }

func (d *Drum) Decide(ctx Context) []NoteEvent {
	pattern := &groovePattern
	if strings.Contains(strings.ToLower(ctx.Section), "chorus") {
		pattern = &chorusPattern
	}

	hits := pattern[ctx.BarPhase%4]
	events := make([]NoteEvent, 0, len(hits))
	for _, h := range hits {
		v := h.velocity + int(20*ctx.Dynamics) - 10
		if v > 127 {
			v = 127
		}
		if v < 1 {
			v = 1
		}
		events = append(events, NoteEvent{
			Pitch:    h.pitch,
			Velocity: v,
			Duration: 0.25,
			Offset:   h.offset,
		})
	}
	return events
}

func (d *Drum) Play(ctx context.Context, events []NoteEvent) error {
	return play(ctx, d.gw, "drums", events)
}
