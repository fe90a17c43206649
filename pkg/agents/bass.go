package agents

import (
	"context"

	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
)

// bassOctave is the MIDI C below which the walking line sits.
const bassOctave = 36 // C2

// Bass plays a precomputed walking-bass pattern: root on the strong
// beats, fifth on the weak beats, and a chromatic approach tone on
// the last beat before a chord change.
type Bass struct {
	gw synth.Gateway
}

// NewBass forwards played notes to gw.
func NewBass(gw synth.Gateway) *Bass {
	return &Bass{gw: gw}
}

func (b *Bass) Name() string { return "bass" }

func (b *Bass) Decide(ctx Context) []NoteEvent {
	chord, err := ParseChord(ctx.Chord)
	if err != nil {
		return nil
	}

	pitch := midiInOctave(chord.Root, bassOctave)
	switch ctx.BarPhase % 4 {
	case 1, 3:
		pitch = midiInOctave(chord.Root, bassOctave) + chord.Fifth()
	}

	// Approach tone: on the final beat before a change, walk
	// chromatically toward the next root.
	if ctx.NextChord != "" && ctx.BeatsToNext > 0 && ctx.BeatsToNext <= 1 {
		if next, err := ParseChord(ctx.NextChord); err == nil {
			target := midiInOctave(next.Root, bassOctave)
			pitch = approachTone(midiInOctave(chord.Root, bassOctave), target)
		}
	}

	velocity := 70 + int(40*ctx.Dynamics)
	if velocity > 127 {
		velocity = 127
	}
	return []NoteEvent{{
		Pitch:    pitch,
		Velocity: velocity,
		Duration: 0.9,
		Offset:   0,
	}}
}

func (b *Bass) Play(ctx context.Context, events []NoteEvent) error {
	return play(ctx, b.gw, "bass", events)
}
