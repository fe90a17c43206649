package agents

import (
	"context"
	"strings"

	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
)

// harmonyOctave anchors voicings around middle C.
const harmonyOctave = 60 // C4

// Style selects a voicing table for the harmony agent.
type Style string

const (
	// StylePop voices plain triads.
	StylePop Style = "pop"
	// StyleJazz adds sevenths and drops the root (the bass has it).
	StyleJazz Style = "jazz"
)

// Harmony plays precomputed chord voicings on a comping rhythm keyed
// by beat phase.
type Harmony struct {
	gw    synth.Gateway
	style Style

	// compRhythm[phase]: whether to comp on that beat of the bar.
	compRhythm   [4]bool
	chorusRhythm [4]bool
}

// NewHarmony forwards voicings to gw in the given style.
func NewHarmony(gw synth.Gateway, style Style) *Harmony {
	if style == "" {
		style = StylePop
	}
	return &Harmony{
		gw:           gw,
		style:        style,
		compRhythm:   [4]bool{true, false, true, false},
		chorusRhythm: [4]bool{true, true, true, true},
	}
}

func (h *Harmony) Name() string { return "harmony" }

// voicing returns the chord tones for the agent's style as semitone
// intervals above the root.
func (h *Harmony) voicing(c Chord) []int {
	if h.style == StyleJazz {
		if s := c.Seventh(); s != 0 {
			return []int{c.Third(), c.Fifth(), s}
		}
		return []int{c.Third(), c.Fifth(), 12}
	}
	return []int{0, c.Third(), c.Fifth()}
}

func (h *Harmony) Decide(ctx Context) []NoteEvent {
	rhythm := h.compRhythm
	if strings.Contains(strings.ToLower(ctx.Section), "chorus") {
		rhythm = h.chorusRhythm
	}
	if !rhythm[ctx.BarPhase%4] {
		return nil
	}

	chord, err := ParseChord(ctx.Chord)
	if err != nil {
		return nil
	}

	velocity := 60 + int(35*ctx.Dynamics)
	if velocity > 127 {
		velocity = 127
	}

	intervals := h.voicing(chord)
	events := make([]NoteEvent, len(intervals))
	for i, iv := range intervals {
		events[i] = NoteEvent{
			Pitch:    midiInOctave(chord.Root, harmonyOctave) + iv,
			Velocity: velocity,
			Duration: 1.8,
			Offset:   0,
		}
	}
	return events
}

func (h *Harmony) Play(ctx context.Context, events []NoteEvent) error {
	return play(ctx, h.gw, "harmony", events)
}
