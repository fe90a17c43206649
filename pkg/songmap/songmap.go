// Package songmap holds the pre-computed reference for a performance.
//
// A Map is produced by an offline analysis pipeline and loaded once at
// session start. It is read-only for the whole session: every accessor
// is a pure lookup with no side effects, so tracker and conductor can
// query it from any goroutine without coordination.
package songmap

import (
	"fmt"
	"sort"
)

// TempoPoint is one point on the reference tempo curve.
type TempoPoint struct {
	Beat float64 `json:"beat" msgpack:"beat"`
	BPM  float64 `json:"bpm" msgpack:"bpm"`
}

// Span is a half-open labeled interval [StartBeat, EndBeat) on the
// beat axis. Chord and section timelines are ordered lists of spans.
type Span struct {
	StartBeat float64 `json:"startBeat" msgpack:"start_beat"`
	EndBeat   float64 `json:"endBeat" msgpack:"end_beat"`
	Label     string  `json:"label" msgpack:"label"`
}

// Anchor is an expected onset used as a tracking reference point.
// PitchClass is 0..11 (C=0) when the offline pipeline tagged the
// onset with a pitch, or -1 when untagged.
type Anchor struct {
	Time       float64 // seconds from song start
	Beat       float64 // fractional beat position
	PitchClass int
}

// Map is the immutable song reference. Construct with Load or Decode;
// do not mutate after that.
type Map struct {
	Title    string
	Duration float64 // seconds

	Beats     []float64 // beat timestamps in seconds, ascending
	Downbeats []int     // indices into Beats marking bar starts
	Tempo     []TempoPoint
	Chords    []Span
	Sections  []Span
	Anchors   []Anchor // ascending by Time
}

// validate checks the structural invariants that the schema cannot
// express. It is called once by Decode; Map methods assume it passed.
func (m *Map) validate() error {
	if m.Duration <= 0 {
		return fmt.Errorf("songmap: duration must be positive, got %v", m.Duration)
	}
	if len(m.Beats) == 0 {
		return fmt.Errorf("songmap: beat grid is empty")
	}
	for i := 1; i < len(m.Beats); i++ {
		if m.Beats[i] <= m.Beats[i-1] {
			return fmt.Errorf("songmap: beats not strictly ascending at index %d", i)
		}
	}
	for _, d := range m.Downbeats {
		if d < 0 || d >= len(m.Beats) {
			return fmt.Errorf("songmap: downbeat index %d out of range", d)
		}
	}
	if len(m.Chords) == 0 {
		return fmt.Errorf("songmap: chord timeline is empty")
	}
	if len(m.Sections) == 0 {
		return fmt.Errorf("songmap: section timeline is empty")
	}
	if err := checkSpans("chord", m.Chords); err != nil {
		return err
	}
	if err := checkSpans("section", m.Sections); err != nil {
		return err
	}
	if len(m.Anchors) == 0 {
		return fmt.Errorf("songmap: anchor list is empty")
	}
	for i, a := range m.Anchors {
		if i > 0 && a.Time < m.Anchors[i-1].Time {
			return fmt.Errorf("songmap: anchors not sorted by time at index %d", i)
		}
		if a.PitchClass < -1 || a.PitchClass > 11 {
			return fmt.Errorf("songmap: anchor %d has invalid pitch class %d", i, a.PitchClass)
		}
	}
	return nil
}

func checkSpans(kind string, spans []Span) error {
	for i, s := range spans {
		if s.EndBeat <= s.StartBeat {
			return fmt.Errorf("songmap: %s span %d is empty or inverted", kind, i)
		}
		if s.Label == "" {
			return fmt.Errorf("songmap: %s span %d has no label", kind, i)
		}
		if i > 0 && s.StartBeat < spans[i-1].StartBeat {
			return fmt.Errorf("songmap: %s spans not ordered at index %d", kind, i)
		}
	}
	return nil
}

// spanAt returns the label of the span covering beat, or the nearest
// span when beat falls outside the timeline (clamped, never empty).
func spanAt(spans []Span, beat float64) string {
	i := sort.Search(len(spans), func(i int) bool {
		return spans[i].EndBeat > beat
	})
	if i >= len(spans) {
		return spans[len(spans)-1].Label
	}
	return spans[i].Label
}

// ChordAt returns the chord label at the given beat.
func (m *Map) ChordAt(beat float64) string {
	return spanAt(m.Chords, beat)
}

// ChordChangeAfter returns the label of the next chord and the beat at
// which it starts, looking past the chord active at beat. ok is false
// when there is no further change.
func (m *Map) ChordChangeAfter(beat float64) (label string, startBeat float64, ok bool) {
	i := sort.Search(len(m.Chords), func(i int) bool {
		return m.Chords[i].EndBeat > beat
	})
	if i+1 >= len(m.Chords) {
		return "", 0, false
	}
	next := m.Chords[i+1]
	return next.Label, next.StartBeat, true
}

// SectionAt returns the section label at the given beat.
func (m *Map) SectionAt(beat float64) string {
	return spanAt(m.Sections, beat)
}

// TempoAt returns the reference tempo in BPM at the given beat.
// Falls back to the tempo implied by the beat grid when the curve is
// absent.
func (m *Map) TempoAt(beat float64) float64 {
	if len(m.Tempo) == 0 {
		return m.gridTempo(beat)
	}
	i := sort.Search(len(m.Tempo), func(i int) bool {
		return m.Tempo[i].Beat > beat
	})
	if i == 0 {
		return m.Tempo[0].BPM
	}
	return m.Tempo[i-1].BPM
}

// gridTempo derives BPM from adjacent beat timestamps.
func (m *Map) gridTempo(beat float64) float64 {
	i := int(beat)
	if i < 0 {
		i = 0
	}
	if i >= len(m.Beats)-1 {
		i = len(m.Beats) - 2
	}
	if i < 0 {
		return 120
	}
	dt := m.Beats[i+1] - m.Beats[i]
	return 60.0 / dt
}

// TimeAtBeat converts a fractional beat position to seconds,
// interpolating within the beat grid and extrapolating at the edges.
func (m *Map) TimeAtBeat(beat float64) float64 {
	n := len(m.Beats)
	if n == 1 {
		return m.Beats[0]
	}
	i := int(beat)
	frac := beat - float64(i)
	if i < 0 {
		return m.Beats[0] + beat*(m.Beats[1]-m.Beats[0])
	}
	if i >= n-1 {
		last := m.Beats[n-1] - m.Beats[n-2]
		return m.Beats[n-1] + (beat-float64(n-1))*last
	}
	return m.Beats[i] + frac*(m.Beats[i+1]-m.Beats[i])
}

// BeatAtTime converts a time in seconds to a fractional beat position.
func (m *Map) BeatAtTime(t float64) float64 {
	n := len(m.Beats)
	i := sort.SearchFloat64s(m.Beats, t)
	switch {
	case i == 0:
		if n > 1 && m.Beats[1] > m.Beats[0] {
			return (t - m.Beats[0]) / (m.Beats[1] - m.Beats[0])
		}
		return 0
	case i >= n:
		if n > 1 {
			last := m.Beats[n-1] - m.Beats[n-2]
			return float64(n-1) + (t-m.Beats[n-1])/last
		}
		return 0
	default:
		return float64(i-1) + (t-m.Beats[i-1])/(m.Beats[i]-m.Beats[i-1])
	}
}

// AnchorsBetween returns the index range [lo, hi) of anchors whose
// beat position falls within [minBeat, maxBeat].
func (m *Map) AnchorsBetween(minBeat, maxBeat float64) (lo, hi int) {
	lo = sort.Search(len(m.Anchors), func(i int) bool {
		return m.Anchors[i].Beat >= minBeat
	})
	hi = sort.Search(len(m.Anchors), func(i int) bool {
		return m.Anchors[i].Beat > maxBeat
	})
	return lo, hi
}

// AnchorInterval returns the expected time between anchor i and its
// predecessor. Used for tempo-drift estimation.
func (m *Map) AnchorInterval(i int) float64 {
	if i <= 0 || i >= len(m.Anchors) {
		return 0
	}
	return m.Anchors[i].Time - m.Anchors[i-1].Time
}

// BarPhase returns the 0-based beat phase within a bar for the given
// beat index, using the downbeat markers when present and assuming
// 4/4 otherwise.
func (m *Map) BarPhase(beat float64) int {
	bi := int(beat)
	if bi < 0 {
		bi = 0
	}
	if len(m.Downbeats) == 0 {
		return bi % 4
	}
	i := sort.SearchInts(m.Downbeats, bi)
	if i < len(m.Downbeats) && m.Downbeats[i] == bi {
		return 0
	}
	if i == 0 {
		return bi % 4
	}
	return bi - m.Downbeats[i-1]
}
