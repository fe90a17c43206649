package songmap

import (
	"bytes"
	"strings"
	"testing"
)

const validJSON = `{
  "title": "test song",
  "duration": 8.0,
  "beats": [0.0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5],
  "downbeats": [0, 4],
  "tempo": [{"beat": 0, "bpm": 120}],
  "chords": [
    {"startBeat": 0, "endBeat": 4, "label": "G"},
    {"startBeat": 4, "endBeat": 8, "label": "C"}
  ],
  "sections": [
    {"startBeat": 0, "endBeat": 4, "label": "verse"},
    {"startBeat": 4, "endBeat": 8, "label": "chorus"}
  ],
  "anchors": [
    {"time": 0.0, "beat": 0, "pitchClass": 7},
    {"time": 0.5, "beat": 1},
    {"time": 1.0, "beat": 2},
    {"time": 2.0, "beat": 4}
  ]
}`

func TestDecodeJSON(t *testing.T) {
	m, err := Decode(strings.NewReader(validJSON), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Title != "test song" {
		t.Errorf("title=%q", m.Title)
	}
	if len(m.Beats) != 8 {
		t.Errorf("beats=%d", len(m.Beats))
	}
	if m.Anchors[0].PitchClass != 7 {
		t.Errorf("anchor 0 pitch class = %d; want 7", m.Anchors[0].PitchClass)
	}
	if m.Anchors[1].PitchClass != -1 {
		t.Errorf("untagged anchor pitch class = %d; want -1", m.Anchors[1].PitchClass)
	}
}

func TestDecodeMissingFields(t *testing.T) {
	cases := map[string]string{
		"no duration": `{"beats":[0,1],"chords":[{"startBeat":0,"endBeat":1,"label":"C"}],"sections":[{"startBeat":0,"endBeat":1,"label":"a"}],"anchors":[{"time":0,"beat":0}]}`,
		"no beats":    `{"duration":1,"chords":[{"startBeat":0,"endBeat":1,"label":"C"}],"sections":[{"startBeat":0,"endBeat":1,"label":"a"}],"anchors":[{"time":0,"beat":0}]}`,
		"no anchors":  `{"duration":1,"beats":[0,1],"chords":[{"startBeat":0,"endBeat":1,"label":"C"}],"sections":[{"startBeat":0,"endBeat":1,"label":"a"}]}`,
		"bad span":    `{"duration":1,"beats":[0,1],"chords":[{"startBeat":1,"endBeat":0,"label":"C"}],"sections":[{"startBeat":0,"endBeat":1,"label":"a"}],"anchors":[{"time":0,"beat":0}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(data), FormatJSON); err == nil {
				t.Error("want validation error, got nil")
			}
		})
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	m, err := Decode(strings.NewReader(validJSON), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, m, FormatMsgpack); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf, FormatMsgpack)
	if err != nil {
		t.Fatalf("decode msgpack: %v", err)
	}
	if got.Duration != m.Duration || len(got.Anchors) != len(m.Anchors) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Anchors[0].PitchClass != 7 || got.Anchors[1].PitchClass != -1 {
		t.Errorf("pitch classes lost in round trip: %+v", got.Anchors[:2])
	}
}

func TestLookups(t *testing.T) {
	m, err := Decode(strings.NewReader(validJSON), FormatJSON)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := m.ChordAt(2); got != "G" {
		t.Errorf("ChordAt(2)=%q", got)
	}
	if got := m.ChordAt(4); got != "C" {
		t.Errorf("ChordAt(4)=%q", got)
	}
	if got := m.SectionAt(5); got != "chorus" {
		t.Errorf("SectionAt(5)=%q", got)
	}
	if got := m.TempoAt(3); got != 120 {
		t.Errorf("TempoAt(3)=%v", got)
	}

	next, at, ok := m.ChordChangeAfter(1)
	if !ok || next != "C" || at != 4 {
		t.Errorf("ChordChangeAfter(1)=%q,%v,%v", next, at, ok)
	}
	if _, _, ok := m.ChordChangeAfter(5); ok {
		t.Error("ChordChangeAfter past last span should report no change")
	}
}

// Repeated queries must return identical results: the map is a pure,
// read-only structure.
func TestLookupIdempotence(t *testing.T) {
	m := GenerateClick(120, 32, []string{"G", "C", "D", "Em"})
	for i := 0; i < 3; i++ {
		if got := m.ChordAt(9); got != "C" {
			t.Fatalf("pass %d: ChordAt(9)=%q", i, got)
		}
		if got := m.SectionAt(9); got != "verse" {
			t.Fatalf("pass %d: SectionAt(9)=%q", i, got)
		}
	}
}

func TestBeatTimeConversion(t *testing.T) {
	m := GenerateClick(120, 16, nil)

	if got := m.TimeAtBeat(4); got != 2.0 {
		t.Errorf("TimeAtBeat(4)=%v; want 2.0", got)
	}
	if got := m.BeatAtTime(2.0); got != 4.0 {
		t.Errorf("BeatAtTime(2.0)=%v; want 4.0", got)
	}
	// Fractional interpolation.
	if got := m.TimeAtBeat(4.5); got != 2.25 {
		t.Errorf("TimeAtBeat(4.5)=%v; want 2.25", got)
	}
	// Extrapolation past the end must keep moving.
	if got := m.TimeAtBeat(20); got <= m.Beats[15] {
		t.Errorf("TimeAtBeat(20)=%v not past grid end", got)
	}
}

func TestAnchorsBetween(t *testing.T) {
	m := GenerateClick(120, 16, nil)
	lo, hi := m.AnchorsBetween(4, 8)
	if lo != 4 || hi != 9 {
		t.Errorf("AnchorsBetween(4,8)=%d,%d; want 4,9", lo, hi)
	}
}

func TestBarPhase(t *testing.T) {
	m := GenerateClick(120, 16, nil)
	for beat, want := range map[float64]int{0: 0, 1: 1, 2: 2, 3: 3, 4: 0, 7: 3} {
		if got := m.BarPhase(beat); got != want {
			t.Errorf("BarPhase(%v)=%d; want %d", beat, got, want)
		}
	}
}
