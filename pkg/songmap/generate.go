package songmap

// GenerateClick builds a constant-tempo 4/4 map with one anchor per
// beat and a simple chord loop. Used by tests and the demo tooling;
// real maps come from the offline pipeline via Load.
func GenerateClick(bpm float64, nbeats int, chordLoop []string) *Map {
	if nbeats < 2 {
		nbeats = 2
	}
	if len(chordLoop) == 0 {
		chordLoop = []string{"C"}
	}
	spb := 60.0 / bpm

	m := &Map{
		Title:    "click",
		Duration: float64(nbeats) * spb,
		Beats:    make([]float64, nbeats),
		Tempo:    []TempoPoint{{Beat: 0, BPM: bpm}},
		Anchors:  make([]Anchor, nbeats),
	}
	for i := 0; i < nbeats; i++ {
		t := float64(i) * spb
		m.Beats[i] = t
		m.Anchors[i] = Anchor{Time: t, Beat: float64(i), PitchClass: -1}
		if i%4 == 0 {
			m.Downbeats = append(m.Downbeats, i)
		}
	}

	// One chord per bar, cycling through the loop.
	for bar := 0; bar*4 < nbeats; bar++ {
		start := float64(bar * 4)
		end := start + 4
		if end > float64(nbeats) {
			end = float64(nbeats)
		}
		m.Chords = append(m.Chords, Span{
			StartBeat: start,
			EndBeat:   end,
			Label:     chordLoop[bar%len(chordLoop)],
		})
	}
	m.Sections = []Span{{StartBeat: 0, EndBeat: float64(nbeats), Label: "verse"}}
	return m
}
