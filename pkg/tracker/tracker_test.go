package tracker

import (
	"math"
	"math/rand"
	"testing"

	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
)

// taggedClick builds a constant-tempo map whose anchors carry
// distinct pitch classes within any search window, so matching can be
// corroborated by pitch.
func taggedClick(bpm float64, nbeats int) *songmap.Map {
	m := songmap.GenerateClick(bpm, nbeats, []string{"C", "F", "G"})
	for i := range m.Anchors {
		m.Anchors[i].PitchClass = (i * 7) % 12 // circle of fifths, period 12
	}
	return m
}

// A noiseless 120 BPM click of 32 beats must end within a beat of 32.
func TestClickTrackEndsAtFinalBeat(t *testing.T) {
	m := songmap.GenerateClick(120, 32, nil)
	tr := New(m, Config{})

	for i := 0; i < 32; i++ {
		tr.OnOnset(float64(i)*0.5, -1)
	}

	got := tr.Position(16.0)
	if math.Abs(got-32) > 1 {
		t.Errorf("final position = %v; want 32 +-1", got)
	}
	if tr.State() != Tracking {
		t.Errorf("state = %v; want tracking", tr.State())
	}
	if tr.Confidence() < 0.9 {
		t.Errorf("confidence = %v after clean run", tr.Confidence())
	}
}

// Up to 10% timing jitter must not push the estimate more than two
// beats off the truth once tracking is steady.
func TestClickTrackWithJitter(t *testing.T) {
	m := songmap.GenerateClick(120, 64, nil)
	tr := New(m, Config{})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 64; i++ {
		jitter := (rng.Float64()*2 - 1) * 0.05 // +-10% of a 0.5s beat
		tr.OnOnset(float64(i)*0.5+jitter, -1)
		if i < 8 {
			continue // settling
		}
		if d := math.Abs(tr.Position(float64(i)*0.5) - float64(i)); d > 2 {
			t.Fatalf("beat %d: estimate off by %v beats", i, d)
		}
	}
	if tr.State() != Tracking {
		t.Errorf("state = %v; want tracking", tr.State())
	}
}

// A performer jumping 3 beats ahead mid-song must drive the tracker
// through Resyncing and back to the true position within two onsets
// of entering it.
func TestSkipTriggersResyncAndRecovers(t *testing.T) {
	m := taggedClick(120, 64)
	tr := New(m, Config{})

	// Beats 0..9 played straight.
	for i := 0; i < 10; i++ {
		tr.OnOnset(float64(i)*0.5, m.Anchors[i].PitchClass)
	}
	if tr.State() != Tracking {
		t.Fatalf("warmup state = %v", tr.State())
	}

	// Jump: from here on the performer plays beat 13, 14, ... at the
	// times beat 10, 11, ... would have sounded.
	sawResync := false
	recovered := -1
	onsetsSinceResync := 0
	for k := 0; k < 8; k++ {
		at := float64(10+k) * 0.5
		trueBeat := 13 + k
		tr.OnOnset(at, m.Anchors[trueBeat].PitchClass)

		if tr.State() == Resyncing {
			sawResync = true
		}
		if sawResync && tr.State() != Tracking {
			onsetsSinceResync++
		}
		if sawResync && tr.State() == Tracking {
			if d := math.Abs(tr.Position(at) - float64(trueBeat)); d <= 1 {
				recovered = k
				break
			}
		}
	}

	if !sawResync {
		t.Fatal("tracker never entered resyncing")
	}
	if recovered < 0 {
		t.Fatal("tracker never recovered the true position")
	}
	if onsetsSinceResync > 2 {
		t.Errorf("recovery took %d onsets after resyncing; want <= 2", onsetsSinceResync)
	}
	if tr.Resyncs() == 0 {
		t.Error("resync counter not incremented")
	}
}

// uniformClick tags every anchor with the same pitch class so a
// contradicting onset pitch can never corroborate any candidate.
func uniformClick(bpm float64, nbeats int) *songmap.Map {
	m := songmap.GenerateClick(bpm, nbeats, nil)
	for i := range m.Anchors {
		m.Anchors[i].PitchClass = 0
	}
	return m
}

// Feeding onsets that match nothing must walk the full state ladder
// down to Lost without panicking, with confidence pinned at zero.
func TestUnmatchableOnsetsReachLost(t *testing.T) {
	m := uniformClick(120, 64)
	tr := New(m, Config{})

	seen := map[State]bool{}
	for i := 0; i < 20; i++ {
		tr.OnOnset(float64(i)*0.5, 5) // wrong pitch every time
		seen[tr.State()] = true
	}

	if !seen[Uncertain] || !seen[Resyncing] || !seen[Lost] {
		t.Errorf("states seen = %v; want uncertain, resyncing and lost", seen)
	}
	if tr.State() != Lost {
		t.Errorf("final state = %v; want lost", tr.State())
	}
	if tr.Confidence() != 0 {
		t.Errorf("confidence = %v in lost; want 0", tr.Confidence())
	}
}

func TestResetRestoresTracking(t *testing.T) {
	m := uniformClick(120, 32)
	tr := New(m, Config{})
	for i := 0; i < 20; i++ {
		tr.OnOnset(float64(i)*0.5, 5)
	}
	if tr.State() != Lost {
		t.Fatalf("setup: state = %v; want lost", tr.State())
	}

	tr.Reset(4)
	if tr.State() != Tracking {
		t.Errorf("state after reset = %v", tr.State())
	}
	if tr.Confidence() != 1 {
		t.Errorf("confidence after reset = %v", tr.Confidence())
	}
	if tr.Position(0) != 4 {
		t.Errorf("position after reset = %v; want 4", tr.Position(0))
	}

	// And tracking resumes from the reset point.
	tr.OnOnset(2.0, m.Anchors[4].PitchClass) // beat 4 at its map time
	tr.OnOnset(2.5, m.Anchors[5].PitchClass)
	if tr.State() != Tracking {
		t.Errorf("state = %v after post-reset onsets", tr.State())
	}
	if d := math.Abs(tr.Position(2.5) - 5); d > 0.5 {
		t.Errorf("position = %v; want 5", tr.Position(2.5))
	}
}

// A slightly slow performer pulls the drift ratio above 1.
func TestDriftFollowsSlowPerformer(t *testing.T) {
	m := songmap.GenerateClick(120, 64, nil)
	tr := New(m, Config{})

	// 5% slower than the map: 0.525s per beat.
	for i := 0; i < 40; i++ {
		tr.OnOnset(float64(i)*0.525, -1)
	}
	if tr.Drift() <= 1.0 {
		t.Errorf("drift = %v; want > 1 for a slow performer", tr.Drift())
	}
	if tr.Drift() > 1.1 {
		t.Errorf("drift = %v; overshoots the 5%% slowdown", tr.Drift())
	}
	if tr.State() != Tracking {
		t.Errorf("state = %v; want tracking", tr.State())
	}
}

// An unmatched onset between two adjacent anchor matches must not
// shrink the observed interval and drag the drift estimate low.
func TestDriftIgnoresOnsetsBetweenMatches(t *testing.T) {
	m := uniformClick(120, 32)
	tr := New(m, Config{})

	tr.OnOnset(0, 0)
	tr.OnOnset(0.5, 0)

	// A ghost note off the grid that matches nothing.
	tr.OnOnset(0.7, 5)

	// The next anchor lands exactly on time: no drift.
	tr.OnOnset(1.0, 0)
	if d := math.Abs(tr.Drift() - 1); d > 1e-9 {
		t.Errorf("drift = %v; want 1 for an on-time performer", tr.Drift())
	}
	if tr.State() != Tracking {
		t.Errorf("state = %v; want tracking", tr.State())
	}
}

func TestConfidenceDecaysAndRecovers(t *testing.T) {
	m := taggedClick(120, 32)
	tr := New(m, Config{})

	tr.OnOnset(0, m.Anchors[0].PitchClass)
	tr.OnOnset(0.5, m.Anchors[1].PitchClass)
	full := tr.Confidence()

	// One impossible onset decays confidence but keeps tracking.
	tr.OnOnset(1.0, (m.Anchors[2].PitchClass+6)%12)
	if tr.Confidence() >= full {
		t.Errorf("confidence did not decay: %v", tr.Confidence())
	}

	tr.OnOnset(1.5, m.Anchors[3].PitchClass)
	if tr.Confidence() <= full-0.15 {
		t.Errorf("confidence did not recover: %v", tr.Confidence())
	}
}
