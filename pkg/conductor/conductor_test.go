package conductor

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/PerformanceSuite/Performia-sub001/pkg/agents"
	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/analyzer"
	"github.com/PerformanceSuite/Performia-sub001/pkg/buffer"
	"github.com/PerformanceSuite/Performia-sub001/pkg/bus"
	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
	"github.com/PerformanceSuite/Performia-sub001/pkg/tracker"
)

type recordingGateway struct {
	mu   sync.Mutex
	cmds []synth.NoteCommand
}

func (r *recordingGateway) Send(_ context.Context, cmds []synth.NoteCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmds...)
	return nil
}

func (r *recordingGateway) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds)
}

// slowAgent sleeps past any reasonable cycle deadline.
type slowAgent struct {
	block time.Duration
}

func (s *slowAgent) Name() string { return "slow" }

func (s *slowAgent) Decide(agents.Context) []agents.NoteEvent {
	time.Sleep(s.block)
	return []agents.NoteEvent{{Pitch: 60, Velocity: 80, Duration: 1}}
}

func (s *slowAgent) Play(context.Context, []agents.NoteEvent) error { return nil }

func onset(at float64) analyzer.Event {
	return analyzer.Event{Kind: analyzer.KindOnset, Time: at}
}

func beatEvent(at, tempo float64) analyzer.Event {
	return analyzer.Event{Kind: analyzer.KindBeat, Time: at, Tempo: tempo}
}

func TestContextSnapshotFields(t *testing.T) {
	m := songmap.GenerateClick(120, 32, []string{"G", "C"})
	b := bus.New(64)
	defer b.Close()

	var got []agents.Context
	b.Subscribe(TypeContext, func(msg bus.Message) {
		got = append(got, msg.Payload.(agents.Context))
	})

	gw := &recordingGateway{}
	c := New(m, b, []agents.Agent{agents.NewBass(gw)}, Config{})

	ctx := context.Background()
	c.Handle(ctx, onset(0))
	c.Handle(ctx, onset(0.5))
	b.DrainOnce()
	b.DrainOnce()

	if len(got) != 2 {
		t.Fatalf("broadcasts = %d; want 2", len(got))
	}
	mc := got[1]
	if mc.Chord != "G" {
		t.Errorf("chord = %q; want G", mc.Chord)
	}
	if mc.Section != "verse" {
		t.Errorf("section = %q", mc.Section)
	}
	if mc.BarPhase != 1 {
		t.Errorf("bar phase = %d; want 1", mc.BarPhase)
	}
	if mc.NextChord != "C" {
		t.Errorf("next chord = %q; want C", mc.NextChord)
	}
	if math.Abs(mc.BeatsToNext-3) > 0.1 {
		t.Errorf("beats to next = %v; want 3", mc.BeatsToNext)
	}
	if mc.Tempo != 120 {
		t.Errorf("tempo = %v; want 120", mc.Tempo)
	}
	if gw.count() == 0 {
		t.Error("bass decision never reached the gateway")
	}
}

func TestFollowingModes(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		mode FollowingMode
		want func(tempo float64) bool
	}{
		{ModeFixed, func(v float64) bool { return v == 120 }},
		{ModeFree, func(v float64) bool { return v == 132 }},
		{ModeAdaptive, func(v float64) bool { return v > 120 && v < 132 }},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			m := songmap.GenerateClick(120, 32, nil)
			b := bus.New(64)
			defer b.Close()
			c := New(m, b, nil, Config{Mode: tc.mode})

			c.Handle(ctx, beatEvent(0.5, 132))
			if got := c.Stats().Tempo; !tc.want(got) {
				t.Errorf("tempo = %v in %v mode", got, tc.mode)
			}
		})
	}
}

// lostConductor drives a conductor into Lost: anchors all tagged C,
// onsets all latched to F.
func lostConductor(t *testing.T, mode FollowingMode) (*Conductor, *bus.Bus) {
	t.Helper()
	m := songmap.GenerateClick(120, 64, nil)
	for i := range m.Anchors {
		m.Anchors[i].PitchClass = 0
	}
	b := bus.New(64)
	t.Cleanup(b.Close)
	c := New(m, b, nil, Config{Mode: mode})

	ctx := context.Background()
	c.Handle(ctx, analyzer.Event{Kind: analyzer.KindPitch, Hz: 349.23, Confidence: 0.9}) // F4
	for i := 0; i < 8; i++ {
		c.Handle(ctx, onset(float64(i)*0.5))
	}
	if st := c.Stats().TrackerState; st != tracker.Lost {
		t.Fatalf("setup: tracker state = %v; want lost", st)
	}
	return c, b
}

func TestLostForcesFixedMode(t *testing.T) {
	c, _ := lostConductor(t, ModeFree)

	st := c.Stats()
	if !st.ForcedFixed {
		t.Error("forced-fixed not set while lost")
	}
	if st.Confidence != 0 {
		t.Errorf("confidence = %v; want 0", st.Confidence)
	}

	// Free mode configured, but the working tempo must be the map's.
	c.Handle(context.Background(), beatEvent(4.5, 180))
	if got := c.Stats().Tempo; got != 120 {
		t.Errorf("tempo = %v while lost; want map tempo 120", got)
	}
	if c.Mode() != ModeFree {
		t.Errorf("configured mode changed to %v", c.Mode())
	}
}

func TestResetRecoversFromLost(t *testing.T) {
	c, _ := lostConductor(t, ModeFree)

	c.Reset(4)
	// Next cycle re-evaluates the forced-fixed latch.
	c.Handle(context.Background(), beatEvent(2.0, 132))

	st := c.Stats()
	if st.ForcedFixed {
		t.Error("forced-fixed still set after reset")
	}
	if st.Confidence != 1 {
		t.Errorf("confidence = %v after reset", st.Confidence)
	}
	if st.Tempo != 132 {
		t.Errorf("tempo = %v; free mode should resume", st.Tempo)
	}
}

func TestAgentDeadline(t *testing.T) {
	m := songmap.GenerateClick(120, 32, nil)
	b := bus.New(64)
	defer b.Close()

	gw := &recordingGateway{}
	ag := []agents.Agent{
		&slowAgent{block: 200 * time.Millisecond},
		agents.NewBass(gw),
	}
	c := New(m, b, ag, Config{DecisionTimeout: 10 * time.Millisecond})

	start := time.Now()
	c.Handle(context.Background(), onset(0))
	elapsed := time.Since(start)

	st := c.Stats()
	if st.AgentTimeouts != 1 {
		t.Errorf("timeouts = %d; want 1", st.AgentTimeouts)
	}
	if gw.count() == 0 {
		t.Error("fast agent starved by slow one")
	}
	// The cycle must not wait out the slow agent's full sleep.
	if elapsed > 150*time.Millisecond {
		t.Errorf("cycle blocked %v on a timed-out agent", elapsed)
	}
}

func TestRunConsumesQueue(t *testing.T) {
	m := songmap.GenerateClick(120, 32, nil)
	b := bus.New(64)
	defer b.Close()
	c := New(m, b, nil, Config{})

	q := buffer.NewSPSC[analyzer.Event](64)
	for i := 0; i < 8; i++ {
		q.TryPush(onset(float64(i) * 0.5))
	}
	q.Close()

	if err := c.Run(context.Background(), q); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := c.Stats().Cycles; got != 8 {
		t.Errorf("cycles = %d; want 8", got)
	}
	if beat := c.Stats().Beat; math.Abs(beat-7) > 1 {
		t.Errorf("beat = %v; want ~7", beat)
	}
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"fixed", "adaptive", "free"} {
		m, err := ParseMode(name)
		if err != nil {
			t.Errorf("%q: %v", name, err)
		}
		if m.String() != name {
			t.Errorf("round trip %q -> %v", name, m)
		}
	}
	if _, err := ParseMode("swing"); err == nil {
		t.Error("unknown mode accepted")
	}
}
