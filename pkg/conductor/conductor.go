// Package conductor owns the musical context and drives the agents.
//
// The conductor's event loop consumes analysis events, feeds the
// position tracker, and on each beat or onset runs one cycle: build
// a fresh context snapshot, broadcast it on the bus, fan the decision
// request out to every agent and gather the results before handing
// them to the synthesis gateway. The context value is immutable once
// built; agents never see a half-updated cycle.
package conductor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PerformanceSuite/Performia-sub001/pkg/agents"
	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/analyzer"
	"github.com/PerformanceSuite/Performia-sub001/pkg/buffer"
	"github.com/PerformanceSuite/Performia-sub001/pkg/bus"
	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
	"github.com/PerformanceSuite/Performia-sub001/pkg/tracker"
)

// TypeContext is the bus message type carrying context snapshots.
const TypeContext = "context"

// Config tunes the conductor. Zero values select the defaults.
type Config struct {
	// Mode is the initial following mode.
	Mode FollowingMode
	// DecisionTimeout is the per-agent, per-cycle deadline. An
	// agent that misses it contributes silence for the cycle.
	DecisionTimeout time.Duration
	// TempoSmoothing is the weight kept from the previous tempo in
	// adaptive mode.
	TempoSmoothing float64
	// ConfidenceFloor is the tracking confidence below which the
	// conductor forces fixed mode, and above which it releases it.
	ConfidenceFloor float64
}

func (c Config) withDefaults() Config {
	if c.DecisionTimeout <= 0 {
		c.DecisionTimeout = 50 * time.Millisecond
	}
	if c.TempoSmoothing <= 0 {
		c.TempoSmoothing = 0.85
	}
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = 0.4
	}
	return c
}

// Stats is a point-in-time view of the conductor's counters.
type Stats struct {
	Cycles        int64
	AgentTimeouts int64
	Mode          FollowingMode
	ForcedFixed   bool
	TrackerState  tracker.State
	Resyncs       int
	Confidence    float64
	Beat          float64
	Tempo         float64
}

// Conductor drives one performance session.
type Conductor struct {
	m      *songmap.Map
	b      *bus.Bus
	agents []agents.Agent
	cfg    Config

	mode atomic.Int32

	cycles   atomic.Int64
	timeouts atomic.Int64

	// mu guards the tracker and the loop-local estimates. The event
	// loop holds it only for tracker updates and snapshot assembly,
	// never across agent decisions, so Reset and Stats stay prompt.
	mu          sync.Mutex
	trk         *tracker.Tracker
	forcedFixed bool
	tempo       float64 // working tempo of the last cycle
	detected    float64 // latest live BPM estimate
	dynamics    float64
	beat        float64
	lastHz      float64 // most recent stable pitch, for onset tagging
}

// New builds a conductor for the given map, bus and agents.
func New(m *songmap.Map, b *bus.Bus, ag []agents.Agent, cfg Config) *Conductor {
	cfg = cfg.withDefaults()
	c := &Conductor{
		m:      m,
		trk:    tracker.New(m, tracker.Config{}),
		b:      b,
		agents: ag,
		cfg:    cfg,
		tempo:  m.TempoAt(0),
	}
	c.mode.Store(int32(cfg.Mode))
	return c
}

// Mode returns the configured following mode. The effective mode may
// differ while tracking is lost; see Stats.ForcedFixed.
func (c *Conductor) Mode() FollowingMode {
	return FollowingMode(c.mode.Load())
}

// SetMode changes the following mode for subsequent cycles.
func (c *Conductor) SetMode(m FollowingMode) {
	old := FollowingMode(c.mode.Swap(int32(m)))
	if old != m {
		slog.Info("conductor: mode change", "from", old, "to", m)
	}
}

// Reset force-positions the tracker at the given beat, cancelling
// any resync in progress. Safe to call while Run is looping.
func (c *Conductor) Reset(beat float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trk.Reset(beat)
	c.beat = beat
}

// Stats returns the current counters and estimates.
func (c *Conductor) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Cycles:        c.cycles.Load(),
		AgentTimeouts: c.timeouts.Load(),
		Mode:          c.Mode(),
		ForcedFixed:   c.forcedFixed,
		TrackerState:  c.trk.State(),
		Resyncs:       c.trk.Resyncs(),
		Confidence:    c.trk.Confidence(),
		Beat:          c.beat,
		Tempo:         c.tempo,
	}
}

// Run consumes events from q until ctx is canceled or q is closed.
func (c *Conductor) Run(ctx context.Context, q *buffer.SPSC[analyzer.Event]) error {
	for {
		ev, ok, err := q.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.Handle(ctx, ev)
	}
}

// Handle processes one analysis event. Pitch events only update the
// pitch latch; onsets and beats each trigger a full cycle.
func (c *Conductor) Handle(ctx context.Context, ev analyzer.Event) {
	switch ev.Kind {
	case analyzer.KindPitch:
		c.mu.Lock()
		c.lastHz = ev.Hz
		c.mu.Unlock()
		return

	case analyzer.KindOnset:
		c.mu.Lock()
		c.trk.OnOnset(ev.Time, pitchClass(c.lastHz))
		// Dense playing reads as loud; decay happens per cycle.
		c.dynamics += 0.15
		if c.dynamics > 1 {
			c.dynamics = 1
		}
		c.mu.Unlock()

	case analyzer.KindBeat:
		c.mu.Lock()
		c.detected = ev.Tempo
		c.mu.Unlock()
	}
	c.cycle(ctx, ev.Time)
}

// pitchClass converts a frequency to a pitch class, or -1 when no
// stable pitch is latched.
func pitchClass(hz float64) int {
	if hz <= 0 {
		return -1
	}
	midi := 69 + 12*math.Log2(hz/440)
	pc := int(math.Round(midi)) % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// cycle builds the context snapshot for time now, broadcasts it, and
// gathers the agents' decisions before returning.
func (c *Conductor) cycle(ctx context.Context, now float64) {
	mc := c.buildContext(now)

	// Snapshot first: every agent sees this cycle's context on the
	// bus before any decision for it is accepted.
	if err := c.b.Publish(bus.NewMessage("conductor", bus.Broadcast, TypeContext, bus.Normal, mc)); err != nil {
		slog.Debug("conductor: broadcast dropped", "err", err)
	}

	var wg sync.WaitGroup
	for _, a := range c.agents {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			c.runAgent(ctx, a, mc)
		}(a)
	}
	wg.Wait() // fan-in barrier: the cycle ends only when all agents answered
	c.cycles.Add(1)
}

// runAgent executes one agent's decide+play under the cycle deadline.
func (c *Conductor) runAgent(ctx context.Context, a agents.Agent, mc agents.Context) {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DecisionTimeout)
	defer cancel()

	done := make(chan []agents.NoteEvent, 1)
	go func() { done <- a.Decide(mc) }()

	select {
	case events := <-done:
		if len(events) == 0 {
			return
		}
		if err := a.Play(dctx, events); err != nil {
			slog.Warn("conductor: play failed", "agent", a.Name(), "err", err)
		}
	case <-dctx.Done():
		c.timeouts.Add(1)
		slog.Warn("conductor: agent deadline exceeded", "agent", a.Name())
	}
}

// buildContext assembles the immutable snapshot for one cycle.
func (c *Conductor) buildContext(now float64) agents.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	beat := c.trk.Position(now)
	conf := c.trk.Confidence()
	c.updateForcedFixed(conf)
	tempo := c.workingTempo(beat)
	c.dynamics *= 0.97
	c.beat = beat
	c.tempo = tempo

	mc := agents.Context{
		Beat:        beat,
		BarPhase:    c.m.BarPhase(beat),
		BeatsPerBar: 4,
		Tempo:       tempo,
		Chord:       c.m.ChordAt(beat),
		Section:     c.m.SectionAt(beat),
		Dynamics:    c.dynamics,
		Confidence:  conf,
	}
	if label, start, ok := c.m.ChordChangeAfter(beat); ok {
		mc.NextChord = label
		mc.BeatsToNext = start - beat
	}
	return mc
}

// updateForcedFixed forces fixed mode while tracking is lost and
// releases it once confidence clears the floor. Caller holds mu.
func (c *Conductor) updateForcedFixed(conf float64) {
	if c.trk.State() == tracker.Lost {
		if !c.forcedFixed {
			c.forcedFixed = true
			slog.Warn("conductor: tracking lost, forcing fixed mode")
		}
		return
	}
	if c.forcedFixed && conf >= c.cfg.ConfidenceFloor {
		c.forcedFixed = false
		slog.Info("conductor: confidence recovered, releasing fixed mode", "confidence", conf)
	}
}

// workingTempo derives the cycle tempo from the effective mode.
// Caller holds mu.
func (c *Conductor) workingTempo(beat float64) float64 {
	mapTempo := c.m.TempoAt(beat)

	mode := c.Mode()
	if c.forcedFixed {
		mode = ModeFixed
	}

	switch mode {
	case ModeFree:
		if c.detected > 0 {
			return c.detected
		}
		return mapTempo
	case ModeAdaptive:
		if c.detected <= 0 {
			return mapTempo
		}
		s := c.cfg.TempoSmoothing
		prev := c.tempo
		if prev <= 0 {
			prev = mapTempo
		}
		return s*prev + (1-s)*c.detected
	default:
		return mapTempo
	}
}
