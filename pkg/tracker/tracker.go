// Package tracker estimates the performer's position within a song
// map from live onset evidence.
//
// The tracker matches each detected onset against the map's anchor
// list inside a bounded beat window around the predicted position.
// Consecutive match failures walk a small state machine — Tracking,
// Uncertain, Resyncing, Lost — that widens the search window before
// giving up. Lost is a valid steady state: the tracker keeps dead
// reckoning from the map's tempo curve and keeps watching for a
// strong re-match, it never halts.
//
// A Tracker is driven by a single goroutine (the conductor's event
// loop) and is not safe for concurrent use.
package tracker

import (
	"log/slog"
	"math"

	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
)

// State is the tracking state.
type State int

const (
	// Tracking: onsets are matching anchors near the prediction.
	Tracking State = iota
	// Uncertain: a few consecutive onsets failed to match.
	Uncertain
	// Resyncing: the search window is widening to relocate.
	Resyncing
	// Lost: resync attempts exhausted; confidence is zero and the
	// position free-runs until a reset or a strong re-match.
	Lost
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Uncertain:
		return "uncertain"
	case Resyncing:
		return "resyncing"
	case Lost:
		return "lost"
	}
	return "unknown"
}

// Config tunes the tracker. Zero values select the defaults.
type Config struct {
	// Window is the half-width, in beats, of the anchor search
	// window while Tracking. It doubles on each resync step.
	Window float64
	// MaxWindow caps the widened window. Reaching it and still
	// missing transitions to Lost.
	MaxWindow float64
	// Tolerance is the largest beat residual accepted as a match
	// while Tracking or Uncertain. Resyncing accepts anything
	// inside the widened window.
	Tolerance float64

	// UncertainAfter and ResyncAfter are consecutive-miss counts
	// for the Tracking→Uncertain and Uncertain→Resyncing edges.
	UncertainAfter int
	ResyncAfter    int

	// Decay and Recovery move confidence on a miss and a match.
	Decay    float64
	Recovery float64

	// DriftSmoothing is the weight kept from the previous drift
	// estimate when a new inter-onset observation arrives.
	DriftSmoothing float64
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 4
	}
	if c.MaxWindow <= 0 {
		c.MaxWindow = 16
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 0.75
	}
	if c.UncertainAfter <= 0 {
		c.UncertainAfter = 2
	}
	if c.ResyncAfter <= 0 {
		c.ResyncAfter = 3
	}
	if c.Decay <= 0 {
		c.Decay = 0.15
	}
	if c.Recovery <= 0 {
		c.Recovery = 0.25
	}
	if c.DriftSmoothing <= 0 {
		c.DriftSmoothing = 0.9
	}
	return c
}

// Tracker holds the position estimate for one session.
type Tracker struct {
	m   *songmap.Map
	cfg Config

	state  State
	beat   float64
	conf   float64
	drift  float64 // observed seconds per beat / map seconds per beat
	window float64 // current search half-width in beats

	misses        int // consecutive unmatched onsets
	lastTime      float64
	lastMatch     int     // anchor index of the last match, -1 before any
	lastMatchTime float64 // performance time of that match
	started       bool

	resyncs int
}

// New builds a tracker positioned at beat 0 with full confidence.
func New(m *songmap.Map, cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{
		m:         m,
		cfg:       cfg,
		state:     Tracking,
		conf:      1,
		drift:     1,
		window:    cfg.Window,
		lastMatch: -1,
	}
}

// State returns the current tracking state.
func (t *Tracker) State() State { return t.state }

// Confidence returns the tracking confidence in [0, 1].
func (t *Tracker) Confidence() float64 { return t.conf }

// Drift returns the smoothed tempo-drift ratio: >1 means the
// performer is slower than the map, <1 faster.
func (t *Tracker) Drift() float64 { return t.drift }

// Resyncs returns how many resync jumps have happened this session.
func (t *Tracker) Resyncs() int { return t.resyncs }

// Position returns the beat estimate extrapolated to time now.
func (t *Tracker) Position(now float64) float64 {
	if !t.started || now <= t.lastTime {
		return t.beat
	}
	return t.beat + (now-t.lastTime)/t.secondsPerBeat()
}

// secondsPerBeat is the expected performance-time beat length at the
// current position.
func (t *Tracker) secondsPerBeat() float64 {
	bpm := t.m.TempoAt(t.beat)
	if bpm <= 0 {
		bpm = 120
	}
	return 60 / bpm * t.drift
}

// Reset force-positions the tracker. It cancels any resync in
// progress and restores full confidence. The only way the beat
// estimate moves backwards besides a resync jump.
func (t *Tracker) Reset(beat float64) {
	slog.Info("tracker: reset", "from", t.beat, "to", beat, "state", t.state)
	t.state = Tracking
	t.beat = beat
	t.conf = 1
	t.window = t.cfg.Window
	t.misses = 0
	t.lastMatch = -1
	t.started = false
}

// OnOnset feeds a detected onset at performance time at (seconds from
// session start). pc is the detected pitch class 0..11, or -1 when
// the onset carried no stable pitch; it corroborates anchor
// candidates that the offline pipeline tagged.
func (t *Tracker) OnOnset(at float64, pc int) {
	if !t.started {
		t.started = true
		t.lastTime = at
	}

	predicted := t.Position(at)
	idx, ok := t.match(predicted, pc)
	if ok {
		t.onMatch(at, predicted, idx)
	} else {
		t.onMiss(at, predicted)
	}
	t.lastTime = at
}

// match searches the anchor window around predicted and returns the
// best candidate index.
func (t *Tracker) match(predicted float64, pc int) (int, bool) {
	lo, hi := t.m.AnchorsBetween(predicted-t.window, predicted+t.window)
	best, bestDist := -1, math.MaxFloat64
	for i := lo; i < hi; i++ {
		a := t.m.Anchors[i]
		if pc >= 0 && a.PitchClass >= 0 && a.PitchClass != pc {
			continue
		}
		d := math.Abs(a.Beat - predicted)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return 0, false
	}

	switch t.state {
	case Tracking, Uncertain:
		if bestDist > t.cfg.Tolerance {
			return 0, false
		}
	case Lost:
		// Only a strong re-match pulls out of Lost without an
		// explicit reset: pitch-corroborated, or dead-on.
		corroborated := pc >= 0 && t.m.Anchors[best].PitchClass == pc
		if !corroborated && bestDist > t.cfg.Tolerance {
			return 0, false
		}
	}
	return best, true
}

func (t *Tracker) onMatch(at, predicted float64, idx int) {
	matched := t.m.Anchors[idx].Beat
	jumped := math.Abs(matched-predicted) > t.cfg.Tolerance

	if t.state != Tracking {
		slog.Info("tracker: recovered",
			"state", t.state, "beat", matched, "predicted", predicted)
	}
	if jumped {
		t.resyncs++
		slog.Warn("tracker: resync jump", "from", predicted, "to", matched)
	}

	// Tempo drift from the observed vs expected inter-anchor gap.
	// Only adjacent matches contribute: after a gap the observed
	// interval no longer corresponds to a single anchor step. The
	// interval is measured match-to-match, not from the last onset:
	// an unmatched onset in between must not shrink it.
	if t.lastMatch >= 0 && idx == t.lastMatch+1 && !jumped {
		expected := t.m.Anchors[idx].Time - t.m.Anchors[t.lastMatch].Time
		observed := at - t.lastMatchTime
		if expected > 0 && observed > 0 {
			ratio := observed / expected
			if ratio < 0.5 {
				ratio = 0.5
			} else if ratio > 2 {
				ratio = 2
			}
			s := t.cfg.DriftSmoothing
			t.drift = s*t.drift + (1-s)*ratio
		}
	}

	t.state = Tracking
	t.beat = matched
	t.window = t.cfg.Window
	t.misses = 0
	t.lastMatch = idx
	t.lastMatchTime = at
	t.conf += t.cfg.Recovery
	if t.conf > 1 {
		t.conf = 1
	}
}

func (t *Tracker) onMiss(at, predicted float64) {
	t.beat = predicted // keep dead reckoning
	t.misses++
	t.conf -= t.cfg.Decay
	if t.conf < 0 {
		t.conf = 0
	}

	switch t.state {
	case Tracking:
		if t.misses >= t.cfg.UncertainAfter {
			t.setState(Uncertain)
		}
	case Uncertain:
		if t.misses >= t.cfg.ResyncAfter {
			t.window = t.cfg.Window * 2
			t.setState(Resyncing)
		}
	case Resyncing:
		if t.window >= t.cfg.MaxWindow {
			t.conf = 0
			t.setState(Lost)
			t.window = t.cfg.MaxWindow
			return
		}
		t.window *= 2
	case Lost:
		// Free-running; window stays at max for re-match attempts.
	}
}

func (t *Tracker) setState(s State) {
	if s == t.state {
		return
	}
	slog.Info("tracker: state change",
		"from", t.state, "to", s, "beat", t.beat, "confidence", t.conf)
	t.state = s
}
