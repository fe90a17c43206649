// Package analyzer turns raw audio blocks into pitch, onset and beat
// events under a bounded per-block time budget.
//
// Process is the hot path: it runs inside the real-time domain, uses
// only buffers allocated at construction time, takes no locks and
// never blocks. Results cross into the decision domain through a
// bounded single-producer/single-consumer queue; when that queue is
// full the event is dropped and counted, never waited on.
package analyzer

import (
	"sync/atomic"
	"time"

	"github.com/PerformanceSuite/Performia-sub001/pkg/buffer"
)

// Config controls the analysis front-end.
type Config struct {
	SampleRate  int // Hz (default 44100)
	BlockSize   int // samples per block (default 512, ~11.6ms at 44.1k)
	FrameLength int // analysis frame, power of two (default 2048)

	FMin float64 // lowest detectable pitch (default 65 Hz, C2)
	FMax float64 // highest detectable pitch (default 2093 Hz, C7)

	// QueueSize bounds the event queue crossing to the decision
	// domain (default 256).
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = 44100
	}
	if c.BlockSize == 0 {
		c.BlockSize = 512
	}
	if c.FrameLength == 0 {
		c.FrameLength = 2048
	}
	if c.FMin == 0 {
		c.FMin = 65.41 // C2
	}
	if c.FMax == 0 {
		c.FMax = 2093.0 // C7
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	return c
}

// Analyzer is the real-time analysis engine. One goroutine feeds
// Process; the decision domain drains Events.
type Analyzer struct {
	cfg Config

	window *buffer.Window // recent samples for frame assembly
	frame  []float32      // scratch analysis frame

	pitch *pitchDetector
	onset *onsetDetector
	tempo *tempoTracker

	queue *buffer.SPSC[Event]

	sampleCount int64
	budget      time.Duration
	dropouts    atomic.Int64
}

// New creates an analyzer. All per-block scratch state is allocated
// here; Process allocates nothing.
func New(cfg Config) *Analyzer {
	cfg = cfg.withDefaults()
	return &Analyzer{
		cfg:    cfg,
		window: buffer.NewWindow(cfg.FrameLength * 4),
		frame:  make([]float32, cfg.FrameLength),
		pitch:  newPitchDetector(cfg.SampleRate, cfg.FrameLength, cfg.FMin, cfg.FMax),
		// A 50ms refractory gap keeps one attack from triggering on
		// several consecutive frames.
		onset:  newOnsetDetector(cfg.FrameLength, int(0.05*float64(cfg.SampleRate))/cfg.BlockSize),
		tempo:  newTempoTracker(cfg.SampleRate, cfg.BlockSize, 4.0),
		queue:  buffer.NewSPSC[Event](cfg.QueueSize),
		budget: time.Duration(cfg.BlockSize) * time.Second / time.Duration(cfg.SampleRate),
	}
}

// Events returns the queue consumed by the decision domain.
func (a *Analyzer) Events() *buffer.SPSC[Event] {
	return a.queue
}

// Process analyzes one fixed-size audio block. Must be called from a
// single goroutine with blocks of Config.BlockSize samples.
func (a *Analyzer) Process(block []float32) {
	started := time.Now()

	a.sampleCount += int64(len(block))
	a.window.Write(block)
	now := float64(a.sampleCount) / float64(a.cfg.SampleRate)

	if !a.window.Recent(a.frame) {
		// Not enough audio buffered yet; a silent gap, not an error.
		return
	}

	// Onset detection drives both position tracking and the tempo
	// envelope, so it runs first.
	flux, onsetDetected := a.onset.process(a.frame)
	if onsetDetected {
		a.push(Event{Kind: KindOnset, Sample: a.sampleCount, Time: now})
		if isBeat, bpm, idx := a.tempo.onOnset(now); isBeat {
			a.push(Event{Kind: KindBeat, Sample: a.sampleCount, Time: now, Tempo: bpm, BeatIndex: idx})
		}
	}

	if bpm, updated := a.tempo.addFlux(flux); updated {
		a.push(Event{Kind: KindBeat, Sample: a.sampleCount, Time: now, Tempo: bpm, BeatIndex: a.tempo.beatCount})
	}

	if hz, conf := a.pitch.detect(a.frame); conf > 0.5 {
		a.push(Event{Kind: KindPitch, Sample: a.sampleCount, Time: now, Hz: hz, Confidence: conf})
	}

	if time.Since(started) > a.budget {
		a.dropouts.Add(1)
	}
}

func (a *Analyzer) push(e Event) {
	// Full queue: TryPush drops and counts. Never block here.
	a.queue.TryPush(e)
}

// Dropouts reports how many blocks exceeded the analysis time budget.
func (a *Analyzer) Dropouts() int64 {
	return a.dropouts.Load()
}

// Overflows reports how many events were dropped on a full queue.
func (a *Analyzer) Overflows() int64 {
	return a.queue.Dropped()
}

// SampleCount returns the number of samples processed so far.
func (a *Analyzer) SampleCount() int64 {
	return a.sampleCount
}

// Close closes the event queue; pending events remain readable.
func (a *Analyzer) Close() {
	a.queue.Close()
}
