// Package session wires the engine together and exposes the host
// control surface: start, stop, reset and following-mode changes,
// each acknowledged synchronously without touching the audio path.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/PerformanceSuite/Performia-sub001/pkg/agents"
	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/analyzer"
	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/input"
	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/pcm"
	"github.com/PerformanceSuite/Performia-sub001/pkg/bus"
	"github.com/PerformanceSuite/Performia-sub001/pkg/conductor"
	"github.com/PerformanceSuite/Performia-sub001/pkg/songmap"
	"github.com/PerformanceSuite/Performia-sub001/pkg/synth"
	"github.com/PerformanceSuite/Performia-sub001/pkg/telemetry"
)

// ErrRunning is returned by Start when the session already runs.
var ErrRunning = errors.New("session: already running")

// ErrNotRunning is returned by Stop when there is nothing to stop.
var ErrNotRunning = errors.New("session: not running")

// Session owns one performance: the song map, the audio pipeline, the
// conductor and the ensemble.
type Session struct {
	cfg Config
	m   *songmap.Map

	src      input.Source
	gw       synth.Gateway
	buffered *synth.BufferedGateway

	b    *bus.Bus
	an   *analyzer.Analyzer
	cap  *input.Capture
	cond *conductor.Conductor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time

	ctxMu   sync.Mutex
	lastCtx agents.Context // latest broadcast delivered on the bus

	closers []func() error
}

// New builds a session from the configuration: loads the map, opens
// the audio source and the gateway, and assembles the pipeline.
func New(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := songmap.Load(cfg.SongMap)
	if err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, m: m}
	if err := s.openSource(); err != nil {
		return nil, err
	}
	if err := s.openGateway(); err != nil {
		s.closeAll()
		return nil, err
	}
	s.assemble()
	return s, nil
}

// newWith injects prebuilt collaborators. Tests use it to avoid real
// files and sockets.
func newWith(cfg Config, m *songmap.Map, src input.Source, gw synth.Gateway) *Session {
	s := &Session{cfg: cfg, m: m, src: src, gw: gw}
	s.assemble()
	return s
}

func (s *Session) openSource() error {
	a := s.cfg.Audio
	switch a.Source {
	case "click":
		s.src = input.NewClickSource(a.ClickBPM, a.SampleRate)
	case "file":
		rate := a.SampleRate
		if a.InputRate > 0 {
			rate = a.InputRate
		}
		format, ok := pcm.FormatForRate(rate)
		if !ok {
			return fmt.Errorf("session: no L16 format at %d Hz", rate)
		}
		f, err := os.Open(a.File)
		if err != nil {
			return fmt.Errorf("session: open audio file: %w", err)
		}
		s.closers = append(s.closers, f.Close)
		s.src = input.NewReaderSource(f, format)
	case "rtp":
		addr, err := net.ResolveUDPAddr("udp", a.RTPListen)
		if err != nil {
			return fmt.Errorf("session: resolve rtp address: %w", err)
		}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			return fmt.Errorf("session: listen rtp: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.src = input.NewRTPSource(conn)
	}

	if a.InputRate > 0 && a.InputRate != a.SampleRate {
		rs, err := input.NewResampledSource(s.src, a.InputRate, a.SampleRate)
		if err != nil {
			return err
		}
		s.src = rs
	}
	return nil
}

func (s *Session) openGateway() error {
	var inner synth.Gateway
	switch s.cfg.Gateway.Kind {
	case "null":
		inner = synth.NullGateway{}
	case "stdout":
		inner = synth.NewWriterGateway(os.Stdout)
	case "tcp":
		conn, err := net.Dial("tcp", s.cfg.Gateway.Addr)
		if err != nil {
			return fmt.Errorf("session: dial renderer: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		inner = synth.NewWriterGateway(conn)
	}
	s.buffered = synth.NewBufferedGateway(inner, s.cfg.Gateway.MaxHeld)
	s.gw = s.buffered
	return nil
}

// assemble builds the pipeline around the source and gateway.
func (s *Session) assemble() {
	s.b = bus.New(s.cfg.BusSize)
	s.an = analyzer.New(analyzer.Config{
		SampleRate: s.cfg.Audio.SampleRate,
		BlockSize:  s.cfg.Audio.BlockSize,
		QueueSize:  s.cfg.QueueSize,
	})
	s.cap = input.NewCapture(s.src, s.cfg.Audio.BlockSize, s.an.Process)

	var ensemble []agents.Agent
	if s.cfg.Agents.Bass {
		ensemble = append(ensemble, agents.NewBass(s.gw))
	}
	if s.cfg.Agents.Drums {
		ensemble = append(ensemble, agents.NewDrum(s.gw))
	}
	if s.cfg.Agents.Harmony {
		ensemble = append(ensemble, agents.NewHarmony(s.gw, agents.Style(s.cfg.Agents.HarmonyStyle)))
	}

	condCfg, _ := s.cfg.conductorConfig() // validated in New
	s.cond = conductor.New(s.m, s.b, ensemble, condCfg)

	// Monitors ride the same broadcast the agents see: the last
	// context snapshot delivered on the bus is what telemetry reports.
	s.b.Subscribe(conductor.TypeContext, func(m bus.Message) {
		if mc, ok := m.Payload.(agents.Context); ok {
			s.ctxMu.Lock()
			s.lastCtx = mc
			s.ctxMu.Unlock()
		}
	})
}

// Start spins up both scheduling domains. It returns once they are
// running; the audio path never waits on this call.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = time.Now()
	s.running = true

	go s.b.Run(ctx)

	// Real-time domain: capture feeds the analyzer callback. When
	// the source drains, closing the analyzer lets the conductor
	// finish the queued events and exit cleanly.
	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		if err := s.cap.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("session: capture stopped", "err", err)
		}
		s.an.Close()
	}()

	// Decision domain.
	go func() {
		defer close(s.done)
		if err := s.cond.Run(ctx, s.an.Events()); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("session: conductor stopped", "err", err)
		}
		<-captureDone
	}()

	slog.Info("session: started",
		"song", s.m.Title, "source", s.cfg.Audio.Source, "mode", s.cond.Mode())
	return nil
}

// Stop tears the pipeline down and waits for both domains to finish.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	// A capture goroutine blocked in a socket or file read only wakes
	// when its descriptor goes away, so release the sources before
	// waiting on the pipeline.
	if err := s.closeAll(); err != nil {
		slog.Warn("session: closing sources", "err", err)
	}
	<-done
	slog.Info("session: stopped", "uptime", time.Since(s.started).Round(time.Millisecond))
	return nil
}

// Close stops the session if needed and releases sockets and files.
func (s *Session) Close() error {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	s.b.Close()
	return s.closeAll()
}

func (s *Session) closeAll() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Done is closed when the pipeline ends on its own (source drained).
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Reset relocates the tracker to the given beat. Acknowledged when
// the jump has been applied.
func (s *Session) Reset(beat float64) error {
	if beat < 0 {
		return fmt.Errorf("session: reset beat must be non-negative, got %v", beat)
	}
	s.cond.Reset(beat)
	return nil
}

// SetFollowingMode switches the conductor's following mode.
func (s *Session) SetFollowingMode(name string) error {
	mode, err := conductor.ParseMode(name)
	if err != nil {
		return err
	}
	s.cond.SetMode(mode)
	return nil
}

// Snapshot aggregates the component counters for telemetry.
func (s *Session) Snapshot() telemetry.Snapshot {
	cs := s.cond.Stats()
	bs := s.b.Stats()

	var busDropped int64
	for _, n := range bs.Dropped {
		busDropped += n
	}

	snap := telemetry.Snapshot{
		Time:          time.Now(),
		Dropouts:      s.an.Dropouts(),
		Overflows:     s.an.Overflows(),
		SampleTime:    float64(s.an.SampleCount()) / float64(s.cfg.Audio.SampleRate),
		TrackerState:  cs.TrackerState.String(),
		Beat:          cs.Beat,
		Tempo:         cs.Tempo,
		Confidence:    cs.Confidence,
		Resyncs:       cs.Resyncs,
		Mode:          cs.Mode.String(),
		ForcedFixed:   cs.ForcedFixed,
		Cycles:        cs.Cycles,
		AgentTimeouts: cs.AgentTimeouts,
		BusDelivered:  bs.Delivered,
		BusDropped:    busDropped,
	}
	if s.buffered != nil {
		snap.GatewayDegraded = s.buffered.Degraded()
		snap.GatewayDropped = s.buffered.Dropped()
	}

	s.ctxMu.Lock()
	snap.Chord = s.lastCtx.Chord
	snap.Section = s.lastCtx.Section
	s.ctxMu.Unlock()
	return snap
}
