package synth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// BufferedGateway wraps an unreliable gateway. Failed sends are
// buffered briefly and retried on the next Send; when the buffer
// overflows, the oldest commands are dropped and a degraded flag is
// raised for telemetry. The caller is never blocked and never sees an
// error from the renderer.
type BufferedGateway struct {
	inner   Gateway
	maxHeld int

	mu       sync.Mutex
	held     []NoteCommand
	dropped  atomic.Int64
	degraded atomic.Bool
	lastFail atomic.Int64 // unix nanos of the most recent failure
}

// NewBufferedGateway holds at most maxHeld commands across outages.
func NewBufferedGateway(inner Gateway, maxHeld int) *BufferedGateway {
	if maxHeld <= 0 {
		maxHeld = 256
	}
	return &BufferedGateway{inner: inner, maxHeld: maxHeld}
}

// Send forwards cmds plus any backlog. Errors from the inner gateway
// are absorbed: the commands are held for the next attempt instead.
// Safe for concurrent use; the agents all play through one gateway
// and their cycles overlap.
func (g *BufferedGateway) Send(ctx context.Context, cmds []NoteCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	batch := cmds
	if len(g.held) > 0 {
		batch = append(g.held, cmds...)
		g.held = nil
	}
	if len(batch) == 0 {
		return nil
	}

	if err := g.inner.Send(ctx, batch); err != nil {
		g.lastFail.Store(time.Now().UnixNano())
		g.held = batch
		if over := len(g.held) - g.maxHeld; over > 0 {
			g.held = g.held[over:]
			g.dropped.Add(int64(over))
		}
		if g.degraded.CompareAndSwap(false, true) {
			slog.Warn("synth: gateway unavailable, buffering", "held", len(g.held))
		}
		return nil
	}

	if g.degraded.CompareAndSwap(true, false) {
		slog.Info("synth: gateway recovered")
	}
	return nil
}

// Degraded reports whether the most recent delivery attempt failed.
func (g *BufferedGateway) Degraded() bool { return g.degraded.Load() }

// Dropped returns how many commands were lost to buffer overflow.
func (g *BufferedGateway) Dropped() int64 { return g.dropped.Load() }
