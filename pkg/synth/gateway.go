// Package synth is the boundary to the external sound-rendering
// engine. This system only emits note-level commands; it never waits
// for the renderer on the real-time path, and delivery is
// fire-and-forget, at most once.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// NoteCommand is one note handed to the rendering engine.
type NoteCommand struct {
	Instrument string  `json:"instrument"`
	Pitch      int     `json:"pitch"`
	Velocity   int     `json:"velocity"`
	Duration   float64 `json:"duration"` // beats
	Offset     float64 `json:"offset"`   // beats after the cycle boundary
}

// Gateway receives note commands. Send must not block on the
// renderer; implementations buffer or drop.
type Gateway interface {
	Send(ctx context.Context, cmds []NoteCommand) error
}

// ErrUnavailable reports that the rendering engine is unreachable.
var ErrUnavailable = errors.New("synth: gateway unavailable")

// WriterGateway streams commands as JSON lines. Used by tools, tests
// and as a pipe into an external renderer process.
type WriterGateway struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterGateway writes each batch of commands to w.
func NewWriterGateway(w io.Writer) *WriterGateway {
	return &WriterGateway{w: w}
}

func (g *WriterGateway) Send(_ context.Context, cmds []NoteCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	enc := json.NewEncoder(g.w)
	for _, c := range cmds {
		if err := enc.Encode(c); err != nil {
			return ErrUnavailable
		}
	}
	return nil
}

// NullGateway discards everything. Rehearsal mode without a renderer.
type NullGateway struct{}

func (NullGateway) Send(context.Context, []NoteCommand) error { return nil }
