package input

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// Capture pulls fixed-size blocks from a Source and hands each one to
// a consumer (the analyzer). It owns the real-time goroutine; the
// consumer callback must follow real-time rules (no blocking, no
// allocation).
type Capture struct {
	source    Source
	blockSize int
	process   func(block []float32)

	blocks  atomic.Int64
	errored atomic.Int64
}

// NewCapture feeds blockSize-sample blocks from source to process.
func NewCapture(source Source, blockSize int, process func([]float32)) *Capture {
	return &Capture{source: source, blockSize: blockSize, process: process}
}

// Run reads until the source ends, an unrecoverable error occurs or
// ctx is cancelled. A clean end of stream returns nil.
func (c *Capture) Run(ctx context.Context) error {
	block := make([]float32, c.blockSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.source.ReadBlock(block); err != nil {
			if errors.Is(err, io.EOF) {
				slog.Debug("input: source drained", "blocks", c.blocks.Load())
				return nil
			}
			c.errored.Add(1)
			return err
		}
		c.process(block)
		c.blocks.Add(1)
	}
}

// Blocks returns the number of blocks delivered so far.
func (c *Capture) Blocks() int64 { return c.blocks.Load() }
