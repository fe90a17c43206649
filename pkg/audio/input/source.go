// Package input captures fixed-size audio blocks from a live source
// and feeds them to the analysis engine.
//
// A Source produces mono float32 blocks at the analyzer's native
// rate. Network, file and synthetic sources are provided; resampling
// sources adapt foreign capture rates.
package input

import (
	"fmt"
	"io"
	"math"

	"github.com/PerformanceSuite/Performia-sub001/pkg/audio/pcm"
)

// Source produces audio sample blocks. ReadBlock fills dst completely
// or returns an error; io.EOF signals the end of the stream.
type Source interface {
	ReadBlock(dst []float32) error
}

// ReaderSource adapts a raw little-endian L16 PCM stream (a file, a
// pipe, a capture process) into a Source.
type ReaderSource struct {
	r      io.Reader
	format pcm.Format
	raw    []byte
}

// NewReaderSource reads PCM in the given format from r.
func NewReaderSource(r io.Reader, format pcm.Format) *ReaderSource {
	return &ReaderSource{r: r, format: format}
}

// Format returns the stream's PCM format.
func (s *ReaderSource) Format() pcm.Format { return s.format }

func (s *ReaderSource) ReadBlock(dst []float32) error {
	need := int(s.format.Bytes(int64(len(dst))))
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	if _, err := io.ReadFull(s.r, s.raw[:need]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return fmt.Errorf("input: read pcm: %w", err)
	}
	pcm.BytesToFloat32(s.raw[:need], dst)
	return nil
}

// ClickSource synthesizes an endless click track: a short decaying
// 1kHz burst on every beat. Used for rehearsal mode and test rigs.
type ClickSource struct {
	sampleRate int
	interval   int // samples between clicks
	burst      int // samples per click
	pos        int64
}

// NewClickSource clicks at bpm on a sampleRate stream.
func NewClickSource(bpm float64, sampleRate int) *ClickSource {
	return &ClickSource{
		sampleRate: sampleRate,
		interval:   int(60.0 / bpm * float64(sampleRate)),
		burst:      int(0.03 * float64(sampleRate)),
	}
}

func (s *ClickSource) ReadBlock(dst []float32) error {
	for i := range dst {
		phase := int(s.pos % int64(s.interval))
		if phase < s.burst {
			env := 1.0 - float64(phase)/float64(s.burst)
			dst[i] = float32(0.9 * env * math.Sin(2*math.Pi*1000*float64(phase)/float64(s.sampleRate)))
		} else {
			dst[i] = 0
		}
		s.pos++
	}
	return nil
}
