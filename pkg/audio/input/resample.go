package input

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ResampledSource converts a source running at a foreign sample rate
// to the analyzer's native rate. Capture devices commonly deliver
// 48k; analysis runs at 44.1k.
type ResampledSource struct {
	src Source
	rs  resampling.Resampler

	srcBlock []float32
	srcF64   []float64
	leftover []float64
}

// NewResampledSource wraps src (producing srcRate audio) and emits
// dstRate blocks.
func NewResampledSource(src Source, srcRate, dstRate int) (*ResampledSource, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("input: create resampler: %w", err)
	}
	const chunk = 512
	return &ResampledSource{
		src:      src,
		rs:       rs,
		srcBlock: make([]float32, chunk),
		srcF64:   make([]float64, chunk),
	}, nil
}

func (s *ResampledSource) ReadBlock(dst []float32) error {
	for len(s.leftover) < len(dst) {
		if err := s.src.ReadBlock(s.srcBlock); err != nil {
			return err
		}
		for i, v := range s.srcBlock {
			s.srcF64[i] = float64(v)
		}
		out, err := s.rs.Process(s.srcF64)
		if err != nil {
			return fmt.Errorf("input: resample: %w", err)
		}
		s.leftover = append(s.leftover, out...)
	}
	for i := range dst {
		dst[i] = float32(s.leftover[i])
	}
	s.leftover = s.leftover[:copy(s.leftover, s.leftover[len(dst):])]
	return nil
}
