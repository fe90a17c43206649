package analyzer

// pitchDetector estimates the fundamental frequency of a frame with
// the YIN difference-function method: cumulative mean normalized
// difference, absolute threshold, and sub-sample parabolic
// interpolation around the chosen lag. All scratch buffers are
// allocated once in newPitchDetector; detect never allocates.
type pitchDetector struct {
	sampleRate int
	threshold  float64

	minLag int // from the highest detectable frequency
	maxLag int // from the lowest detectable frequency

	diff []float64 // difference function, indexed by lag
	cmnd []float64 // cumulative mean normalized difference
}

// newPitchDetector covers fmin..fmax Hz on frames of frameLen samples.
func newPitchDetector(sampleRate, frameLen int, fmin, fmax float64) *pitchDetector {
	maxLag := int(float64(sampleRate) / fmin)
	if maxLag > frameLen/2 {
		maxLag = frameLen / 2
	}
	minLag := int(float64(sampleRate) / fmax)
	if minLag < 2 {
		minLag = 2
	}
	return &pitchDetector{
		sampleRate: sampleRate,
		threshold:  0.15,
		minLag:     minLag,
		maxLag:     maxLag,
		diff:       make([]float64, maxLag+1),
		cmnd:       make([]float64, maxLag+1),
	}
}

// detect returns the estimated frequency in Hz and a confidence in
// [0,1]. A frame with no stable periodicity returns (0, 0); that is
// an expected outcome, not an error.
func (p *pitchDetector) detect(frame []float32) (hz, confidence float64) {
	n := len(frame)
	if n < p.maxLag*2 {
		return 0, 0
	}
	half := n / 2

	// Difference function d(tau).
	for tau := 0; tau <= p.maxLag; tau++ {
		var sum float64
		for i := 0; i < half; i++ {
			d := float64(frame[i]) - float64(frame[i+tau])
			sum += d * d
		}
		p.diff[tau] = sum
	}

	// Cumulative mean normalized difference d'(tau).
	p.cmnd[0] = 1
	running := 0.0
	for tau := 1; tau <= p.maxLag; tau++ {
		running += p.diff[tau]
		if running == 0 {
			p.cmnd[tau] = 1
		} else {
			p.cmnd[tau] = p.diff[tau] * float64(tau) / running
		}
	}

	// Absolute threshold: first dip below threshold, refined to its
	// local minimum.
	tau := -1
	for t := p.minLag; t <= p.maxLag; t++ {
		if p.cmnd[t] < p.threshold {
			for t+1 <= p.maxLag && p.cmnd[t+1] < p.cmnd[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0, 0
	}

	// Parabolic interpolation for sub-sample lag precision.
	better := float64(tau)
	if tau > p.minLag && tau < p.maxLag {
		s0, s1, s2 := p.cmnd[tau-1], p.cmnd[tau], p.cmnd[tau+1]
		denom := 2*s1 - s2 - s0
		if denom != 0 {
			better += (s2 - s0) / (2 * denom)
		}
	}

	hz = float64(p.sampleRate) / better
	confidence = 1 - p.cmnd[tau]
	if confidence < 0 {
		confidence = 0
	}
	return hz, confidence
}
