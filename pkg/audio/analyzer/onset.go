package analyzer

import "math"

// onsetDetector flags note attacks with the spectral-flux method:
// frame-to-frame magnitude spectrum differencing, summing only
// positive deltas, against an adaptively smoothed threshold.
type onsetDetector struct {
	fftSize int
	window  []float64

	re, im  []float64
	prevMag []float64
	haveRef bool

	// Adaptive threshold state: exponentially smoothed flux mean.
	fluxMean   float64
	multiplier float64
	prevFlux   float64

	// Refractory gap: one physical attack spans several analysis
	// frames, so re-triggering is suppressed for minGap calls.
	minGap    int
	sinceLast int
}

// newOnsetDetector detects attacks on fftSize frames; after each
// detection the next minGap calls cannot trigger again.
func newOnsetDetector(fftSize, minGap int) *onsetDetector {
	return &onsetDetector{
		fftSize:    fftSize,
		window:     hammingWindow(fftSize),
		re:         make([]float64, fftSize),
		im:         make([]float64, fftSize),
		prevMag:    make([]float64, fftSize/2+1),
		multiplier: 1.5,
		minGap:     minGap,
		sinceLast:  minGap,
	}
}

// process computes the spectral flux of frame and reports whether it
// crosses the adaptive threshold as a rising edge. The returned flux
// value feeds the tempo tracker's onset envelope.
func (o *onsetDetector) process(frame []float32) (flux float64, onset bool) {
	n := o.fftSize
	for i := 0; i < n; i++ {
		o.re[i] = float64(frame[i]) * o.window[i]
		o.im[i] = 0
	}
	fft(o.re, o.im)

	half := n/2 + 1
	for k := 0; k < half; k++ {
		mag := math.Sqrt(o.re[k]*o.re[k] + o.im[k]*o.im[k])
		if d := mag - o.prevMag[k]; d > 0 {
			flux += d
		}
		o.prevMag[k] = mag
	}

	if !o.haveRef {
		// First frame has no reference spectrum; seed the threshold.
		o.haveRef = true
		o.fluxMean = flux
		o.prevFlux = flux
		return 0, false
	}

	threshold := o.fluxMean * o.multiplier
	onset = flux > threshold && flux > o.prevFlux && o.sinceLast >= o.minGap

	// Smooth the running mean after the comparison so a sharp attack
	// does not mask itself.
	o.fluxMean = 0.9*o.fluxMean + 0.1*flux
	o.prevFlux = flux
	o.sinceLast++
	if onset {
		o.sinceLast = 0
	}
	return flux, onset
}

// reset clears spectral history, e.g. across a session restart.
func (o *onsetDetector) reset() {
	for i := range o.prevMag {
		o.prevMag[i] = 0
	}
	o.haveRef = false
	o.fluxMean = 0
	o.prevFlux = 0
	o.sinceLast = o.minGap
}
