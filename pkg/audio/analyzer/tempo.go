package analyzer

import "sort"

const (
	minBPM = 40.0
	maxBPM = 240.0
)

// tempoTracker estimates tempo from the periodicity of the onset
// envelope and gates raw onsets into beats. The autocorrelation is
// only evaluated every updateEvery envelope steps to bound CPU cost;
// every result is smoothed against the prior estimate to avoid
// jitter.
type tempoTracker struct {
	stepDur float64 // seconds between envelope entries (one block)

	env       []float64 // onset envelope ring
	envPos    int
	envFilled int

	updateEvery int
	sinceUpdate int

	estimate float64 // BPM

	// Beat gating state.
	beatTimes []float64 // recent accepted beat times, ring
	beatHead  int
	beatLen   int
	beatCount int
	scratch   []float64 // interval sort scratch, preallocated
	lastBeat  float64
	haveBeat  bool
}

// newTempoTracker tracks tempo over a windowSec envelope with one
// entry per audio block of blockSize samples.
func newTempoTracker(sampleRate, blockSize int, windowSec float64) *tempoTracker {
	stepDur := float64(blockSize) / float64(sampleRate)
	steps := int(windowSec / stepDur)
	return &tempoTracker{
		stepDur: stepDur,
		env:     make([]float64, steps),
		// Re-evaluate roughly every two seconds.
		updateEvery: int(2.0 / stepDur),
		estimate:    120,
		beatTimes:   make([]float64, 8),
		scratch:     make([]float64, 8),
	}
}

// addFlux records one envelope step and re-estimates tempo when due.
// Returns the current estimate and whether it was just re-evaluated.
func (t *tempoTracker) addFlux(flux float64) (bpm float64, updated bool) {
	t.env[t.envPos] = flux
	t.envPos = (t.envPos + 1) % len(t.env)
	if t.envFilled < len(t.env) {
		t.envFilled++
	}

	t.sinceUpdate++
	if t.sinceUpdate < t.updateEvery || t.envFilled < len(t.env) {
		return t.estimate, false
	}
	t.sinceUpdate = 0

	if measured, ok := t.autocorrelate(); ok {
		// Limit each update to ±20 BPM, then low-pass.
		diff := measured - t.estimate
		if diff > 20 {
			diff = 20
		} else if diff < -20 {
			diff = -20
		}
		t.estimate += diff * 0.3
	}
	return t.estimate, true
}

// autocorrelate scans the beat-period lag range for the strongest
// envelope self-similarity.
func (t *tempoTracker) autocorrelate() (bpm float64, ok bool) {
	n := t.envFilled
	minLag := int(60.0 / (maxBPM * t.stepDur))
	maxLag := int(60.0 / (minBPM * t.stepDur))
	if maxLag >= n/2 {
		maxLag = n/2 - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, false
	}

	bestLag, bestVal := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += t.envAt(i) * t.envAt(i+lag)
		}
		sum /= float64(n - lag)
		if sum > bestVal {
			bestVal = sum
			bestLag = lag
		}
	}
	if bestLag == 0 || bestVal == 0 {
		return 0, false
	}
	return 60.0 / (float64(bestLag) * t.stepDur), true
}

// envAt indexes the envelope ring in chronological order.
func (t *tempoTracker) envAt(i int) float64 {
	start := t.envPos - t.envFilled
	if start < 0 {
		start += len(t.env)
	}
	return t.env[(start+i)%len(t.env)]
}

// onOnset gates an onset at time now (seconds) into the beat grid. An
// onset counts as a beat when at least 70% of the expected beat
// interval has elapsed since the previous beat; accepted beats refine
// the tempo estimate from the median inter-beat interval.
func (t *tempoTracker) onOnset(now float64) (isBeat bool, bpm float64, beatIndex int) {
	if !t.haveBeat {
		t.haveBeat = true
		t.recordBeat(now)
		return true, t.estimate, t.beatCount
	}

	interval := 60.0 / t.estimate
	if now-t.lastBeat < interval*0.7 {
		return false, t.estimate, t.beatCount
	}
	t.recordBeat(now)

	if t.beatLen >= 4 {
		m := 0
		for i := 1; i < t.beatLen; i++ {
			t.scratch[m] = t.beatTime(i) - t.beatTime(i-1)
			m++
		}
		iv := t.scratch[:m]
		sort.Float64s(iv)
		median := iv[m/2]
		if median > 0 {
			t.estimate = 0.7*t.estimate + 0.3*60.0/median
		}
	}
	return true, t.estimate, t.beatCount
}

func (t *tempoTracker) recordBeat(now float64) {
	t.beatTimes[t.beatHead] = now
	t.beatHead = (t.beatHead + 1) % len(t.beatTimes)
	if t.beatLen < len(t.beatTimes) {
		t.beatLen++
	}
	t.lastBeat = now
	t.beatCount++
}

// beatTime indexes recorded beats in chronological order.
func (t *tempoTracker) beatTime(i int) float64 {
	start := t.beatHead - t.beatLen
	if start < 0 {
		start += len(t.beatTimes)
	}
	return t.beatTimes[(start+i)%len(t.beatTimes)]
}
