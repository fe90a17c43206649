package analyzer

// Kind discriminates the analysis event union.
type Kind int

const (
	// KindPitch reports a stable fundamental frequency estimate.
	KindPitch Kind = iota
	// KindOnset reports a detected note attack.
	KindOnset
	// KindBeat reports a beat with the current tempo estimate.
	KindBeat
)

// String returns the event kind name.
func (k Kind) String() string {
	switch k {
	case KindPitch:
		return "pitch"
	case KindOnset:
		return "onset"
	case KindBeat:
		return "beat"
	}
	return "unknown"
}

// Event is a single analysis result. It is a flat value type so it
// can cross the real-time boundary without allocation; the Kind field
// selects which payload fields are meaningful.
type Event struct {
	Kind   Kind
	Sample int64   // originating sample count since session start
	Time   float64 // Sample expressed in seconds

	// KindPitch
	Hz         float64
	Confidence float64

	// KindBeat
	Tempo     float64 // BPM estimate
	BeatIndex int     // beats counted since session start
}
