package conductor

import "fmt"

// FollowingMode selects how the conductor derives the working tempo
// from the song map and the live tempo estimate.
type FollowingMode int

const (
	// ModeFixed ignores the live estimate and plays the map's tempo.
	ModeFixed FollowingMode = iota
	// ModeAdaptive blends the live estimate in with exponential
	// smoothing.
	ModeAdaptive
	// ModeFree adopts the live estimate immediately.
	ModeFree
)

// String returns the mode name.
func (m FollowingMode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeAdaptive:
		return "adaptive"
	case ModeFree:
		return "free"
	}
	return "unknown"
}

// ParseMode converts a mode name back to a FollowingMode.
func ParseMode(s string) (FollowingMode, error) {
	switch s {
	case "fixed":
		return ModeFixed, nil
	case "adaptive":
		return ModeAdaptive, nil
	case "free":
		return ModeFree, nil
	}
	return ModeFixed, fmt.Errorf("conductor: unknown following mode %q", s)
}
