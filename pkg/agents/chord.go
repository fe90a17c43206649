package agents

import (
	"fmt"
	"strings"
)

// Quality is the harmonic flavor of a parsed chord symbol.
type Quality int

const (
	QualityMajor Quality = iota
	QualityMinor
	QualityDominant7
	QualityMajor7
	QualityMinor7
	QualityDiminished
	QualitySus4
)

// Chord is a parsed chord symbol.
type Chord struct {
	Root    int // pitch class, C=0
	Quality Quality
}

var letterPitch = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseChord parses symbols like "G", "F#m", "Bb7", "Cmaj7", "Am7",
// "Ddim", "Esus4". Unknown suffixes degrade to the closest simpler
// quality rather than failing: the show must go on.
func ParseChord(label string) (Chord, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Chord{}, fmt.Errorf("agents: empty chord label")
	}
	root, ok := letterPitch[label[0]&^0x20] // uppercase the letter
	if !ok {
		return Chord{}, fmt.Errorf("agents: bad chord root in %q", label)
	}
	// Accidentals. No quality suffix starts with 'b', so a leading
	// 'b' is always a flat.
	rest := label[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			root = (root + 1) % 12
		case 'b':
			root = (root + 11) % 12
		default:
			goto quality
		}
		rest = rest[1:]
	}
quality:

	q := QualityMajor
	switch strings.ToLower(rest) {
	case "", "maj", "major":
		q = QualityMajor
	case "m", "min", "minor", "-":
		q = QualityMinor
	case "7", "dom7":
		q = QualityDominant7
	case "maj7", "ma7":
		q = QualityMajor7
	case "m7", "min7", "-7":
		q = QualityMinor7
	case "dim", "o", "dim7":
		q = QualityDiminished
	case "sus", "sus4":
		q = QualitySus4
	default:
		// Unrecognized extension: keep the root, guess the triad.
		if strings.HasPrefix(rest, "m") && !strings.HasPrefix(rest, "maj") {
			q = QualityMinor
		}
	}
	return Chord{Root: root, Quality: q}, nil
}

// Third returns the chord's third (or suspension) as a semitone
// interval above the root.
func (c Chord) Third() int {
	switch c.Quality {
	case QualityMinor, QualityMinor7, QualityDiminished:
		return 3
	case QualitySus4:
		return 5
	default:
		return 4
	}
}

// Fifth returns the chord's fifth as a semitone interval.
func (c Chord) Fifth() int {
	if c.Quality == QualityDiminished {
		return 6
	}
	return 7
}

// Seventh returns the seventh interval, or 0 when the chord has none.
func (c Chord) Seventh() int {
	switch c.Quality {
	case QualityDominant7, QualityMinor7:
		return 10
	case QualityMajor7:
		return 11
	case QualityDiminished:
		return 9
	}
	return 0
}

// PitchClass reduces a MIDI note to its pitch class.
func PitchClass(midi int) int {
	return ((midi % 12) + 12) % 12
}

// midiInOctave places pitch class pc in the octave starting at MIDI
// note base (base must itself be a C).
func midiInOctave(pc, base int) int {
	return base + pc
}

// approachTone returns the chromatic neighbor of target that leads
// into it from the direction of from: one semitone below when walking
// up, one above when walking down.
func approachTone(from, target int) int {
	if target > from {
		return target - 1
	}
	return target + 1
}
