package songmap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the on-disk encoding of a song map artifact.
type Format int

const (
	// FormatJSON is the interchange format emitted by the offline
	// analysis pipeline. Validated against a schema on load.
	FormatJSON Format = iota
	// FormatMsgpack is the compact binary form produced by
	// "performia map convert". Extension .smp.
	FormatMsgpack
)

// mapFile is the wire representation of a Map.
type mapFile struct {
	Title     string       `json:"title,omitempty" msgpack:"title"`
	Duration  float64      `json:"duration" msgpack:"duration"`
	Beats     []float64    `json:"beats" msgpack:"beats"`
	Downbeats []int        `json:"downbeats,omitempty" msgpack:"downbeats"`
	Tempo     []TempoPoint `json:"tempo,omitempty" msgpack:"tempo"`
	Chords    []Span       `json:"chords" msgpack:"chords"`
	Sections  []Span       `json:"sections" msgpack:"sections"`
	Anchors   []anchorFile `json:"anchors" msgpack:"anchors"`
}

type anchorFile struct {
	Time       float64 `json:"time" msgpack:"time"`
	Beat       float64 `json:"beat" msgpack:"beat"`
	PitchClass *int    `json:"pitchClass,omitempty" msgpack:"pitch_class"`
}

// mapSchema is resolved once; the schema mirrors the required-field
// contract of the offline pipeline's artifact.
var mapSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	// jsonschema-go requires the schema to form a tree, so each use
	// of the span schema needs its own node.
	spanSchema := func() *jsonschema.Schema {
		return &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"startBeat": {Type: "number"},
				"endBeat":   {Type: "number"},
				"label":     {Type: "string"},
			},
			Required: []string{"startBeat", "endBeat", "label"},
		}
	}
	s := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title":     {Type: "string"},
			"duration":  {Type: "number"},
			"beats":     {Type: "array", Items: &jsonschema.Schema{Type: "number"}},
			"downbeats": {Type: "array", Items: &jsonschema.Schema{Type: "integer"}},
			"tempo": {Type: "array", Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"beat": {Type: "number"},
					"bpm":  {Type: "number"},
				},
				Required: []string{"beat", "bpm"},
			}},
			"chords":   {Type: "array", Items: spanSchema()},
			"sections": {Type: "array", Items: spanSchema()},
			"anchors": {Type: "array", Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"time":       {Type: "number"},
					"beat":       {Type: "number"},
					"pitchClass": {Type: "integer"},
				},
				Required: []string{"time", "beat"},
			}},
		},
		Required: []string{"duration", "beats", "chords", "sections", "anchors"},
	}
	return s.Resolve(nil)
})

// Load reads a song map artifact from disk, choosing the decoder by
// file extension (.smp selects msgpack, everything else JSON).
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("songmap: open: %w", err)
	}
	defer f.Close()

	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".smp", ".msgpack":
		format = FormatMsgpack
	}
	return Decode(f, format)
}

// Decode reads a song map from r and validates it. The returned Map
// must not be mutated.
func Decode(r io.Reader, format Format) (*Map, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("songmap: read: %w", err)
	}

	var mf mapFile
	switch format {
	case FormatJSON:
		schema, err := mapSchema()
		if err != nil {
			return nil, fmt.Errorf("songmap: schema: %w", err)
		}
		var instance any
		if err := json.Unmarshal(data, &instance); err != nil {
			return nil, fmt.Errorf("songmap: parse: %w", err)
		}
		if err := schema.Validate(instance); err != nil {
			return nil, fmt.Errorf("songmap: invalid artifact: %w", err)
		}
		if err := json.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("songmap: parse: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("songmap: parse msgpack: %w", err)
		}
	default:
		return nil, fmt.Errorf("songmap: unknown format %d", format)
	}

	m := &Map{
		Title:     mf.Title,
		Duration:  mf.Duration,
		Beats:     mf.Beats,
		Downbeats: mf.Downbeats,
		Tempo:     mf.Tempo,
		Chords:    mf.Chords,
		Sections:  mf.Sections,
		Anchors:   make([]Anchor, len(mf.Anchors)),
	}
	for i, a := range mf.Anchors {
		pc := -1
		if a.PitchClass != nil {
			pc = *a.PitchClass
		}
		m.Anchors[i] = Anchor{Time: a.Time, Beat: a.Beat, PitchClass: pc}
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode writes m to w in the given format. Used by the map convert
// tool; JSON output round-trips through Decode.
func Encode(w io.Writer, m *Map, format Format) error {
	mf := mapFile{
		Title:     m.Title,
		Duration:  m.Duration,
		Beats:     m.Beats,
		Downbeats: m.Downbeats,
		Tempo:     m.Tempo,
		Chords:    m.Chords,
		Sections:  m.Sections,
		Anchors:   make([]anchorFile, len(m.Anchors)),
	}
	for i, a := range m.Anchors {
		af := anchorFile{Time: a.Time, Beat: a.Beat}
		if a.PitchClass >= 0 {
			pc := a.PitchClass
			af.PitchClass = &pc
		}
		mf.Anchors[i] = af
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&mf)
	case FormatMsgpack:
		data, err := msgpack.Marshal(&mf)
		if err != nil {
			return fmt.Errorf("songmap: encode msgpack: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("songmap: unknown format %d", format)
}
