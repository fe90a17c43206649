package session

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/PerformanceSuite/Performia-sub001/pkg/conductor"
)

// AudioConfig selects and parameterizes the audio source.
type AudioConfig struct {
	// SampleRate is the analyzer's native rate.
	SampleRate int `yaml:"sampleRate"`
	// BlockSize is the real-time block length in samples.
	BlockSize int `yaml:"blockSize"`

	// Source is one of "file", "click" or "rtp".
	Source string `yaml:"source"`
	// File is the raw L16 PCM path for the file source.
	File string `yaml:"file"`
	// ClickBPM drives the synthetic click source.
	ClickBPM float64 `yaml:"clickBPM"`
	// RTPListen is the UDP address for the rtp source.
	RTPListen string `yaml:"rtpListen"`
	// InputRate, when it differs from SampleRate, inserts a
	// resampling stage after the source.
	InputRate int `yaml:"inputRate"`
}

// ConductorConfig mirrors the conductor tunables.
type ConductorConfig struct {
	Mode              string  `yaml:"mode"`
	DecisionTimeoutMS int     `yaml:"decisionTimeoutMS"`
	TempoSmoothing    float64 `yaml:"tempoSmoothing"`
	ConfidenceFloor   float64 `yaml:"confidenceFloor"`
}

// AgentsConfig toggles the ensemble members.
type AgentsConfig struct {
	Bass         bool   `yaml:"bass"`
	Drums        bool   `yaml:"drums"`
	Harmony      bool   `yaml:"harmony"`
	HarmonyStyle string `yaml:"harmonyStyle"`
}

// GatewayConfig selects the synthesis gateway backend.
type GatewayConfig struct {
	// Kind is one of "stdout", "null" or "tcp".
	Kind string `yaml:"kind"`
	// Addr is the renderer address for the tcp kind.
	Addr string `yaml:"addr"`
	// MaxHeld bounds the batches buffered while the renderer is
	// unreachable.
	MaxHeld int `yaml:"maxHeld"`
}

// TelemetryConfig configures the monitoring endpoint.
type TelemetryConfig struct {
	// Listen is the HTTP address, empty to disable.
	Listen     string `yaml:"listen"`
	IntervalMS int    `yaml:"intervalMS"`
}

// Config is the session configuration, loaded from YAML.
type Config struct {
	// SongMap is the path of the map artifact (.json or .smp).
	SongMap string `yaml:"songMap"`

	Audio     AudioConfig     `yaml:"audio"`
	Conductor ConductorConfig `yaml:"conductor"`
	Agents    AgentsConfig    `yaml:"agents"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// QueueSize bounds the analysis event queue.
	QueueSize int `yaml:"queueSize"`
	// BusSize bounds the message bus backlog.
	BusSize int `yaml:"busSize"`
}

// DefaultConfig returns a runnable rehearsal setup: click source,
// stdout gateway, full ensemble.
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			BlockSize:  512,
			Source:     "click",
			ClickBPM:   120,
		},
		Conductor: ConductorConfig{Mode: "adaptive"},
		Agents: AgentsConfig{
			Bass:         true,
			Drums:        true,
			Harmony:      true,
			HarmonyStyle: "pop",
		},
		Gateway:   GatewayConfig{Kind: "stdout", MaxHeld: 8},
		Telemetry: TelemetryConfig{IntervalMS: 250},
		QueueSize: 256,
		BusSize:   256,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("session: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("session: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot start.
func (c Config) Validate() error {
	switch c.Audio.Source {
	case "click":
		if c.Audio.ClickBPM <= 0 {
			return fmt.Errorf("session: click source needs a positive clickBPM")
		}
	case "file":
		if c.Audio.File == "" {
			return fmt.Errorf("session: file source needs a file path")
		}
	case "rtp":
		if c.Audio.RTPListen == "" {
			return fmt.Errorf("session: rtp source needs a listen address")
		}
	default:
		return fmt.Errorf("session: unknown audio source %q", c.Audio.Source)
	}

	switch c.Gateway.Kind {
	case "stdout", "null":
	case "tcp":
		if c.Gateway.Addr == "" {
			return fmt.Errorf("session: tcp gateway needs an address")
		}
	default:
		return fmt.Errorf("session: unknown gateway kind %q", c.Gateway.Kind)
	}

	if _, err := conductor.ParseMode(c.Conductor.Mode); err != nil {
		return err
	}
	return nil
}

// conductorConfig converts to the conductor's own config type.
func (c Config) conductorConfig() (conductor.Config, error) {
	mode, err := conductor.ParseMode(c.Conductor.Mode)
	if err != nil {
		return conductor.Config{}, err
	}
	return conductor.Config{
		Mode:            mode,
		DecisionTimeout: time.Duration(c.Conductor.DecisionTimeoutMS) * time.Millisecond,
		TempoSmoothing:  c.Conductor.TempoSmoothing,
		ConfidenceFloor: c.Conductor.ConfidenceFloor,
	}, nil
}
