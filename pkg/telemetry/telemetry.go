// Package telemetry exposes the engine's health counters to external
// monitors over a websocket stream.
package telemetry

import "time"

// Snapshot is one point-in-time view of the engine's counters and
// gauges. It is assembled by the session from the component stats and
// streamed as JSON frames.
type Snapshot struct {
	Time time.Time `json:"time"`

	// Real-time path health.
	Dropouts   int64   `json:"dropouts"`   // analysis budget misses
	Overflows  int64   `json:"overflows"`  // event queue drops
	SampleTime float64 `json:"sampleTime"` // seconds of audio consumed

	// Musical context, from the last broadcast delivered on the bus.
	Chord   string `json:"chord"`
	Section string `json:"section"`

	// Tracking.
	TrackerState string  `json:"trackerState"`
	Beat         float64 `json:"beat"`
	Tempo        float64 `json:"tempo"`
	Confidence   float64 `json:"confidence"`
	Resyncs      int     `json:"resyncs"`

	// Conducting.
	Mode          string `json:"mode"`
	ForcedFixed   bool   `json:"forcedFixed"`
	Cycles        int64  `json:"cycles"`
	AgentTimeouts int64  `json:"agentTimeouts"`

	// Bus.
	BusDelivered int64 `json:"busDelivered"`
	BusDropped   int64 `json:"busDropped"`

	// Synthesis gateway.
	GatewayDegraded bool  `json:"gatewayDegraded"`
	GatewayDropped  int64 `json:"gatewayDropped"`
}

// Source produces the current snapshot. The session provides one; the
// server polls it per connected client.
type Source func() Snapshot
