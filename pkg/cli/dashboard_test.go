package cli

import (
	"strings"
	"testing"

	"github.com/PerformanceSuite/Performia-sub001/pkg/telemetry"
)

func TestRenderContainsCoreFields(t *testing.T) {
	d := NewDashboard("performia")
	out := d.Render(telemetry.Snapshot{
		TrackerState: "tracking",
		Chord:        "G7",
		Section:      "chorus",
		Beat:         12.5,
		Tempo:        121.3,
		Confidence:   0.8,
		Mode:         "adaptive",
		Cycles:       42,
	}, 60)

	for _, want := range []string{"performia", "tracking", "G7 in chorus", "12.5", "121.3 bpm", "adaptive", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.Contains(out, "╭") || !strings.Contains(out, "╰") {
		t.Error("panel border missing")
	}
}

func TestRenderFlagsDegradation(t *testing.T) {
	d := NewDashboard("performia")
	out := d.Render(telemetry.Snapshot{
		TrackerState:    "lost",
		Mode:            "free",
		ForcedFixed:     true,
		GatewayDegraded: true,
		GatewayDropped:  3,
	}, 60)

	if !strings.Contains(out, "forced fixed") {
		t.Error("forced-fixed marker missing")
	}
	if !strings.Contains(out, "degraded, 3 dropped") {
		t.Error("gateway degradation missing")
	}
}

func TestConfidenceBar(t *testing.T) {
	if got := confidenceBar(1, 4); got != "▮▮▮▮ 1.00" {
		t.Errorf("full bar = %q", got)
	}
	if got := confidenceBar(0, 4); got != "▯▯▯▯ 0.00" {
		t.Errorf("empty bar = %q", got)
	}
	if got := confidenceBar(0.5, 4); got != "▮▮▯▯ 0.50" {
		t.Errorf("half bar = %q", got)
	}
}
