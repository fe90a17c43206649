package telemetry

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestServerStreamsSnapshots(t *testing.T) {
	var cycles atomic.Int64
	src := func() Snapshot {
		return Snapshot{
			Time:         time.Now(),
			TrackerState: "tracking",
			Mode:         "adaptive",
			Cycles:       cycles.Add(1),
			Confidence:   0.9,
		}
	}

	srv := httptest.NewServer(NewServer(src, 10*time.Millisecond))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	snaps, err := Stream(ctx, url)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var got []Snapshot
	for snap := range snaps {
		got = append(got, snap)
		if len(got) == 3 {
			cancel()
			break
		}
	}
	if len(got) < 3 {
		t.Fatalf("received %d snapshots; want 3", len(got))
	}
	if got[0].TrackerState != "tracking" || got[0].Mode != "adaptive" {
		t.Errorf("first snapshot = %+v", got[0])
	}
	// The source is polled fresh per frame, not cached.
	if got[2].Cycles <= got[0].Cycles {
		t.Errorf("cycles did not advance: %d then %d", got[0].Cycles, got[2].Cycles)
	}
}

func TestStreamDialError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := Stream(ctx, "ws://127.0.0.1:1/telemetry"); err == nil {
		t.Fatal("dial to a closed port succeeded")
	}
}
