package telemetry

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Stream connects to a telemetry endpoint and delivers snapshots on
// the returned channel until ctx is done or the server closes. Used
// by the monitor command.
func Stream(ctx context.Context, url string) (<-chan Snapshot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("telemetry: dial %s: %w", url, err)
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var snap Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	return out, nil
}
