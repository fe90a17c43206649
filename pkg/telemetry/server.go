package telemetry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Server streams snapshots to websocket clients. It implements
// http.Handler; mount it wherever the host exposes monitoring.
type Server struct {
	source   Source
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewServer streams source() every interval to each client.
func NewServer(source Source, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Server{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			// Monitoring is same-host tooling; no origin policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("telemetry: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	go s.stream(conn)
}

// stream pushes snapshots until the client goes away. Reads are
// discarded; the protocol is one-way.
func (s *Server) stream(conn *websocket.Conn) {
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First frame immediately so monitors render without waiting.
	if err := conn.WriteJSON(s.source()); err != nil {
		return
	}
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(s.source()); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("telemetry: client write failed", "err", err)
				}
				return
			}
		case <-closed:
			return
		}
	}
}
