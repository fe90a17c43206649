package input

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pion/rtp"
)

// PacketReader yields one datagram per call. *net.UDPConn satisfies
// it directly.
type PacketReader interface {
	Read(p []byte) (int, error)
}

// RTPSource depacketizes an RTP stream of L16 audio (network byte
// order per RFC 3551) into sample blocks. Packet loss is counted and
// skipped; the stream keeps flowing.
type RTPSource struct {
	conn PacketReader

	pkt      rtp.Packet
	datagram []byte
	pending  []float32

	lastSeq uint16
	haveSeq bool
	lost    atomic.Int64
}

// NewRTPSource reads RTP datagrams from conn.
func NewRTPSource(conn PacketReader) *RTPSource {
	return &RTPSource{
		conn:     conn,
		datagram: make([]byte, 2048),
	}
}

// Lost returns the number of RTP packets missing from the sequence.
func (s *RTPSource) Lost() int64 { return s.lost.Load() }

func (s *RTPSource) ReadBlock(dst []float32) error {
	for len(s.pending) < len(dst) {
		n, err := s.conn.Read(s.datagram)
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return fmt.Errorf("input: read rtp: %w", err)
		}
		if err := s.pkt.Unmarshal(s.datagram[:n]); err != nil {
			return fmt.Errorf("input: parse rtp: %w", err)
		}

		if s.haveSeq {
			if gap := s.pkt.SequenceNumber - s.lastSeq; gap > 1 {
				s.lost.Add(int64(gap - 1))
			}
		}
		s.lastSeq = s.pkt.SequenceNumber
		s.haveSeq = true

		// L16 payload: big-endian int16 samples.
		payload := s.pkt.Payload
		for i := 0; i+1 < len(payload); i += 2 {
			v := int16(payload[i])<<8 | int16(payload[i+1])
			s.pending = append(s.pending, float32(v)/32768.0)
		}
	}

	copy(dst, s.pending[:len(dst)])
	s.pending = s.pending[:copy(s.pending, s.pending[len(dst):])]
	return nil
}
