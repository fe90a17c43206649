// Package bus delivers inter-agent messages with deterministic
// priority ordering and bounded memory.
//
// Delivery order is strict priority (Critical > High > Normal > Low)
// and FIFO within one priority class. Under saturation the lowest
// classes are evicted first; Critical messages are never dropped.
// Publish only enqueues and never blocks the caller.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders message delivery. Lower values deliver first.
type Priority int

const (
	// Critical carries beat events and timing-critical updates.
	Critical Priority = iota
	// High carries musical decisions and chord changes.
	High
	// Normal carries context updates and state changes.
	Normal
	// Low carries logging and analytics traffic.
	Low

	numPriorities
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case Critical:
		return "critical"
	case High:
		return "high"
	case Normal:
		return "normal"
	case Low:
		return "low"
	}
	return "unknown"
}

// Broadcast is the To value addressing every subscriber.
const Broadcast = "broadcast"

// Message is one unit of inter-agent communication.
type Message struct {
	ID        string
	From      string
	To        string // agent name or Broadcast
	Type      string
	Priority  Priority
	Timestamp time.Time
	Payload   any
}

// NewMessage stamps a message with an ID and the current time.
func NewMessage(from, to, msgType string, priority Priority, payload any) Message {
	return Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      msgType,
		Priority:  priority,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
