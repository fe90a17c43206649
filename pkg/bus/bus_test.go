package bus

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"
)

func collect(b *Bus, msgType string) *[]Message {
	var got []Message
	b.Subscribe(msgType, func(m Message) {
		got = append(got, m)
	})
	return &got
}

// A Critical message enqueued strictly after a Normal message must be
// delivered strictly before it.
func TestPriorityBeatsFIFO(t *testing.T) {
	b := New(16)
	got := collect(b, "note")

	b.Publish(NewMessage("a", Broadcast, "note", Normal, "first-normal"))
	b.Publish(NewMessage("a", Broadcast, "note", Critical, "late-critical"))
	b.DrainOnce()

	if len(*got) != 2 {
		t.Fatalf("delivered %d", len(*got))
	}
	if (*got)[0].Payload != "late-critical" || (*got)[1].Payload != "first-normal" {
		t.Errorf("order: %v, %v", (*got)[0].Payload, (*got)[1].Payload)
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	b := New(16)
	got := collect(b, "note")

	for i := 0; i < 5; i++ {
		b.Publish(NewMessage("a", Broadcast, "note", High, i))
	}
	b.DrainOnce()

	for i, m := range *got {
		if m.Payload != i {
			t.Fatalf("position %d got payload %v", i, m.Payload)
		}
	}
}

func TestSubscriptionByType(t *testing.T) {
	b := New(16)
	notes := collect(b, "note")
	beats := collect(b, "beat")

	b.Publish(NewMessage("a", Broadcast, "note", Normal, 1))
	b.Publish(NewMessage("a", Broadcast, "beat", Normal, 2))
	b.Publish(NewMessage("a", Broadcast, "note", Normal, 3))
	b.DrainOnce()

	if len(*notes) != 2 || len(*beats) != 1 {
		t.Errorf("notes=%d beats=%d", len(*notes), len(*beats))
	}
}

// Saturation drops Low first, then Normal; Critical survives even a
// saturated queue.
func TestSaturationDropPolicy(t *testing.T) {
	b := New(4)
	for i := 0; i < 4; i++ {
		b.Publish(NewMessage("a", Broadcast, "x", Low, i))
	}
	// Queue full of Low: a Normal publish evicts a Low.
	b.Publish(NewMessage("a", Broadcast, "x", Normal, "n"))
	s := b.Stats()
	if s.Dropped[Low] != 1 {
		t.Errorf("low drops=%d; want 1", s.Dropped[Low])
	}

	// Fill with Critical beyond the bound: none may be dropped.
	for i := 0; i < 10; i++ {
		b.Publish(NewMessage("a", Broadcast, "x", Critical, i))
	}
	if d := b.Stats().Dropped[Critical]; d != 0 {
		t.Errorf("critical drops=%d; want 0", d)
	}
}

func TestLowestEvictedFirst(t *testing.T) {
	b := New(3)
	b.Publish(NewMessage("a", Broadcast, "x", Normal, 0))
	b.Publish(NewMessage("a", Broadcast, "x", Low, 1))
	b.Publish(NewMessage("a", Broadcast, "x", High, 2))

	b.Publish(NewMessage("a", Broadcast, "x", High, 3))
	s := b.Stats()
	if s.Dropped[Low] != 1 || s.Dropped[Normal] != 0 {
		t.Errorf("dropped=%v", s.Dropped)
	}

	b.Publish(NewMessage("a", Broadcast, "x", High, 4))
	s = b.Stats()
	if s.Dropped[Normal] != 1 {
		t.Errorf("normal drops=%d; want 1", s.Dropped[Normal])
	}
}

// Sustained mixed-priority load with a live delivery loop: zero
// Critical drops, while Low drops are allowed.
func TestSustainedLoadPreservesCritical(t *testing.T) {
	b := New(64)

	var mu sync.Mutex
	criticalSeen := 0
	b.Subscribe("x", func(m Message) {
		if m.Priority == Critical {
			mu.Lock()
			criticalSeen++
			mu.Unlock()
		}
		// Simulate a slow consumer so the queue saturates.
		time.Sleep(10 * time.Microsecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	rng := rand.New(rand.NewSource(1))
	criticalSent := 0
	const total = 5000
	for i := 0; i < total; i++ {
		p := Priority(rng.Intn(4))
		if p == Critical {
			criticalSent++
		}
		b.Publish(NewMessage("load", Broadcast, "x", p, i))
	}

	// Wait for the queue to drain, then stop the loop.
	deadline := time.Now().Add(5 * time.Second)
	for b.QueueLen() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	b.DrainOnce()

	if d := b.Stats().Dropped[Critical]; d != 0 {
		t.Errorf("critical drops=%d; want 0", d)
	}
	mu.Lock()
	defer mu.Unlock()
	if criticalSeen != criticalSent {
		t.Errorf("critical delivered %d of %d", criticalSeen, criticalSent)
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := New(4)
	b.Close()
	if err := b.Publish(NewMessage("a", Broadcast, "x", Normal, nil)); err != ErrClosed {
		t.Errorf("err=%v; want ErrClosed", err)
	}
}
