package events_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"clipmark/internal/events"
)

func TestPublishDrainRoundTrip(t *testing.T) {
	bus := events.NewBus(8, 50*time.Millisecond)

	now := time.Now()
	if err := bus.Publish(events.Outcome(events.LabelWin, now)); err != nil {
		t.Fatalf("publish outcome: %v", err)
	}
	if err := bus.Publish(events.StopMarker(now.Add(time.Second))); err != nil {
		t.Fatalf("publish stop marker: %v", err)
	}

	drained := bus.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 events, got %d", len(drained))
	}
	if drained[0].Kind != events.KindOutcome || drained[0].Label != events.LabelWin {
		t.Fatalf("unexpected first event: %+v", drained[0])
	}
	if drained[1].Kind != events.KindStopMarker {
		t.Fatalf("unexpected second event: %+v", drained[1])
	}
	if got := bus.Drain(); len(got) != 0 {
		t.Fatalf("expected empty drain, got %d events", len(got))
	}
}

func TestPublishDropsUnderPressure(t *testing.T) {
	bus := events.NewBus(1, 10*time.Millisecond)

	if err := bus.Publish(events.StopMarker(time.Now())); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := bus.Publish(events.StopMarker(time.Now()))
	if !errors.Is(err, events.ErrPressure) {
		t.Fatalf("expected ErrPressure, got %v", err)
	}
	// The buffered event survives the dropped one.
	if got := len(bus.Drain()); got != 1 {
		t.Fatalf("expected 1 surviving event, got %d", got)
	}
}

func TestConcurrentProducers(t *testing.T) {
	bus := events.NewBus(256, 100*time.Millisecond)

	var wg sync.WaitGroup
	const perProducer = 50
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := bus.Publish(events.Outcome(events.LabelLose, time.Now())); err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := len(bus.Drain()); got != 2*perProducer {
		t.Fatalf("expected %d events, got %d", 2*perProducer, got)
	}
}

func TestLabelValid(t *testing.T) {
	for _, l := range []events.Label{events.LabelWin, events.LabelLose, events.LabelDisconnect} {
		if !l.Valid() {
			t.Fatalf("label %q should be valid", l)
		}
	}
	if events.Label("draw").Valid() {
		t.Fatal("unknown label should be invalid")
	}
}
