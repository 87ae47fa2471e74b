// Package events carries detection events from the detector loops to the
// association engine. The bus is multi-producer, single-consumer: producers
// publish with a short timeout and drop on pressure, the consumer drains
// without blocking.
package events

import (
	"errors"
	"time"
)

// Kind discriminates detection event payloads.
type Kind int

const (
	// KindOutcome is a classified battle outcome.
	KindOutcome Kind = iota
	// KindStopMarker marks a recording stop detection.
	KindStopMarker
)

// Label is a battle outcome classification.
type Label string

const (
	LabelWin        Label = "win"
	LabelLose       Label = "lose"
	LabelDisconnect Label = "disconnect"
)

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case LabelWin, LabelLose, LabelDisconnect:
		return true
	}
	return false
}

// Event is one timestamped detection.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	Label     Label
	// Synthetic marks events inferred rather than detected (timeout fallback).
	Synthetic bool
}

// Outcome builds an outcome event stamped now.
func Outcome(label Label, ts time.Time) Event {
	return Event{Timestamp: ts, Kind: KindOutcome, Label: label}
}

// StopMarker builds a stop-marker event stamped now.
func StopMarker(ts time.Time) Event {
	return Event{Timestamp: ts, Kind: KindStopMarker}
}

// ErrPressure is returned when a publish cannot complete within its timeout.
// Losing one event degrades pairing accuracy, not correctness, so producers
// log it and move on.
var ErrPressure = errors.New("event channel full")

// Bus is the shared detection-event channel.
type Bus struct {
	ch      chan Event
	timeout time.Duration
}

// NewBus builds a bus with the given buffer size and publish timeout.
func NewBus(buffer int, timeout time.Duration) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	return &Bus{
		ch:      make(chan Event, buffer),
		timeout: timeout,
	}
}

// Publish enqueues one event, waiting at most the bus timeout. A full channel
// yields ErrPressure; the producer must never stall on a slow consumer.
func (b *Bus) Publish(ev Event) error {
	select {
	case b.ch <- ev:
		return nil
	default:
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	select {
	case b.ch <- ev:
		return nil
	case <-timer.C:
		return ErrPressure
	}
}

// Drain removes and returns every event currently buffered without blocking.
func (b *Bus) Drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-b.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Len reports the number of buffered events.
func (b *Bus) Len() int {
	return len(b.ch)
}
