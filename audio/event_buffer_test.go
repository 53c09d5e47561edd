package audio

import (
	"context"
	"testing"
)

func TestEventBufferDrainCapacity(t *testing.T) {
	buf := newEventBuffer(8)
	buf.push(Event{Offset: 2})
	buf.push(Event{Offset: 3})
	buf.push(Event{Offset: 4})

	events := buf.drain(make([]Event, 0, 2))
	if want, got := 2, len(events); want != got {
		t.Fatalf("expected %v events, got %v", want, got)
	}

	events = buf.drain(events[:0])
	if want, got := 1, len(events); want != got {
		t.Fatalf("expected %v events, got %v", want, got)
	}
	if want, got := 4, events[0].Offset; want != got {
		t.Errorf("wrong offset: want %v, got %v", want, got)
	}

	if got := buf.drain(events[:0]); len(got) != 0 {
		t.Errorf("expected empty queue, got %v", got)
	}
}

func TestEventBuffer(t *testing.T) {
	buf := newEventBuffer(8)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	var events []Event
	scratch := make([]Event, 0, 4)
	go func() {
		for {
			select {
			case <-ctx.Done():
				for {
					scratch = buf.drain(scratch[:0])
					if len(scratch) == 0 {
						break
					}
					events = append(events, scratch...)
				}
				done <- struct{}{}
				return
			default:
				scratch = buf.drain(scratch[:0])
				events = append(events, scratch...)
			}
		}
	}()

	const numEvents = 1_000_000
	for n := 0; n < numEvents; n++ {
		buf.push(Event{Offset: n})
	}

	cancel()
	<-done

	if len(events) != numEvents {
		t.Errorf("wrong number of events: want %v, got %v", numEvents, len(events))
	}

	prev := -1
	for _, ev := range events {
		if want, got := prev+1, ev.Offset; want != got {
			t.Errorf("discontinuous event offset: want: %v, got %v", want, ev.Offset)
		}
		prev++
	}
}
