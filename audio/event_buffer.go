package audio

import (
	"runtime"
	"sync/atomic"
)

// eventBuffer is a lock-free spsc queue.
type eventBuffer struct {
	events      []Event
	read, write atomic.Uint32
}

func newEventBuffer(size int) *eventBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer{
		events: make([]Event, size),
	}
}

// push blocks the producer while the queue is full.
func (b *eventBuffer) push(ev Event) {
	for b.write.Load()-b.read.Load() == uint32(len(b.events)) {
		runtime.Gosched()
	}
	write := b.write.Load()
	b.events[write%uint32(len(b.events))] = ev
	b.write.Store(write + 1)
}

// drain appends queued events to dst without growing it. Events that don't
// fit stay in the queue for the next call.
func (b *eventBuffer) drain(dst []Event) []Event {
	read := b.read.Load()
	write := b.write.Load()
	for read != write && len(dst) < cap(dst) {
		dst = append(dst, b.events[read%uint32(len(b.events))])
		read++
	}
	b.read.Store(read)
	return dst
}
