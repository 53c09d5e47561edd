package audio

import "sync"

const (
	eventQueueSize = 256
	maxBlockEvents = 128
)

// Source produces audio by adding to the buffers it is given.
type Source interface {
	Process([][]float32)
}

// Instrument feeds a Synth from a lock-free event queue, so notes can be
// played from other goroutines while the audio thread renders. Producers
// are serialized by a mutex, the audio thread never takes it. Notes
// scheduled by a Ticker arrive through PlayNote on the audio thread itself.
type Instrument struct {
	mu        sync.Mutex
	synth     *Synth
	events    *eventBuffer
	scheduled []Event
	pending   []Event
	buf       [][]float32
	blockSize int
}

func NewInstrument(synth *Synth, blockSize int) *Instrument {
	if blockSize <= 0 {
		blockSize = 512
	}
	buf := make([][]float32, synth.Channels())
	for n := range buf {
		buf[n] = make([]float32, blockSize)
	}
	return &Instrument{
		synth:     synth,
		events:    newEventBuffer(eventQueueSize),
		scheduled: make([]Event, 0, maxBlockEvents),
		pending:   make([]Event, 0, 2*maxBlockEvents),
		buf:       buf,
		blockSize: blockSize,
	}
}

func (i *Instrument) Synth() *Synth { return i.synth }

func (i *Instrument) NoteOn(note int, velocity float64) {
	i.push(Event{Kind: NoteOn, Note: note, Velocity: velocity})
}

func (i *Instrument) NoteOff(note int, allowTailOff bool) {
	i.push(Event{Kind: NoteOff, Note: note, TailOff: allowTailOff})
}

func (i *Instrument) AllNotesOff(allowTailOff bool) {
	i.push(Event{Kind: AllNotesOff, TailOff: allowTailOff})
}

func (i *Instrument) push(ev Event) {
	i.mu.Lock()
	i.events.push(ev)
	i.mu.Unlock()
}

// PlayNote schedules a note at a frame offset within the next processed
// buffer. The note is released after duration frames. PlayNote must be
// called on the goroutine that calls Process, before it; notes beyond the
// per-buffer limit are dropped.
func (i *Instrument) PlayNote(offset, pitch, velocity, duration int) {
	if len(i.scheduled) == cap(i.scheduled) {
		return
	}
	i.scheduled = append(i.scheduled, Event{
		Offset:   offset,
		Kind:     NoteOn,
		Note:     pitch,
		Velocity: float64(velocity) / 127,
		Duration: duration,
	})
}

// Process renders the queued events and adds the result to samples. A
// mono synth is copied to every output channel; extra synth channels are
// dropped when the output has fewer.
func (i *Instrument) Process(samples [][]float32) {
	if len(samples) == 0 {
		return
	}
	frames := len(samples[0])
	if frames == 0 {
		return
	}
	i.pending = append(i.pending[:0], i.scheduled...)
	i.scheduled = i.scheduled[:0]
	i.pending = i.events.drain(i.pending)
	for n := range i.pending {
		if i.pending[n].Offset < 0 {
			i.pending[n].Offset = 0
		}
		if i.pending[n].Offset >= frames {
			i.pending[n].Offset = frames - 1
		}
	}
	sortEvents(i.pending)

	events := i.pending
	for start := 0; start < frames; start += i.blockSize {
		n := frames - start
		if n > i.blockSize {
			n = i.blockSize
		}
		end := start + n

		k := 0
		for k < len(events) && events[k].Offset < end {
			events[k].Offset -= start
			k++
		}

		buf := i.buf
		for c := range buf {
			buf[c] = buf[c][:n]
		}
		i.synth.Process(buf, events[:k])
		events = events[k:]

		for c, out := range samples {
			src := buf[c%len(buf)]
			for j, sample := range src {
				out[start+j] += sample
			}
		}
		for c := range buf {
			buf[c] = buf[c][:i.blockSize]
		}
	}
}
