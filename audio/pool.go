package audio

import (
	"math"
	"sync/atomic"
)

// StealPolicy decides what happens to a note on when every voice is busy.
type StealPolicy int

const (
	// StealNone drops the new note.
	StealNone StealPolicy = iota
	// StealOldest restarts the voice that was triggered longest ago.
	StealOldest
)

func (s StealPolicy) String() string {
	switch s {
	case StealOldest:
		return "oldest"
	default:
		return "none"
	}
}

// ParseStealPolicy converts a policy name as used in config files.
func ParseStealPolicy(s string) (StealPolicy, bool) {
	switch s {
	case "", "none":
		return StealNone, true
	case "oldest":
		return StealOldest, true
	}
	return StealNone, false
}

// Pool is a fixed set of voices. It is not safe for concurrent use: note
// events and rendering must happen on the same goroutine. Only Active and
// Dropped may be called from other goroutines.
type Pool struct {
	voices     []voice
	sampleRate float64
	steal      StealPolicy
	serial     uint64

	active  atomic.Int32
	dropped atomic.Uint64
}

func NewPool(size int, sampleRate float64) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		voices:     make([]voice, size),
		sampleRate: sampleRate,
	}
	p.Reset()
	return p
}

// Prepare sets the sample rate used for notes started from now on.
func (p *Pool) Prepare(sampleRate float64) {
	p.sampleRate = sampleRate
}

func (p *Pool) SetStealPolicy(s StealPolicy) {
	p.steal = s
}

func (p *Pool) Size() int { return len(p.voices) }

// Reset silences and unassigns every voice.
func (p *Pool) Reset() {
	for i := range p.voices {
		p.voices[i] = newVoice()
	}
	p.active.Store(0)
}

func (p *Pool) NoteOn(note int, velocity float64) {
	p.noteOn(note, velocity, 0)
}

func (p *Pool) noteOn(note int, velocity float64, gate int) {
	note = clampNote(note)
	velocity = clamp01(velocity)
	if gate < 0 {
		gate = 0
	}

	v := p.findNote(note)
	if v == nil {
		v = p.findFree()
	}
	if v == nil && p.steal == StealOldest {
		v = p.findOldest()
	}
	if v == nil {
		p.dropped.Add(1)
		return
	}
	p.serial++
	v.start(note, velocity, p.sampleRate, gate, p.serial)
	p.countActive()
}

func (p *Pool) NoteOff(note int, allowTailOff bool) {
	if v := p.findNote(clampNote(note)); v != nil {
		v.stop(allowTailOff)
		p.countActive()
	}
}

func (p *Pool) AllNotesOff(allowTailOff bool) {
	for i := range p.voices {
		if p.voices[i].note >= 0 {
			p.voices[i].stop(allowTailOff)
		}
	}
	p.countActive()
}

// PitchWheel is accepted but has no effect on the sine voices.
func (p *Pool) PitchWheel(value int) {}

// Controller is accepted but has no effect on the sine voices.
func (p *Pool) Controller(number, value int) {}

// Render mixes n frames of every sounding voice into out, starting at frame
// start. Voices are summed, the result is not normalised.
func (p *Pool) Render(out [][]float32, start, n int) {
	if n <= 0 {
		return
	}
	for i := range p.voices {
		p.voices[i].render(out, start, n)
	}
	p.countActive()
}

func (p *Pool) countActive() {
	var active int32
	for i := range p.voices {
		if p.voices[i].active() {
			active++
		}
	}
	p.active.Store(active)
}

// Active returns the number of sounding or releasing voices. It is updated
// by every note event and render, and may be read from any goroutine.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Dropped returns the number of note ons lost because no voice was free.
func (p *Pool) Dropped() uint64 { return p.dropped.Load() }

func (p *Pool) findNote(note int) *voice {
	for i := range p.voices {
		if p.voices[i].note == note {
			return &p.voices[i]
		}
	}
	return nil
}

func (p *Pool) findFree() *voice {
	for i := range p.voices {
		if p.voices[i].note < 0 {
			return &p.voices[i]
		}
	}
	return nil
}

func (p *Pool) findOldest() *voice {
	var oldest *voice
	for i := range p.voices {
		v := &p.voices[i]
		if oldest == nil || v.serial < oldest.serial {
			oldest = v
		}
	}
	return oldest
}

func clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
