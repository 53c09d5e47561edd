package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Pulses per quarter note
const PPQN = 960.

const (
	PropBPM   = "bpm"
	PropClips = "clips"
)

type Clip struct {
	Length     int
	instrument Playable
	notes      []note
	once       bool
}

// NewClip returns a looping clip of length beats.
func NewClip(length float64, p Playable) *Clip {
	return &Clip{
		Length:     int(length * PPQN),
		instrument: p,
	}
}

// NewOneShotClip returns a clip that plays once from the sequencer's start.
func NewOneShotClip(length float64, p Playable) *Clip {
	c := NewClip(length, p)
	c.once = true
	return c
}

type Playable interface {
	PlayNote(offset, pitch, velocity, duration int)
}

// AddNote adds a note at position beats from the start of the clip. Velocity
// is a MIDI velocity, 1-127.
func (c *Clip) AddNote(position float64, pitch, velocity int, length float64) {
	if pitch < 1 || pitch > 127 {
		return
	}
	c.notes = append(c.notes, note{
		pos:      int(position * PPQN),
		pitch:    pitch,
		velocity: velocity,
		length:   length,
	})
}

// Beats returns the clip length in beats.
func (c *Clip) Beats() float64 { return float64(c.Length) / PPQN }

type note struct {
	pos      int // position of the note measured in PPQN from the start of a clip
	pitch    int // pitch as a midi note number
	velocity int
	length   float64 // note length in beats
}

type Sequencer struct {
	*Props
	bpm         *atomic.Value
	clips       *atomic.Value
	sampleRate  float64
	position    float64 // exact position in pulses, including the fraction not yet scheduled
	totalPulses uint64
}

func NewSequencer(props *Props, sampleRate, bpm float64) *Sequencer {
	clips := make(map[string]*Clip)
	seq := &Sequencer{
		Props:      props,
		sampleRate: sampleRate,
		clips:      props.MustRegister(PropClips, setClips, clips),
		bpm:        props.MustRegister(PropBPM, setBPM, bpm),
	}
	return seq
}

// Clips returns the current clip set. It must not be modified; use Set with
// a copy instead.
func (s *Sequencer) Clips() map[string]*Clip {
	return s.clips.Load().(map[string]*Clip)
}

// Duration returns the number of frames a clip takes at the current tempo.
func (s *Sequencer) Duration(c *Clip) int {
	bpm := s.bpm.Load().(float64)
	return int(math.Ceil(c.Beats() * s.sampleRate * 60 / bpm))
}

func (s *Sequencer) Tick(numSamples int) {
	bpm := s.bpm.Load().(float64)
	clips := s.clips.Load().(map[string]*Clip)

	// The number of pulses in a buffer is fractional, because the PPQN is not
	// a multiple of the buffer size. The fraction is carried over to the next
	// buffer so the sequencer does not drift. The epsilon absorbs rounding
	// error in the running sum.
	s.position += PPQN * (bpm / 60.) * float64(numSamples) / s.sampleRate
	next := uint64(math.Floor(s.position + 1e-6))
	numPulses := int(next - s.totalPulses)
	samplesPerPulse := s.sampleRate / ((bpm * PPQN) / 60.)

	for _, clip := range clips {
		if clip.Length <= 0 {
			continue
		}
		if clip.once && s.totalPulses >= uint64(clip.Length) {
			continue
		}
		pos := int(s.totalPulses % uint64(clip.Length)) // current position within the clip
		nextPos := pos + numPulses                      // next position within the clip

		for _, note := range clip.notes {
			// a sequenced note never gets a note off, so it must have a gate
			duration := int(note.length * s.sampleRate / (bpm / 60.))
			if duration < 1 {
				duration = 1
			}

			if nextPos > clip.Length {
				if note.pos >= pos {
					offset := int(math.Round(float64(note.pos-pos) * samplesPerPulse))
					clip.instrument.PlayNote(offset, note.pitch, note.velocity, duration)
				} else if !clip.once && note.pos < nextPos-clip.Length {
					// We've reached the end of the clip so also check start of clip for notes to schedule.
					offset := int(math.Round(float64(clip.Length-pos+note.pos) * samplesPerPulse))
					clip.instrument.PlayNote(offset, note.pitch, note.velocity, duration)
				}
			} else {
				if note.pos >= pos && note.pos < nextPos {
					offset := int(math.Round(float64(note.pos-pos) * samplesPerPulse))
					clip.instrument.PlayNote(offset, note.pitch, note.velocity, duration)
				}
			}
		}
	}
	s.totalPulses = next
}

// Reset moves the sequencer back to the start of every clip. It must not be
// called concurrently with Tick.
func (s *Sequencer) Reset() {
	s.position = 0
	s.totalPulses = 0
}

func setClips(v interface{}, dest *atomic.Value) error {
	if c, ok := v.(map[string]*Clip); ok {
		dest.Store(c)
		return nil
	}
	return fmt.Errorf("value is not a map of clips: %v", v)
}
