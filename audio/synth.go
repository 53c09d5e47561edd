package audio

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

const (
	PropGain = "gain"

	DefaultVoices = 16
	DefaultGain   = 0.5
)

var ErrChannelLayout = errors.New("unsupported channel layout")

type SynthConfig struct {
	SampleRate float64
	Channels   int // 1 or 2
	Voices     int
	Steal      StealPolicy
}

// Synth renders a pool of sine voices and applies the master gain. Process
// must only be called from one goroutine.
type Synth struct {
	*Props
	pool     *Pool
	gain     *atomic.Value
	channels int
	prepared bool
}

func NewSynth(props *Props, cfg SynthConfig) (*Synth, error) {
	if cfg.Channels != 1 && cfg.Channels != 2 {
		return nil, fmt.Errorf("%w: %d channels, want mono or stereo", ErrChannelLayout, cfg.Channels)
	}
	if cfg.Voices <= 0 {
		cfg.Voices = DefaultVoices
	}
	gain, err := props.Register(PropGain, setGain, DefaultGain)
	if err != nil {
		return nil, err
	}
	s := &Synth{
		Props:    props,
		pool:     NewPool(cfg.Voices, 0),
		gain:     gain,
		channels: cfg.Channels,
	}
	s.pool.SetStealPolicy(cfg.Steal)
	if err := s.Prepare(cfg.SampleRate); err != nil {
		return nil, err
	}
	return s, nil
}

// Prepare sets the playback sample rate and silences all voices. It must not
// be called concurrently with Process.
func (s *Synth) Prepare(sampleRate float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("invalid sample rate: %v", sampleRate)
	}
	s.pool.Prepare(sampleRate)
	s.pool.Reset()
	s.prepared = true
	return nil
}

func (s *Synth) Channels() int { return s.channels }

// Pool gives access to the voices, mainly for inspection.
func (s *Synth) Pool() *Pool { return s.pool }

// Process overwrites out with the next block of audio. Events must be sorted
// by offset; each one is applied at its offset so that notes start and stop
// on the exact frame. Events beyond the end of the block are applied after
// the last frame.
func (s *Synth) Process(out [][]float32, events []Event) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	for _, ch := range out {
		for n := range ch {
			ch[n] = 0
		}
	}
	if !s.prepared {
		return
	}
	gain := float32(s.gain.Load().(float64))

	pos := 0
	for _, ev := range events {
		offset := ev.Offset
		if offset > frames {
			offset = frames
		}
		if offset > pos {
			s.pool.Render(out, pos, offset-pos)
			pos = offset
		}
		s.handle(ev)
	}
	s.pool.Render(out, pos, frames-pos)

	applyGain(out, gain)
}

func (s *Synth) handle(ev Event) {
	switch ev.Kind {
	case NoteOn:
		s.pool.noteOn(ev.Note, ev.Velocity, ev.Duration)
	case NoteOff:
		s.pool.NoteOff(ev.Note, ev.TailOff)
	case AllNotesOff:
		s.pool.AllNotesOff(ev.TailOff)
	case PitchWheel:
		s.pool.PitchWheel(ev.Value)
	case Controller:
		s.pool.Controller(ev.Note, ev.Value)
	}
}

// applyGain scales every channel in place.
func applyGain(out [][]float32, gain float32) {
	if gain == 1 {
		return
	}
	for _, ch := range out {
		for n := range ch {
			ch[n] *= gain
		}
	}
}
