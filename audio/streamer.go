package audio

import (
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Streamer adapts a Bus to a beep.Streamer. The stream never ends.
type Streamer struct {
	bus *Bus
	buf [][]float32
}

func NewStreamer(bus *Bus, channels, bufferSize int) *Streamer {
	buf := make([][]float32, channels)
	for n := range buf {
		buf[n] = make([]float32, bufferSize)
	}
	return &Streamer{bus: bus, buf: buf}
}

func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	size := len(s.buf[0])
	for n < len(samples) {
		frames := len(samples) - n
		if frames > size {
			frames = size
		}
		buf := s.buf
		for c := range buf {
			buf[c] = buf[c][:frames]
		}
		s.bus.Process(buf)
		for i := 0; i < frames; i++ {
			left := float64(buf[0][i])
			right := left
			if len(buf) > 1 {
				right = float64(buf[1][i])
			}
			samples[n+i][0] = left
			samples[n+i][1] = right
		}
		for c := range buf {
			buf[c] = buf[c][:size]
		}
		n += frames
	}
	return n, true
}

func (s *Streamer) Err() error { return nil }

// Speaker plays a Bus through beep's speaker package.
type Speaker struct {
	streamer *Streamer
}

func NewSpeaker(bus *Bus, sampleRate float64, channels, bufferSize int) (*Speaker, error) {
	if err := speaker.Init(beep.SampleRate(int(sampleRate)), bufferSize); err != nil {
		return nil, fmt.Errorf("speaker: %w", err)
	}
	return &Speaker{streamer: NewStreamer(bus, channels, bufferSize)}, nil
}

func (s *Speaker) Start() error {
	speaker.Play(s.streamer)
	return nil
}

func (s *Speaker) Stop() error {
	speaker.Clear()
	speaker.Close()
	return nil
}
