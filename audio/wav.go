package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/youpy/go-wav"
)

const pcmScale = math.MaxInt16

// WriteWAV renders frames of audio from bus, blockSize frames at a time, and
// writes them to w as 16 bit PCM. Only mono and stereo are supported.
func WriteWAV(w io.Writer, bus *Bus, sampleRate, channels, frames, blockSize int) error {
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: %d channels, want mono or stereo", ErrChannelLayout, channels)
	}
	if blockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", blockSize)
	}
	if frames < 0 {
		frames = 0
	}

	writer := wav.NewWriter(w, uint32(frames), uint16(channels), uint32(sampleRate), 16)
	buf := make([][]float32, channels)
	for n := range buf {
		buf[n] = make([]float32, blockSize)
	}
	samples := make([]wav.Sample, blockSize)

	for done := 0; done < frames; {
		n := frames - done
		if n > blockSize {
			n = blockSize
		}
		for c := range buf {
			buf[c] = buf[c][:n]
		}
		bus.Process(buf)
		for i := 0; i < n; i++ {
			for c := range buf {
				samples[i].Values[c] = toPCM16(buf[c][i])
			}
		}
		if err := writer.WriteSamples(samples[:n]); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		done += n
	}
	return nil
}

func toPCM16(sample float32) int {
	f := float64(sample)
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int(math.Round(f * pcmScale))
}
