package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type Ticker interface {
	Tick(numSamples int)
}

// Bus clears an output buffer, advances its tickers and lets every source
// add to it. Sources and tickers must be added before audio starts.
type Bus struct {
	sources []Source
	tickers []Ticker
}

func (b *Bus) AddSources(sources ...Source) {
	b.sources = append(b.sources, sources...)
}

func (b *Bus) AddTicker(ticker Ticker) {
	b.tickers = append(b.tickers, ticker)
}

func (b *Bus) Process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0.
		}
	}
	if len(samples) == 0 {
		return
	}
	for _, ticker := range b.tickers {
		ticker.Tick(len(samples[0]))
	}
	for _, source := range b.sources {
		source.Process(samples)
	}
}

// Sink plays a Bus on the default portaudio output device.
type Sink struct {
	*Bus
	stream *portaudio.Stream
}

func NewSink(bus *Bus, sampleRate float64, channels, bufferSize int) (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	s := Sink{Bus: bus}
	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, bufferSize, s.Bus.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: open stream: %w", err)
	}
	s.stream = stream
	return &s, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
