package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/mrdg/poly/audio"
	"gopkg.in/yaml.v3"
)

const (
	backendPortAudio = "portaudio"
	backendBeep      = "beep"
)

type config struct {
	SampleRate  float64 `yaml:"sample_rate"`
	BufferSize  int     `yaml:"buffer_size"`
	Channels    int     `yaml:"channels"`
	Voices      int     `yaml:"voices"`
	Gain        float64 `yaml:"gain"`
	Steal       string  `yaml:"steal"`
	Backend     string  `yaml:"backend"`
	BPM         float64 `yaml:"bpm"`
	MIDIInput   string  `yaml:"midi_input"`
	MetricsAddr string  `yaml:"metrics_addr"`
	LogLevel    string  `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		SampleRate: 44100,
		BufferSize: 512,
		Channels:   2,
		Voices:     audio.DefaultVoices,
		Gain:       audio.DefaultGain,
		Steal:      audio.StealNone.String(),
		Backend:    backendPortAudio,
		BPM:        120,
		LogLevel:   "info",
	}
}

// loadConfig reads the config file at path on top of the defaults. An empty
// path returns the defaults.
func loadConfig(path string) (config, error) {
	if path == "" {
		cfg := defaultConfig()
		return cfg, cfg.validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := readConfig(f)
	if err != nil {
		return config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

func readConfig(r io.Reader) (config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// validate returns every problem found in c joined into one error.
func (c config) validate() error {
	var errs []error
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be positive, got %v", c.BufferSize))
	}
	if c.Channels != 1 && c.Channels != 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %v", c.Channels))
	}
	if c.Voices <= 0 {
		errs = append(errs, fmt.Errorf("voices must be positive, got %v", c.Voices))
	}
	if c.Gain < 0 || c.Gain > 1 {
		errs = append(errs, fmt.Errorf("gain must be within 0-1, got %v", c.Gain))
	}
	if _, ok := audio.ParseStealPolicy(c.Steal); !ok {
		errs = append(errs, fmt.Errorf("steal %q is invalid; valid values: none, oldest", c.Steal))
	}
	if c.Backend != backendPortAudio && c.Backend != backendBeep {
		errs = append(errs, fmt.Errorf("backend %q is invalid; valid values: %s, %s", c.Backend, backendPortAudio, backendBeep))
	}
	if c.BPM < 1 || c.BPM > 500 {
		errs = append(errs, fmt.Errorf("bpm must be within 1-500, got %v", c.BPM))
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c config) stealPolicy() audio.StealPolicy {
	s, _ := audio.ParseStealPolicy(c.Steal)
	return s
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", s)
	}
	return level, nil
}
