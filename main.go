package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mrdg/poly/audio"
)

const (
	deviceSynth = "synth"
	deviceSeq   = "seq"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		render     = flag.String("render", "", "render this MIDI file to a WAV file instead of playing live")
		out        = flag.String("out", "out.wav", "output file for -render")
		tail       = flag.Float64("tail", 1, "seconds rendered after the end of the MIDI file")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	logger := initLogger(cfg.LogLevel)

	e, err := newEngine(cfg)
	if err != nil {
		logger.Error("failed to set up synth", "err", err)
		os.Exit(1)
	}

	if *render != "" {
		err = renderFile(e, *render, *out, *tail)
	} else {
		err = runLive(e, logger)
	}
	if err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

// initLogger installs a text logger on stderr as the default, so the log
// package routes through it as well.
func initLogger(level string) *slog.Logger {
	l, err := parseLogLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     l,
		AddSource: l == slog.LevelDebug,
	}))
	slog.SetDefault(logger)
	return logger
}

type engine struct {
	cfg   config
	synth *audio.Synth
	inst  *audio.Instrument
	seq   *audio.Sequencer
	bus   *audio.Bus
}

func newEngine(cfg config) (*engine, error) {
	synth, err := audio.NewSynth(audio.NewProps(), audio.SynthConfig{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		Voices:     cfg.Voices,
		Steal:      cfg.stealPolicy(),
	})
	if err != nil {
		return nil, err
	}
	if err := synth.Set(audio.PropGain, cfg.Gain); err != nil {
		return nil, err
	}
	inst := audio.NewInstrument(synth, cfg.BufferSize)
	seq := audio.NewSequencer(audio.NewProps(), cfg.SampleRate, cfg.BPM)

	bus := &audio.Bus{}
	bus.AddTicker(seq)
	bus.AddSources(inst)

	return &engine{
		cfg:   cfg,
		synth: synth,
		inst:  inst,
		seq:   seq,
		bus:   bus,
	}, nil
}

func (e *engine) env() *env {
	return &env{
		inst: e.inst,
		seq:  e.seq,
		devices: map[string]audio.Device{
			deviceSynth: e.synth,
			deviceSeq:   e.seq,
		},
	}
}

// renderFile plays the MIDI file at in once and writes the result to out.
func renderFile(e *engine, in, out string, tail float64) error {
	f, err := audio.LoadMIDIFile(in, e.inst, false)
	if err != nil {
		return err
	}
	if f.BPM > 0 {
		if err := e.seq.Set(audio.PropBPM, f.BPM); err != nil {
			return err
		}
	}
	if err := e.seq.Set(audio.PropClips, map[string]*audio.Clip{in: f.Clip}); err != nil {
		return err
	}

	e.seq.Reset()
	e.synth.Pool().Reset()

	frames := e.seq.Duration(f.Clip) + int(tail*e.cfg.SampleRate)
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(w, e.bus, int(e.cfg.SampleRate), e.cfg.Channels, frames, e.cfg.BufferSize); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	slog.Info("rendered", "in", in, "out", out, "frames", frames,
		"dropped_notes", e.synth.Pool().Dropped())
	return nil
}

type output interface {
	Start() error
	Stop() error
}

func openOutput(e *engine) (output, error) {
	cfg := e.cfg
	switch cfg.Backend {
	case backendBeep:
		return audio.NewSpeaker(e.bus, cfg.SampleRate, cfg.Channels, cfg.BufferSize)
	default:
		return audio.NewSink(e.bus, cfg.SampleRate, cfg.Channels, cfg.BufferSize)
	}
}

func runLive(e *engine, logger *slog.Logger) error {
	out, err := openOutput(e)
	if err != nil {
		return err
	}
	if err := out.Start(); err != nil {
		return err
	}
	defer func() {
		if err := out.Stop(); err != nil {
			logger.Warn("failed to stop audio output", "err", err)
		}
	}()
	logger.Info("audio started",
		"backend", e.cfg.Backend,
		"sample_rate", e.cfg.SampleRate,
		"buffer_size", e.cfg.BufferSize,
		"voices", e.cfg.Voices)

	if e.cfg.MIDIInput != "" {
		stop, err := listenMIDI(e.cfg.MIDIInput, e.inst, logger)
		if err != nil {
			logger.Warn("MIDI input unavailable", "err", err)
		} else {
			defer stop()
		}
	}

	if e.cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(e.cfg.MetricsAddr, e.synth.Pool(), logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("failed to stop metrics server", "err", err)
			}
		}()
	}

	return repl(e.env())
}
