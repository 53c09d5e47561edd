package main

import (
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

type notePlayer interface {
	NoteOn(note int, velocity float64)
	NoteOff(note int, allowTailOff bool)
	AllNotesOff(allowTailOff bool)
}

// listenMIDI opens the first MIDI input whose name contains name and plays
// its notes on p until stop is called.
func listenMIDI(name string, p notePlayer, logger *slog.Logger) (stop func(), err error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("midi: open driver: %w", err)
	}
	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: list inputs: %w", err)
	}
	var in drivers.In
	var names []string
	for _, port := range ins {
		names = append(names, port.String())
		if in == nil && strings.Contains(port.String(), name) {
			in = port
		}
	}
	if in == nil {
		drv.Close()
		return nil, fmt.Errorf("midi: input %q not found, available: %s", name, strings.Join(names, ", "))
	}
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: open %q: %w", in.String(), err)
	}

	stopListening, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if !handleMIDI(msg, p) {
			logger.Debug("unhandled MIDI message", "msg", msg.String())
		}
	}, midi.HandleError(func(err error) {
		logger.Warn("MIDI listener error", "device", in.String(), "err", err)
	}))
	if err != nil {
		in.Close()
		drv.Close()
		return nil, fmt.Errorf("midi: listen to %q: %w", in.String(), err)
	}
	logger.Info("MIDI input connected", "device", in.String())

	return func() {
		stopListening()
		in.Close()
		drv.Close()
	}, nil
}

// handleMIDI plays a note message on p. It reports false for messages it
// ignores.
func handleMIDI(msg midi.Message, p notePlayer) bool {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		p.NoteOn(int(key), float64(velocity)/127)
	case msg.GetNoteEnd(&channel, &key):
		p.NoteOff(int(key), true)
	case msg.GetControlChange(&channel, &controller, &value) && controller == ccAllNotesOff:
		p.AllNotesOff(true)
	case msg.GetControlChange(&channel, &controller, &value) && controller == ccAllSoundOff:
		p.AllNotesOff(false)
	default:
		return false
	}
	return true
}
