package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDIFile is the playable content of a Standard MIDI File.
type MIDIFile struct {
	Clip *Clip
	// BPM is the first tempo found in the file, or 0 if there is none.
	BPM float64
}

func LoadMIDIFile(path string, p Playable, loop bool) (*MIDIFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMIDIFile(f, p, loop)
}

// ReadMIDIFile merges the notes of every track into a single clip played by
// p. The clip length is rounded up to whole beats.
func ReadMIDIFile(r io.Reader, p Playable, loop bool) (*MIDIFile, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("read midi file: only metric time format is supported")
	}
	resolution := float64(ticks.Resolution())
	if resolution == 0 {
		return nil, errors.New("read midi file: zero resolution")
	}

	type key struct{ channel, note uint8 }
	type start struct {
		tick     int64
		velocity uint8
	}
	type span struct {
		pitch, velocity int
		from, to        int64
	}

	var (
		spans []span
		end   int64
		bpm   float64
	)
	for _, track := range s.Tracks {
		var tick int64
		open := make(map[key]start)
		for _, ev := range track {
			tick += int64(ev.Delta)
			if tick > end {
				end = tick
			}
			var tempo float64
			if bpm == 0 && ev.Message.GetMetaTempo(&tempo) {
				bpm = tempo
				continue
			}

			msg := midi.Message(ev.Message)
			var channel, n, velocity uint8
			switch {
			case msg.GetNoteStart(&channel, &n, &velocity):
				open[key{channel, n}] = start{tick: tick, velocity: velocity}
			case msg.GetNoteEnd(&channel, &n):
				st, ok := open[key{channel, n}]
				if !ok {
					continue
				}
				delete(open, key{channel, n})
				spans = append(spans, span{int(n), int(st.velocity), st.tick, tick})
			}
		}
		// notes left hanging are held until the end of the track
		for k, st := range open {
			spans = append(spans, span{int(k.note), int(st.velocity), st.tick, tick})
		}
	}

	beats := math.Max(1, math.Ceil(float64(end)/resolution))
	var clip *Clip
	if loop {
		clip = NewClip(beats, p)
	} else {
		clip = NewOneShotClip(beats, p)
	}
	for _, sp := range spans {
		clip.AddNote(float64(sp.from)/resolution, sp.pitch, sp.velocity, float64(sp.to-sp.from)/resolution)
	}
	return &MIDIFile{Clip: clip, BPM: bpm}, nil
}
