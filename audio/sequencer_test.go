package audio

import (
	"reflect"
	"testing"
)

type testInstrument struct {
	events []Event
}

func (i *testInstrument) PlayNote(offset, pitch, velocity, duration int) {
	i.events = append(i.events, Event{
		Offset:   offset,
		Note:     pitch,
		Velocity: float64(velocity),
		Duration: duration,
	})
}

func (i *testInstrument) flush() {
	i.events = nil
}

func TestSequencer(t *testing.T) {
	const sampleRate = 44100
	const bpm = 120.0
	const bufferSize = sampleRate // use a large buffer size to make testing easier
	instrument := &testInstrument{}

	seq := NewSequencer(NewProps(), sampleRate, 100)
	if err := seq.Set(PropBPM, bpm); err != nil {
		t.Fatal(err)
	}

	clip := NewClip(4, instrument)
	clip.AddNote(0, 69, 100, 1)   // first beat
	clip.AddNote(1.25, 73, 90, 1) // 2nd 16th note on second beat

	if err := seq.Set(PropClips, map[string]*Clip{
		"beat": clip,
	}); err != nil {
		t.Fatal(err)
	}

	seq.Tick(bufferSize)

	if want, got := []Event{
		{Offset: 0, Note: 69, Velocity: 100, Duration: 22050},
		{Offset: 27563, Note: 73, Velocity: 90, Duration: 22050},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}

	instrument.flush()
	seq.Tick(bufferSize)

	if want, got := 0, len(instrument.events); want != got {
		t.Errorf("wanted zero events, got: %v", instrument.events)
	}

	instrument.flush()
	seq.Tick(bufferSize)

	if want, got := []Event{
		{Offset: 0, Note: 69, Velocity: 100, Duration: 22050},
		{Offset: 27563, Note: 73, Velocity: 90, Duration: 22050},
	}, instrument.events; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, got)
	}
}

func TestSequencerWrapOffsets(t *testing.T) {
	const sampleRate = 44100
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), sampleRate, 120)

	// a 1 beat clip ticked in buffers of 3/4 of a beat
	clip := NewClip(1, instrument)
	clip.AddNote(0, 60, 100, 0.25)
	clip.AddNote(0.5, 62, 100, 0.25)
	if err := seq.Set(PropClips, map[string]*Clip{"a": clip}); err != nil {
		t.Fatal(err)
	}

	const bufferSize = 16538 // 720 pulses at 120bpm
	seq.Tick(bufferSize)
	instrument.flush()

	// pulses 720-1440: the note at 480 is not due, the one at 0 wraps to 960
	seq.Tick(bufferSize)
	if want, got := 1, len(instrument.events); want != got {
		t.Fatalf("wrong number of events: want %v, got %+v", want, instrument.events)
	}
	ev := instrument.events[0]
	if want, got := 60, ev.Note; want != got {
		t.Errorf("wrong note: want %v, got %v", want, got)
	}
	if want, got := 5513, ev.Offset; want != got {
		t.Errorf("wrong offset: want %v, got %v", want, got)
	}
}

func TestOneShotClip(t *testing.T) {
	const sampleRate = 44100
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), sampleRate, 120)

	clip := NewOneShotClip(1, instrument)
	clip.AddNote(0, 60, 100, 0.5)
	if err := seq.Set(PropClips, map[string]*Clip{"once": clip}); err != nil {
		t.Fatal(err)
	}
	if want, got := 22050, seq.Duration(clip); want != got {
		t.Errorf("wrong duration: want %v, got %v", want, got)
	}

	for n := 0; n < 8; n++ {
		seq.Tick(4096)
	}
	if want, got := 1, len(instrument.events); want != got {
		t.Errorf("one shot clip should play once, got %+v", instrument.events)
	}
}

func TestClipIgnoresInvalidPitch(t *testing.T) {
	clip := NewClip(1, &testInstrument{})
	clip.AddNote(0, 0, 100, 1)
	clip.AddNote(0, 128, 100, 1)
	if want, got := 0, len(clip.notes); want != got {
		t.Errorf("want %v notes, got %v", want, got)
	}
}

func TestSequencerKeepsTempo(t *testing.T) {
	const sampleRate = 44100
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), sampleRate, 120)

	clip := NewOneShotClip(4, instrument)
	clip.AddNote(3.96, 60, 100, 0.01)
	if err := seq.Set(PropClips, map[string]*Clip{"once": clip}); err != nil {
		t.Fatal(err)
	}

	frames := seq.Duration(clip)
	for done := 0; done < frames; {
		n := 512
		if frames-done < n {
			n = frames - done
		}
		seq.Tick(n)
		done += n
	}
	if seq.totalPulses < uint64(clip.Length) {
		t.Errorf("pulses after %d frames: want at least %v, got %v", frames, clip.Length, seq.totalPulses)
	}
	if want, got := 1, len(instrument.events); want != got {
		t.Errorf("last note should play within the clip duration, got %+v", instrument.events)
	}
}

func TestSequencerReset(t *testing.T) {
	instrument := &testInstrument{}
	seq := NewSequencer(NewProps(), 44100, 120)
	clip := NewOneShotClip(1, instrument)
	clip.AddNote(0, 60, 100, 0.5)
	if err := seq.Set(PropClips, map[string]*Clip{"once": clip}); err != nil {
		t.Fatal(err)
	}

	seq.Tick(30000)
	seq.Reset()
	seq.Tick(512)
	if want, got := 2, len(instrument.events); want != got {
		t.Errorf("one shot clip should play again after reset, got %+v", instrument.events)
	}
}

func TestZeroLengthNotesRelease(t *testing.T) {
	for _, loop := range []bool{false, true} {
		inst := newTestInstrument(t, 2, 256)
		seq := NewSequencer(NewProps(), 48000, 120)

		var clip *Clip
		if loop {
			clip = NewClip(1, inst)
		} else {
			clip = NewOneShotClip(1, inst)
		}
		clip.AddNote(0, 60, 100, 0)
		clip.AddNote(0.5, 64, 100, 0)
		if err := seq.Set(PropClips, map[string]*Clip{"a": clip}); err != nil {
			t.Fatal(err)
		}
		bus := &Bus{}
		bus.AddTicker(seq)
		bus.AddSources(inst)

		// 10 seconds, 20 beats at 120 bpm
		out := newBuffer(2, 256)
		for n := 0; n < 48000*10/256; n++ {
			bus.Process(out)
		}
		pool := inst.Synth().Pool()
		if loop {
			if want, got := uint64(0), pool.Dropped(); want != got {
				t.Errorf("loop: dropped notes: want %v, got %v", want, got)
			}
			if got := pool.Active(); got > 1 {
				t.Errorf("loop: at most one voice should sound, got %v", got)
			}
			continue
		}
		if want, got := 0, pool.Active(); want != got {
			t.Errorf("one shot: active voices: want %v, got %v", want, got)
		}
		if v := pool.findNote(60); v != nil {
			t.Errorf("one shot: note 60 is still held")
		}
	}
}
