package audio

import "math"

const (
	twoPi = 2 * math.Pi

	// levelScale maps a velocity of 1 to the peak amplitude of a voice.
	levelScale = 0.25

	minNote = 0
	maxNote = 127
)

type osc struct {
	phase      float64
	phaseDelta float64
}

// next returns the current sample and advances the phase. The phase is
// wrapped by whole periods only, so it stays continuous.
func (o *osc) next() float64 {
	s := math.Sin(o.phase)
	o.phase += o.phaseDelta
	for o.phase >= twoPi {
		o.phase -= twoPi
	}
	return s
}

// voice plays one note at a time. It is idle when the oscillator has no
// phase increment and the envelope is not releasing.
type voice struct {
	note   int // -1 when unassigned
	osc    osc
	env    envelope
	serial uint64
}

func newVoice() voice {
	return voice{note: -1}
}

func (v *voice) start(note int, velocity, sampleRate float64, gate int, serial uint64) {
	v.note = note
	v.osc = osc{phaseDelta: phaseDelta(note, sampleRate)}
	v.env.start(velocity*levelScale, gate)
	v.serial = serial
}

// stop ends the note. With tail off the voice keeps its note until the
// release has decayed, otherwise it is silenced immediately.
func (v *voice) stop(allowTailOff bool) {
	if allowTailOff {
		v.env.startRelease()
		return
	}
	v.clear()
}

func (v *voice) clear() {
	v.note = -1
	v.osc.phaseDelta = 0
	v.env.reset()
}

func (v *voice) active() bool { return v.osc.phaseDelta != 0 }

// render adds n samples to every channel of out, starting at frame start.
// A voice whose release finishes stays silent for the rest of the block.
func (v *voice) render(out [][]float32, start, n int) {
	if !v.active() {
		return
	}
	for i := start; i < start+n; i++ {
		sample := float32(v.osc.next() * v.env.value())
		for _, ch := range out {
			ch[i] += sample
		}
		if v.env.finished() {
			v.clear()
			return
		}
	}
}

func phaseDelta(note int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return midiToFreq(note) * twoPi / sampleRate
}

func midiToFreq(note int) float64 {
	return math.Pow(2, float64(clampNote(note)-69)/12.0) * 440
}

func clampNote(note int) int {
	if note < minNote {
		return minNote
	}
	if note > maxNote {
		return maxNote
	}
	return note
}
