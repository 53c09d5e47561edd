package audio

const (
	tailOffDecay = 0.99
	tailOffFloor = 0.005
)

// envelope holds a voice at a fixed level until it is released, then decays
// it exponentially.
type envelope struct {
	level   float64
	tailOff float64 // 0 while sustaining, the release multiplier while releasing
	gate    int     // frames left before an automatic release, 0 means held
}

func (e *envelope) start(level float64, gate int) {
	e.level = level
	e.tailOff = 0
	e.gate = gate
}

func (e *envelope) startRelease() {
	if e.tailOff == 0 {
		e.tailOff = 1
	}
}

func (e *envelope) reset() {
	e.tailOff = 0
	e.gate = 0
}

func (e *envelope) releasing() bool { return e.tailOff > 0 }

// value returns the amplitude for the current frame and advances the
// envelope by one frame.
func (e *envelope) value() float64 {
	if e.tailOff > 0 {
		v := e.level * e.tailOff
		e.tailOff *= tailOffDecay
		return v
	}
	if e.gate > 0 {
		e.gate--
		if e.gate == 0 {
			e.tailOff = 1
		}
	}
	return e.level
}

// finished reports whether the release has decayed below audibility.
func (e *envelope) finished() bool {
	return e.tailOff > 0 && e.tailOff <= tailOffFloor
}
