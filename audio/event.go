package audio

type EventKind int

const (
	NoteOn EventKind = iota
	NoteOff
	AllNotesOff
	PitchWheel
	Controller
)

// Event is a timed instruction for a Synth. Offset is the frame within the
// block at which the event takes effect.
type Event struct {
	Offset   int
	Kind     EventKind
	Note     int     // note number, or the controller number for controller events
	Velocity float64 // 0-1
	TailOff  bool    // note offs only: release instead of a hard cut
	Duration int     // note ons only: frames until an automatic release, 0 means held
	Value    int     // pitch wheel position or controller value
}

// sortEvents orders events by offset, keeping the arrival order of events
// with equal offsets. It is an insertion sort so it can run on the audio
// thread without allocating.
func sortEvents(events []Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].Offset < events[j-1].Offset; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}
