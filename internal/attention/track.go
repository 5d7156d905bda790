package attention

// State is the drowsiness state of one face slot
type State string

const (
	StateAwake  State = "awake"
	StateDrowsy State = "drowsy"
)

// Track is the running state of one face slot across frames
type Track struct {
	state     State
	lowFrames int
	ema       float64
	emaSeeded bool
}

// NewTrack returns a track in its initial Awake state
func NewTrack() *Track {
	return &Track{state: StateAwake}
}

// Observe feeds one averaged EAR reading into the state machine.
// Awake becomes Drowsy once EAR stays below the threshold for ConsecutiveFrames
// frames in a row; any reading at or above the threshold returns to Awake.
func (t *Track) Observe(ear float64, cfg Config) State {
	if ear < cfg.EARThreshold {
		t.lowFrames++
		if t.lowFrames >= cfg.ConsecutiveFrames {
			t.state = StateDrowsy
		}
		return t.state
	}

	t.lowFrames = 0
	t.state = StateAwake
	return t.state
}

// Smooth folds an attentive indicator into the track's moving average
func (t *Track) Smooth(attentive bool, alpha float64) float64 {
	sample := 0.0
	if attentive {
		sample = 1.0
	}

	if !t.emaSeeded {
		t.ema = sample
		t.emaSeeded = true
		return t.ema
	}

	t.ema = EMA(t.ema, sample, alpha)
	return t.ema
}

// State returns the current drowsiness state
func (t *Track) State() State {
	return t.state
}

// LowFrames returns the current run of consecutive sub-threshold readings
func (t *Track) LowFrames() int {
	return t.lowFrames
}

// Reset puts the track back into its initial state
func (t *Track) Reset() {
	*t = Track{state: StateAwake}
}

// EMA returns alpha*sample + (1-alpha)*prev
func EMA(prev, sample, alpha float64) float64 {
	return alpha*sample + (1-alpha)*prev
}
