package motion

// Direction is the classified vertical movement of the tracked joint.
type Direction int

const (
	Stationary Direction = iota
	Up
	Down
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "STATIONARY"
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name. Unknown names decode as Stationary.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "UP":
		*d = Up
	case "DOWN":
		*d = Down
	default:
		*d = Stationary
	}
	return nil
}

// DefaultSampleSize is the number of samples averaged at each end of the window.
const DefaultSampleSize = 5

// Config controls a Tracker. Image y grows downward, so a falling y means the
// joint is moving up.
type Config struct {
	// Capacity is the number of samples kept.
	Capacity int `toml:"capacity" json:"capacity"`
	// MinFill is the number of samples required before a direction is reported.
	MinFill int `toml:"min_fill" json:"min_fill"`
	// SampleSize is the number of samples averaged at each end.
	SampleSize int `toml:"sample_size" json:"sample_size"`
	// Threshold is the pixel shift between the two means that counts as movement.
	Threshold float64 `toml:"threshold" json:"threshold"`
}

// Tracker classifies joint movement from a rolling window of y coordinates.
type Tracker struct {
	cfg    Config
	window *Window
}

// NewTracker creates a Tracker. Zero values in cfg fall back to usable defaults.
func NewTracker(cfg Config) *Tracker {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.MinFill <= 0 {
		cfg.MinFill = cfg.Capacity
	}
	if cfg.MinFill > cfg.Capacity {
		cfg.MinFill = cfg.Capacity
	}
	return &Tracker{cfg: cfg, window: NewWindow(cfg.Capacity)}
}

// Observe records y and returns the current direction.
func (t *Tracker) Observe(y float64) Direction {
	t.window.Push(y)
	return t.Direction()
}

// Direction compares the mean of the newest samples with the mean of the oldest.
func (t *Tracker) Direction() Direction {
	if t.window.Len() < t.cfg.MinFill {
		return Stationary
	}

	recent := t.window.MeanLast(t.cfg.SampleSize)
	previous := t.window.MeanFirst(t.cfg.SampleSize)

	switch {
	case recent < previous-t.cfg.Threshold:
		return Up
	case recent > previous+t.cfg.Threshold:
		return Down
	default:
		return Stationary
	}
}

// Len returns the number of samples currently held.
func (t *Tracker) Len() int {
	return t.window.Len()
}

// Reset clears the history.
func (t *Tracker) Reset() {
	t.window.Reset()
}
