package exercise

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WithOverrides returns c with the JSON object raw decoded over the
// thresholds of kind. Keys are the JSON names of SquatConfig or
// DeadliftConfig fields; absent keys keep their value and unknown keys are
// an error.
func (c Config) WithOverrides(kind Kind, raw json.RawMessage) (Config, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return c, nil
	}

	out := c
	var target any
	switch kind {
	case Squat:
		target = &out.Squat
	case Deadlift:
		target = &out.Deadlift
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownExercise, kind)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return c, fmt.Errorf("%s thresholds: %w", kind, err)
	}
	return out, nil
}
