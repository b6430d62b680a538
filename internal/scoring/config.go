package scoring

import "github.com/ayusman/formcheck/internal/exercise"

// Rules are the settings shared by every exercise.
type Rules struct {
	// Visibility is the landmark visibility a joint must exceed.
	Visibility float64 `toml:"visibility" json:"visibility"`
	// GenericWhenAllFail replaces the message list with a single "review your
	// overall form" message when every component failed.
	GenericWhenAllFail bool `toml:"generic_when_all_fail" json:"generic_when_all_fail"`
}

// SquatConfig grades a squat frame. The trunk is measured as lean from vertical.
type SquatConfig struct {
	Rules

	// DepthGood and DepthDeeper are knee-angle ceilings for full and half depth credit.
	DepthGood   float64        `toml:"depth_good" json:"depth_good"`
	DepthDeeper float64        `toml:"depth_deeper" json:"depth_deeper"`
	Hip         exercise.Range `toml:"hip" json:"hip"`
	TrunkLean   exercise.Range `toml:"trunk_lean" json:"trunk_lean"`
	// ValgusRatio flags caving knees when the knee distance falls below this
	// fraction of the hip width.
	ValgusRatio float64 `toml:"valgus_ratio" json:"valgus_ratio"`

	ShallowFloor float64 `toml:"shallow_floor" json:"shallow_floor"`
	DeeperFloor  float64 `toml:"deeper_floor" json:"deeper_floor"`
	MinimumScore float64 `toml:"minimum_score" json:"minimum_score"`
}

// DeadliftConfig grades a deadlift frame. The trunk is measured from vertical
// and passes in either the setup or the lockout band.
type DeadliftConfig struct {
	Rules

	Knee         exercise.Range `toml:"knee" json:"knee"`
	Hip          exercise.Range `toml:"hip" json:"hip"`
	TrunkSetup   exercise.Range `toml:"trunk_setup" json:"trunk_setup"`
	TrunkLockout exercise.Range `toml:"trunk_lockout" json:"trunk_lockout"`
}

// Config holds the scoring settings per exercise.
type Config struct {
	Squat    SquatConfig    `toml:"squat" json:"squat"`
	Deadlift DeadliftConfig `toml:"deadlift" json:"deadlift"`
}

// DefaultConfig returns the standard scoring settings.
func DefaultConfig() Config {
	return Config{
		Squat: SquatConfig{
			Rules:        Rules{Visibility: 0.7},
			DepthGood:    90,
			DepthDeeper:  120,
			Hip:          exercise.Range{Min: 60, Max: 110},
			TrunkLean:    exercise.Range{Min: 30, Max: 60},
			ValgusRatio:  0.5,
			ShallowFloor: 20,
			DeeperFloor:  50,
			MinimumScore: 1.0,
		},
		Deadlift: DeadliftConfig{
			Rules:        Rules{Visibility: 0.4, GenericWhenAllFail: true},
			Knee:         exercise.Range{Min: 20, Max: 125},
			Hip:          exercise.Range{Min: 20, Max: 150},
			TrunkSetup:   exercise.Range{Min: 50, Max: 70},
			TrunkLockout: exercise.Range{Min: 0, Max: 20},
		},
	}
}

func (c Config) rules(kind exercise.Kind) Rules {
	if kind == exercise.Squat {
		return c.Squat.Rules
	}
	return c.Deadlift.Rules
}
