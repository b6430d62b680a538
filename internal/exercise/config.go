package exercise

import "github.com/ayusman/formcheck/internal/motion"

// Range is an inclusive interval of angles in degrees.
type Range struct {
	Min float64 `toml:"min" json:"min"`
	Max float64 `toml:"max" json:"max"`
}

// Around returns the range center ± tolerance.
func Around(center, tolerance float64) Range {
	return Range{Min: center - tolerance, Max: center + tolerance}
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// DeadliftConfig holds the deadlift thresholds. Angles are in degrees and the
// trunk angle is measured from the downward vertical.
type DeadliftConfig struct {
	Visibility float64       `toml:"visibility" json:"visibility"`
	Motion     motion.Config `toml:"motion" json:"motion"`

	StartKnee  Range `toml:"start_knee" json:"start_knee"`
	StartHip   Range `toml:"start_hip" json:"start_hip"`
	StartTrunk Range `toml:"start_trunk" json:"start_trunk"`

	LockoutKneeMin  float64 `toml:"lockout_knee_min" json:"lockout_knee_min"`
	LockoutHipMin   float64 `toml:"lockout_hip_min" json:"lockout_hip_min"`
	LockoutTrunkMax float64 `toml:"lockout_trunk_max" json:"lockout_trunk_max"`

	StickingTrunk Range `toml:"sticking_trunk" json:"sticking_trunk"`
	StickingHip   Range `toml:"sticking_hip" json:"sticking_hip"`
	StickingKnee  Range `toml:"sticking_knee" json:"sticking_knee"`

	// Margins added to the start and lockout limits by the fault rules.
	RoundingMargin         float64 `toml:"rounding_margin" json:"rounding_margin"`
	BackRiseMargin         float64 `toml:"back_rise_margin" json:"back_rise_margin"`
	HipRiseMargin          float64 `toml:"hip_rise_margin" json:"hip_rise_margin"`
	KneeExtendMargin       float64 `toml:"knee_extend_margin" json:"knee_extend_margin"`
	LockoutRoundingMargin  float64 `toml:"lockout_rounding_margin" json:"lockout_rounding_margin"`
	LoweringRoundingMargin float64 `toml:"lowering_rounding_margin" json:"lowering_rounding_margin"`
	HipDropMargin          float64 `toml:"hip_drop_margin" json:"hip_drop_margin"`
	HipDropKneeMargin      float64 `toml:"hip_drop_knee_margin" json:"hip_drop_knee_margin"`
}

// DefaultDeadliftConfig returns the default deadlift thresholds.
func DefaultDeadliftConfig() DeadliftConfig {
	return DeadliftConfig{
		Visibility: 0.4,
		Motion: motion.Config{
			Capacity:   15,
			MinFill:    5,
			SampleSize: motion.DefaultSampleSize,
			Threshold:  10,
		},

		StartKnee:  Range{Min: 20, Max: 125},
		StartHip:   Range{Min: 20, Max: 125},
		StartTrunk: Range{Min: 50, Max: 70},

		LockoutKneeMin:  150,
		LockoutHipMin:   150,
		LockoutTrunkMax: 20,

		StickingTrunk: Around(58.30, 7),
		StickingHip:   Around(95.63, 8),
		StickingKnee:  Around(149.85, 7),

		RoundingMargin:         50,
		BackRiseMargin:         15,
		HipRiseMargin:          20,
		KneeExtendMargin:       20,
		LockoutRoundingMargin:  10,
		LoweringRoundingMargin: 20,
		HipDropMargin:          20,
		HipDropKneeMargin:      10,
	}
}

// SquatConfig holds the squat thresholds. Angles are in degrees and the trunk
// angle is measured from the forward horizontal.
type SquatConfig struct {
	Visibility float64       `toml:"visibility" json:"visibility"`
	Motion     motion.Config `toml:"motion" json:"motion"`

	UprightHipMin   float64 `toml:"upright_hip_min" json:"upright_hip_min"`
	UprightKneeMin  float64 `toml:"upright_knee_min" json:"upright_knee_min"`
	UprightTrunkMin float64 `toml:"upright_trunk_min" json:"upright_trunk_min"`

	// Depth bands, classified by knee angle at the bottom of the descent.
	DeepKneeMax     float64 `toml:"deep_knee_max" json:"deep_knee_max"`
	ParallelKneeMax float64 `toml:"parallel_knee_max" json:"parallel_knee_max"`
	PartialKneeMax  float64 `toml:"partial_knee_max" json:"partial_knee_max"`

	// BottomKneeMax is the knee angle below which a pause counts as the bottom.
	BottomKneeMax float64 `toml:"bottom_knee_max" json:"bottom_knee_max"`

	OverLeanTrunkMax float64 `toml:"over_lean_trunk_max" json:"over_lean_trunk_max"`
	ButtWinkHipMin   float64 `toml:"butt_wink_hip_min" json:"butt_wink_hip_min"`

	// Trunk trend check: mean of the newest TrendSampleSize trunk angles minus
	// the mean of the oldest, over a history of TrunkHistory frames.
	ButtWinkTrendMin float64 `toml:"butt_wink_trend_min" json:"butt_wink_trend_min"`
	TrunkHistory     int     `toml:"trunk_history" json:"trunk_history"`
	TrendMinSamples  int     `toml:"trend_min_samples" json:"trend_min_samples"`
	TrendSampleSize  int     `toml:"trend_sample_size" json:"trend_sample_size"`

	// ValgusRatio is the fraction of the baseline knee distance the knees may close by.
	ValgusRatio float64 `toml:"valgus_ratio" json:"valgus_ratio"`
}

// DefaultSquatConfig returns the default squat thresholds.
func DefaultSquatConfig() SquatConfig {
	return SquatConfig{
		Visibility: 0.7,
		Motion: motion.Config{
			Capacity:   10,
			MinFill:    10,
			SampleSize: motion.DefaultSampleSize,
			Threshold:  8,
		},

		UprightHipMin:   160,
		UprightKneeMin:  160,
		UprightTrunkMin: 80,

		DeepKneeMax:     60,
		ParallelKneeMax: 90,
		PartialKneeMax:  120,
		BottomKneeMax:   150,

		OverLeanTrunkMax: 53,
		ButtWinkHipMin:   55,

		ButtWinkTrendMin: 10,
		TrunkHistory:     10,
		TrendMinSamples:  5,
		TrendSampleSize:  3,

		ValgusRatio: 0.15,
	}
}
