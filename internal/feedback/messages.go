package feedback

// Message IDs shared by every exercise.
const (
	NoPerson              = "no_person"
	InsufficientLandmarks = "insufficient_landmarks"
	DetectionError        = "detection_error"
)

// Deadlift message IDs.
const (
	DeadliftIdle                = "deadlift_idle"
	DeadliftStartPose           = "deadlift_start_pose"
	DeadliftWrongDirection      = "deadlift_wrong_direction"
	DeadliftLifting             = "deadlift_lifting"
	DeadliftBackRounding        = "deadlift_back_rounding"
	DeadliftBackRisingEarly     = "deadlift_back_rising_early"
	DeadliftHipsRisingEarly     = "deadlift_hips_rising_early"
	DeadliftKneesExtendingEarly = "deadlift_knees_extending_early"
	DeadliftStickingPoint       = "deadlift_sticking_point"
	DeadliftLockoutReached      = "deadlift_lockout_reached"
	DeadliftLockoutHold         = "deadlift_lockout_hold"
	DeadliftLockoutRounding     = "deadlift_lockout_rounding"
	DeadliftLoweringStarted     = "deadlift_lowering_started"
	DeadliftLowering            = "deadlift_lowering"
	DeadliftLoweringRounding    = "deadlift_lowering_rounding"
	DeadliftHipsDroppingEarly   = "deadlift_hips_dropping_early"
	DeadliftRepComplete         = "deadlift_rep_complete"
	DeadliftRepInvalid          = "deadlift_rep_invalid"
)

// Squat message IDs.
const (
	SquatIdle              = "squat_idle"
	SquatReady             = "squat_ready"
	SquatDescentStarted    = "squat_descent_started"
	SquatEarlyRise         = "squat_early_rise"
	SquatOverLean          = "squat_over_lean"
	SquatButtWinkHip       = "squat_butt_wink_hip"
	SquatButtWinkTrunk     = "squat_butt_wink_trunk"
	SquatKneeValgus        = "squat_knee_valgus"
	SquatDescending        = "squat_descending"
	SquatKeepGoing         = "squat_keep_going"
	SquatBottomDeep        = "squat_bottom_deep"
	SquatBottomParallel    = "squat_bottom_parallel"
	SquatBottomPartial     = "squat_bottom_partial"
	SquatInsufficientDepth = "squat_insufficient_depth"
	SquatRising            = "squat_rising"
	SquatAtBottom          = "squat_at_bottom"
	SquatAtBottomInvalid   = "squat_at_bottom_invalid"
	SquatRiseOverLean      = "squat_rise_over_lean"
	SquatRiseValgus        = "squat_rise_valgus"
	SquatRisingExtend      = "squat_rising_extend"
	SquatRepComplete       = "squat_rep_complete"
	SquatRepInvalid        = "squat_rep_invalid"
)

// Posture score message IDs.
const (
	ScoreInvalidExercise = "score_invalid_exercise"
	ScoreNoPerson        = "score_no_person"
	ScoreInsufficient    = "score_insufficient"
	ScoreError           = "score_error"
	ScorePerfect         = "score_perfect"
	ScoreNeedsWork       = "score_needs_work"
	ScoreGeneric         = "score_generic"
	ScoreDepthGood       = "score_depth_good"
	ScoreDepthDeeper     = "score_depth_deeper"
	ScoreDepthShallow    = "score_depth_shallow"
	ScoreKneeAngle       = "score_knee_angle"
	ScoreHipAngle        = "score_hip_angle"
	ScoreTrunkAngle      = "score_trunk_angle"
	ScoreTrunkLean       = "score_trunk_lean"
	ScoreKneeValgus      = "score_knee_valgus"
	ScoreBadImage        = "score_bad_image"
)
