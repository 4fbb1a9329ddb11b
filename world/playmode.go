package world

import "strings"

// Side is the half of the pitch a team defends at kick-off.
type Side string

const (
	SideUnknown Side = ""
	SideLeft    Side = "l"
	SideRight   Side = "r"
)

// Opposite returns the other side, or SideUnknown.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideUnknown
	}
}

// ParseSide accepts "l" and "r".
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideLeft, SideRight:
		return Side(s), true
	}
	return SideUnknown, false
}

// PlayMode is the referee-controlled game phase.
type PlayMode string

const (
	BeforeKickOff PlayMode = "before_kick_off"
	PlayOn        PlayMode = "play_on"
	TimeOver      PlayMode = "time_over"
	KickOffL      PlayMode = "kick_off_l"
	KickOffR      PlayMode = "kick_off_r"
	KickInL       PlayMode = "kick_in_l"
	KickInR       PlayMode = "kick_in_r"
	FreeKickL     PlayMode = "free_kick_l"
	FreeKickR     PlayMode = "free_kick_r"
	CornerKickL   PlayMode = "corner_kick_l"
	CornerKickR   PlayMode = "corner_kick_r"
	GoalKickL     PlayMode = "goal_kick_l"
	GoalKickR     PlayMode = "goal_kick_r"
	DropBall      PlayMode = "drop_ball"
	OffsideL      PlayMode = "offside_l"
	OffsideR      PlayMode = "offside_r"

	IndirectFreeKickL PlayMode = "indirect_free_kick_l"
	IndirectFreeKickR PlayMode = "indirect_free_kick_r"
	BackPassL         PlayMode = "back_pass_l"
	BackPassR         PlayMode = "back_pass_r"
	FreeKickFaultL    PlayMode = "free_kick_fault_l"
	FreeKickFaultR    PlayMode = "free_kick_fault_r"
	CatchFaultL       PlayMode = "catch_fault_l"
	CatchFaultR       PlayMode = "catch_fault_r"
	PenaltySetupL     PlayMode = "penalty_setup_l"
	PenaltySetupR     PlayMode = "penalty_setup_r"
	PenaltyReadyL     PlayMode = "penalty_ready_l"
	PenaltyReadyR     PlayMode = "penalty_ready_r"
	PenaltyTakenL     PlayMode = "penalty_taken_l"
	PenaltyTakenR     PlayMode = "penalty_taken_r"
	PenaltyMissL      PlayMode = "penalty_miss_l"
	PenaltyMissR      PlayMode = "penalty_miss_r"
	PenaltyScoreL     PlayMode = "penalty_score_l"
	PenaltyScoreR     PlayMode = "penalty_score_r"
)

var playModes = map[PlayMode]struct{}{
	BeforeKickOff: {}, PlayOn: {}, TimeOver: {},
	KickOffL: {}, KickOffR: {}, KickInL: {}, KickInR: {},
	FreeKickL: {}, FreeKickR: {}, CornerKickL: {}, CornerKickR: {},
	GoalKickL: {}, GoalKickR: {}, DropBall: {}, OffsideL: {}, OffsideR: {},
	IndirectFreeKickL: {}, IndirectFreeKickR: {}, BackPassL: {}, BackPassR: {},
	FreeKickFaultL: {}, FreeKickFaultR: {}, CatchFaultL: {}, CatchFaultR: {},
	PenaltySetupL: {}, PenaltySetupR: {}, PenaltyReadyL: {}, PenaltyReadyR: {},
	PenaltyTakenL: {}, PenaltyTakenR: {}, PenaltyMissL: {}, PenaltyMissR: {},
	PenaltyScoreL: {}, PenaltyScoreR: {},
}

// ParsePlayMode reports whether s names one of the play modes above.
func ParsePlayMode(s string) (PlayMode, bool) {
	pm := PlayMode(s)
	_, ok := playModes[pm]
	return pm, ok
}

// Known reports whether pm is one of the play modes above. Servers add modes
// over time, so an unknown mode is still a valid one.
func (pm PlayMode) Known() bool {
	_, ok := playModes[pm]
	return ok
}

// IsRefereeCall reports referee messages that announce an event instead of
// setting the play mode: fouls, goalie catches, goals, half time, extra time
// and the end of the match.
func IsRefereeCall(msg string) bool {
	switch {
	case strings.HasPrefix(msg, "foul_"),
		strings.HasPrefix(msg, "goalie_catch_ball_"),
		strings.HasPrefix(msg, RefTimeUp),
		msg == RefHalfTime,
		msg == RefTimeExtended:
		return true
	}
	_, _, goal := IsGoal(msg)
	return goal
}

// Referee messages that are not play modes.
const (
	RefFoulL             = "foul_l"
	RefFoulR             = "foul_r"
	RefGoalieCatchBallL  = "goalie_catch_ball_l"
	RefGoalieCatchBallR  = "goalie_catch_ball_r"
	RefTimeUpWithoutTeam = "time_up_without_a_team"
	RefTimeUp            = "time_up"
	RefHalfTime          = "half_time"
	RefTimeExtended      = "time_extended"

	// Goal announcements carry the scorer's running total: "goal_l_2".
	RefGoalLPrefix = "goal_l_"
	RefGoalRPrefix = "goal_r_"
)

// IsGoal reports a goal announcement and which side scored.
func IsGoal(msg string) (Side, string, bool) {
	switch {
	case strings.HasPrefix(msg, RefGoalLPrefix):
		return SideLeft, strings.TrimPrefix(msg, RefGoalLPrefix), true
	case strings.HasPrefix(msg, RefGoalRPrefix):
		return SideRight, strings.TrimPrefix(msg, RefGoalRPrefix), true
	}
	return SideUnknown, "", false
}
