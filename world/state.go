// Package world holds what an agent knows about the match.
//
// Everything is published as immutable snapshots behind atomic pointers: the
// receive loop builds a new snapshot and swaps it in, and the decide loop
// reads whatever snapshot is current without taking a lock.
package world

// Heard is the last non-referee message the agent heard.
type Heard struct {
	Time          int      `json:"time"`
	Sender        string   `json:"sender"`
	Direction     *float64 `json:"direction,omitempty"`
	Team          string   `json:"team,omitempty"`
	UniformNumber *int     `json:"uniform_number,omitempty"`
	Message       string   `json:"message"`
}

// State is one snapshot of the visible world plus match bookkeeping.
//
// Snapshots are shared between goroutines and must not be modified once
// published. Writers replace the object slices wholesale instead of
// appending to them.
type State struct {
	Time    int      `json:"time"`
	Ball    *Ball    `json:"ball,omitempty"`
	Flags   []Flag   `json:"flags"`
	Goals   []Goal   `json:"goals"`
	Players []Player `json:"players"`
	Lines   []Line   `json:"lines"`

	PlayMode      PlayMode `json:"play_mode"`
	TeamName      string   `json:"team_name"`
	Side          Side     `json:"side,omitempty"`
	UniformNumber int      `json:"uniform_number,omitempty"`
	ScoreLeft     int      `json:"score_l"`
	ScoreRight    int      `json:"score_r"`
	LastReferee   string   `json:"last_referee,omitempty"`
	LastHeard     *Heard   `json:"last_heard,omitempty"`
}

// Clone performs a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Ball != nil {
		b := *s.Ball
		out.Ball = &b
	}
	if s.LastHeard != nil {
		h := *s.LastHeard
		out.LastHeard = &h
	}
	out.Flags = append([]Flag(nil), s.Flags...)
	out.Goals = append([]Goal(nil), s.Goals...)
	out.Players = append([]Player(nil), s.Players...)
	out.Lines = append([]Line(nil), s.Lines...)
	return &out
}

// IsBeforeKickOff reports the pre-match phase.
func (s *State) IsBeforeKickOff() bool { return s.PlayMode == BeforeKickOff }

// IsKickOffUs reports whether our side is about to kick off.
func (s *State) IsKickOffUs() bool {
	return (s.Side == SideLeft && s.PlayMode == KickOffL) ||
		(s.Side == SideRight && s.PlayMode == KickOffR)
}

// IsDeadBallThem reports a kick-in, free kick or corner for the opponents.
func (s *State) IsDeadBallThem() bool {
	pm := s.PlayMode
	freeLeft := pm == KickInL || pm == FreeKickL || pm == IndirectFreeKickL || pm == CornerKickL
	freeRight := pm == KickInR || pm == FreeKickR || pm == IndirectFreeKickR || pm == CornerKickR
	switch s.Side {
	case SideLeft:
		return freeRight
	case SideRight:
		return freeLeft
	}
	return false
}

// IsBallKickable reports whether the ball is within kickable_margin.
func (s *State) IsBallKickable(params *ServerParameters) bool {
	if s.Ball == nil || s.Ball.Distance == nil {
		return false
	}
	return *s.Ball.Distance <= params.FloatOr("kickable_margin", 0.7)
}

// ViewMode is the (quality, width) pair from sense_body.
type ViewMode struct {
	Quality string `json:"quality"`
	Width   string `json:"width"`
}

// Counters are the server's running totals of executed commands. Comparing
// them across cycles tells whether a command was dropped.
type Counters struct {
	Kick       int `json:"kick"`
	Dash       int `json:"dash"`
	Turn       int `json:"turn"`
	Say        int `json:"say"`
	TurnNeck   int `json:"turn_neck"`
	Catch      int `json:"catch"`
	Move       int `json:"move"`
	ChangeView int `json:"change_view"`
}

// Body is the agent's sense of itself from the latest sense_body.
type Body struct {
	Time           int      `json:"time"`
	ViewMode       ViewMode `json:"view_mode"`
	Stamina        *float64 `json:"stamina,omitempty"`
	Effort         *float64 `json:"effort,omitempty"`
	Capacity       *float64 `json:"capacity,omitempty"`
	SpeedAmount    *float64 `json:"speed_amount,omitempty"`
	SpeedDirection *float64 `json:"speed_direction,omitempty"`
	HeadAngle      *float64 `json:"head_angle,omitempty"`
	Counters       Counters `json:"counters"`
}
