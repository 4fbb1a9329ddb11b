package world

// Percept is the part of every observation the server reports relative to
// the agent. A nil field was not reported in the latest see message.
type Percept struct {
	Distance  *float64 `json:"distance,omitempty"`
	Direction *float64 `json:"direction,omitempty"`
}

// Visible reports whether the object was inside the view cone.
func (p Percept) Visible() bool { return p.Direction != nil }

// Motion holds the change terms reported for moving objects.
type Motion struct {
	DistanceChange  *float64 `json:"distance_change,omitempty"`
	DirectionChange *float64 `json:"direction_change,omitempty"`
	Speed           *float64 `json:"speed,omitempty"`
}

type Ball struct {
	Percept
	Motion
}

type Player struct {
	Percept
	Motion
	Team          *string  `json:"team,omitempty"`
	Side          Side     `json:"side,omitempty"`
	UniformNumber *int     `json:"uniform_number,omitempty"`
	Goalie        bool     `json:"goalie,omitempty"`
	BodyDirection *float64 `json:"body_direction,omitempty"`
	NeckDirection *float64 `json:"neck_direction,omitempty"`
}

// Flag is a fixed field marker. ID is the name parts joined, e.g. "ctl50".
type Flag struct {
	Percept
	ID string `json:"id,omitempty"`
}

// Goal ID is the goal's side ("l" or "r") when known.
type Goal struct {
	Percept
	ID string `json:"id,omitempty"`
}

// Line ID is one of "t", "b", "l", "r".
type Line struct {
	Percept
	ID string `json:"id,omitempty"`
}

// Float64 returns a pointer to v, for building optional fields.
func Float64(v float64) *float64 { return &v }
