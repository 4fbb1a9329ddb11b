package handler

import (
	"fmt"
	"strings"

	"github.com/brensch/kickoff/sexp"
	"github.com/brensch/kickoff/world"
)

// observation is the numeric part of one see entry. How many values the
// server sends decides which fields are known.
type observation struct {
	distance, direction             *float64
	distanceChange, directionChange *float64
	bodyDirection, neckDirection    *float64
}

func readObservation(values []sexp.Expr) observation {
	// Trailing non-numeric markers (tackle and kick flags in newer protocol
	// versions) do not count as fields.
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := v.Float()
		if !ok {
			break
		}
		nums = append(nums, f)
	}

	var o observation
	switch {
	case len(nums) == 1:
		o.direction = world.Float64(nums[0])
	case len(nums) >= 2:
		o.distance = world.Float64(nums[0])
		o.direction = world.Float64(nums[1])
		if len(nums) >= 4 {
			o.distanceChange = world.Float64(nums[2])
			o.directionChange = world.Float64(nums[3])
		}
		if len(nums) >= 6 {
			o.bodyDirection = world.Float64(nums[4])
			o.neckDirection = world.Float64(nums[5])
		}
	}
	return o
}

func (o observation) percept() world.Percept {
	return world.Percept{Distance: o.distance, Direction: o.direction}
}

func (o observation) motion() world.Motion {
	return world.Motion{DistanceChange: o.distanceChange, DirectionChange: o.directionChange}
}

type seen struct {
	ball    *world.Ball
	flags   []world.Flag
	goals   []world.Goal
	players []world.Player
	lines   []world.Line
}

// see replaces every object collection with the contents of msg. Nothing is
// published unless the whole message is understood.
func (h *Handler) see(msg sexp.Expr) error {
	t, err := simTime(msg)
	if err != nil {
		return err
	}
	cur := h.model.State()

	out := seen{
		flags:   []world.Flag{},
		goals:   []world.Goal{},
		players: []world.Player{},
		lines:   []world.Line{},
	}
	for _, obj := range msg.Items()[2:] {
		if err := out.add(obj, cur); err != nil {
			return err
		}
	}

	h.model.UpdateState(func(s *world.State) {
		s.Time = t
		s.Ball = out.ball
		s.Flags = out.flags
		s.Goals = out.goals
		s.Players = out.players
		s.Lines = out.lines
	})
	return nil
}

func (out *seen) add(obj sexp.Expr, cur *world.State) error {
	head, ok := obj.At(0)
	if !obj.IsList() || !ok || !head.IsList() || head.Len() == 0 {
		return fmt.Errorf("%w: object %s", ErrMalformed, obj.String())
	}
	parts := head.Items()
	kind := parts[0].Atom()
	if kind == "" {
		return fmt.Errorf("%w: %s", ErrUnknownObject, head.String())
	}
	o := readObservation(obj.Items()[1:])

	switch kind[0] {
	case 'b':
		out.ball = &world.Ball{Percept: o.percept(), Motion: o.motion()}
	case 'B':
		out.ball = &world.Ball{}
	case 'f':
		out.flags = append(out.flags, world.Flag{Percept: o.percept(), ID: joinParts(parts[1:])})
	case 'F':
		out.flags = append(out.flags, world.Flag{})
	case 'g':
		out.goals = append(out.goals, world.Goal{Percept: o.percept(), ID: joinParts(parts[1:])})
	case 'G':
		out.goals = append(out.goals, world.Goal{})
	case 'l':
		out.lines = append(out.lines, world.Line{Percept: o.percept(), ID: joinParts(parts[1:])})
	case 'p':
		out.players = append(out.players, player(parts[1:], o, cur))
	case 'P':
		out.players = append(out.players, world.Player{})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownObject, head.String())
	}
	return nil
}

// joinParts rebuilds an identifier from name parts, using the wire text so
// that numeric parts like the 50 in (f t l 50) keep their spelling.
func joinParts(parts []sexp.Expr) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Atom())
	}
	return b.String()
}

// player reads (p "team" unum goalie). Any trailing part may be missing.
func player(parts []sexp.Expr, o observation, cur *world.State) world.Player {
	p := world.Player{
		Percept:       o.percept(),
		Motion:        o.motion(),
		BodyDirection: o.bodyDirection,
		NeckDirection: o.neckDirection,
	}
	if len(parts) >= 1 {
		team := parts[0].Atom()
		p.Team = &team
		if cur.Side != world.SideUnknown && cur.TeamName != "" {
			if team == cur.TeamName {
				p.Side = cur.Side
			} else {
				p.Side = cur.Side.Opposite()
			}
		}
	}
	if len(parts) >= 2 {
		if n, ok := parts[1].Int(); ok {
			unum := int(n)
			p.UniformNumber = &unum
		}
	}
	if len(parts) >= 3 && parts[2].Atom() == "goalie" {
		p.Goalie = true
	}
	return p
}
