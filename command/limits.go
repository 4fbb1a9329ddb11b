package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brensch/kickoff/world"
)

var (
	ErrOutOfRange      = errors.New("parameter out of range")
	ErrInvalidArgument = errors.New("invalid command argument")
)

// RangeError reports a parameter outside its legal interval. It marks a bug
// in the caller, not a network condition.
type RangeError struct {
	Kind  Kind
	Param string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %s %g not in [%g, %g]", e.Kind, e.Param, e.Value, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Limits are the legal parameter intervals.
type Limits struct {
	MinMoment, MaxMoment         float64
	MinNeckMoment, MaxNeckMoment float64
	MinPower, MaxPower           float64
	MinDirection, MaxDirection   float64
	HalfLength, HalfWidth        float64 // move targets lie within the pitch
	SayMaxLength                 int
}

// DefaultLimits matches the server's default parameters.
func DefaultLimits() Limits {
	return LimitsFrom(world.DefaultServerParameters())
}

// LimitsFrom reads the limits from a server parameter table.
func LimitsFrom(p *world.ServerParameters) Limits {
	return Limits{
		MinMoment:     p.FloatOr("minmoment", -180),
		MaxMoment:     p.FloatOr("maxmoment", 180),
		MinNeckMoment: p.FloatOr("minneckmoment", -180),
		MaxNeckMoment: p.FloatOr("maxneckmoment", 180),
		MinPower:      p.FloatOr("minpower", -100),
		MaxPower:      p.FloatOr("maxpower", 100),
		MinDirection:  -180,
		MaxDirection:  180,
		HalfLength:    52.5,
		HalfWidth:     34,
		SayMaxLength:  int(p.FloatOr("say_msg_size", 10)),
	}
}

var (
	viewWidths    = map[string]bool{"narrow": true, "normal": true, "wide": true}
	viewQualities = map[string]bool{"high": true, "low": true}
)

// Validate checks c against l.
func (l Limits) Validate(c Command) error {
	switch c.Kind {
	case KindMove:
		if err := c.arity(2); err != nil {
			return err
		}
		if err := c.check("x", c.Args[0], -l.HalfLength, l.HalfLength); err != nil {
			return err
		}
		return c.check("y", c.Args[1], -l.HalfWidth, l.HalfWidth)
	case KindTurn:
		if err := c.arity(1); err != nil {
			return err
		}
		return c.check("moment", c.Args[0], l.MinMoment, l.MaxMoment)
	case KindTurnNeck:
		if err := c.arity(1); err != nil {
			return err
		}
		return c.check("moment", c.Args[0], l.MinNeckMoment, l.MaxNeckMoment)
	case KindDash:
		if err := c.arity(1); err != nil {
			return err
		}
		return c.check("power", c.Args[0], l.MinPower, l.MaxPower)
	case KindKick:
		if err := c.arity(2); err != nil {
			return err
		}
		if err := c.check("power", c.Args[0], l.MinPower, l.MaxPower); err != nil {
			return err
		}
		return c.check("direction", c.Args[1], l.MinDirection, l.MaxDirection)
	case KindCatch:
		if err := c.arity(1); err != nil {
			return err
		}
		return c.check("direction", c.Args[0], l.MinDirection, l.MaxDirection)
	case KindSay:
		if len(c.Args) != 0 {
			return fmt.Errorf("%w: say takes no numbers", ErrInvalidArgument)
		}
		if c.Text == "" || len(c.Text) > l.SayMaxLength {
			return fmt.Errorf("%w: say message length %d not in [1, %d]",
				ErrInvalidArgument, len(c.Text), l.SayMaxLength)
		}
		if strings.ContainsAny(c.Text, "()\" \t\r\n\x00") {
			return fmt.Errorf("%w: say message %q contains reserved characters", ErrInvalidArgument, c.Text)
		}
		return nil
	case KindChangeView:
		width, quality, ok := strings.Cut(c.Text, " ")
		if !ok || !viewWidths[width] || !viewQualities[quality] {
			return fmt.Errorf("%w: change_view %q", ErrInvalidArgument, c.Text)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", ErrInvalidArgument, c.Kind)
}

func (c Command) arity(n int) error {
	if len(c.Args) != n || c.Text != "" {
		return fmt.Errorf("%w: %s takes %d numbers, got %d", ErrInvalidArgument, c.Kind, n, len(c.Args))
	}
	return nil
}

func (c Command) check(param string, v, lo, hi float64) error {
	// NaN fails both comparisons and is rejected here.
	if !(v >= lo && v <= hi) {
		return &RangeError{Kind: c.Kind, Param: param, Value: v, Min: lo, Max: hi}
	}
	return nil
}
