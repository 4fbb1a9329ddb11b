package handler

import (
	"fmt"
	"strings"

	"github.com/brensch/kickoff/sexp"
	"github.com/brensch/kickoff/world"
)

// senseBody reads (sense_body <time> (name value...)...). Names this client
// does not know are skipped so newer servers can add fields.
func (h *Handler) senseBody(msg sexp.Expr) error {
	t, err := simTime(msg)
	if err != nil {
		return err
	}
	fields := msg.Items()[2:]
	for _, field := range fields {
		if _, ok := field.Tag(); !ok {
			return fmt.Errorf("%w: sense_body field %s", ErrMalformed, field.String())
		}
	}
	h.model.UpdateBody(func(b *world.Body) {
		b.Time = t
		for _, field := range fields {
			name, _ := field.Tag()
			applyBodyField(b, name, field.Items()[1:])
		}
	})
	return nil
}

func applyBodyField(b *world.Body, name string, values []sexp.Expr) {
	switch name {
	case "view_mode":
		if len(values) >= 2 {
			b.ViewMode = world.ViewMode{Quality: values[0].Atom(), Width: values[1].Atom()}
		}
	case "stamina":
		b.Stamina = number(values, 0)
		b.Effort = number(values, 1)
		b.Capacity = number(values, 2)
	case "speed":
		b.SpeedAmount = number(values, 0)
		b.SpeedDirection = number(values, 1)
	case "head_angle":
		b.HeadAngle = number(values, 0)
	case "kick":
		b.Counters.Kick = count(values, b.Counters.Kick)
	case "dash":
		b.Counters.Dash = count(values, b.Counters.Dash)
	case "turn":
		b.Counters.Turn = count(values, b.Counters.Turn)
	case "say":
		b.Counters.Say = count(values, b.Counters.Say)
	case "turn_neck":
		b.Counters.TurnNeck = count(values, b.Counters.TurnNeck)
	case "catch":
		b.Counters.Catch = count(values, b.Counters.Catch)
	case "move":
		b.Counters.Move = count(values, b.Counters.Move)
	case "change_view":
		b.Counters.ChangeView = count(values, b.Counters.ChangeView)
	}
}

func number(values []sexp.Expr, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	f, ok := values[i].Float()
	if !ok {
		return nil
	}
	return &f
}

func count(values []sexp.Expr, prev int) int {
	if len(values) == 0 {
		return prev
	}
	n, ok := values[0].Int()
	if !ok {
		return prev
	}
	return int(n)
}

// hear handles referee calls and messages said by other agents.
//
//	(hear <time> referee <message>)
//	(hear <time> <direction> [our|opp] [<unum>] <message>)
//	(hear <time> self|coach|online_coach_left|... <message>)
func (h *Handler) hear(msg sexp.Expr) error {
	t, err := simTime(msg)
	if err != nil {
		return err
	}
	items := msg.Items()
	if len(items) < 4 {
		return fmt.Errorf("%w: hear needs a sender and a message", ErrMalformed)
	}
	sender := items[2]
	text := atomOrText(items[len(items)-1])

	if sender.Atom() == "referee" {
		h.referee(t, text)
		return nil
	}

	heard := &world.Heard{Time: t, Message: text}
	if dir, ok := sender.Float(); ok {
		heard.Direction = &dir
		for _, extra := range items[3 : len(items)-1] {
			if n, ok := extra.Int(); ok {
				unum := int(n)
				heard.UniformNumber = &unum
				continue
			}
			heard.Team = extra.Atom()
		}
	} else {
		heard.Sender = sender.Atom()
	}
	h.model.UpdateState(func(s *world.State) { s.LastHeard = heard })
	return nil
}

func atomOrText(e sexp.Expr) string {
	if e.IsAtom() {
		return e.Atom()
	}
	return e.String()
}

func (h *Handler) referee(t int, text string) {
	h.model.UpdateState(func(s *world.State) {
		s.Time = t
		s.LastReferee = text
		if strings.HasPrefix(text, world.RefTimeUp) {
			s.PlayMode = world.TimeOver
			return
		}
		if side, n, ok := world.IsGoal(text); ok {
			var score int
			if _, err := fmt.Sscan(n, &score); err != nil {
				return
			}
			if side == world.SideLeft {
				s.ScoreLeft = score
			} else {
				s.ScoreRight = score
			}
			return
		}
		if text == "" || world.IsRefereeCall(text) {
			return
		}
		s.PlayMode = world.PlayMode(text)
	})
	if pm := world.PlayMode(text); !pm.Known() && !world.IsRefereeCall(text) {
		h.log.Debug("unrecognized play mode", "time", t, "play_mode", text)
	}
	h.log.Debug("referee", "time", t, "message", text)
}

// init reads (init <side> <unum> <play_mode>) and (reconnect <side> <play_mode>).
func (h *Handler) init(tag Tag, msg sexp.Expr) error {
	items := msg.Items()
	want := 4
	if tag == TagReconnect {
		want = 3
	}
	if len(items) < want {
		return fmt.Errorf("%w: %s needs %d fields", ErrMalformed, tag, want-1)
	}
	side, ok := world.ParseSide(items[1].Atom())
	if !ok {
		return fmt.Errorf("%w: side %q", ErrMalformed, items[1].Atom())
	}
	unum := 0
	if tag == TagInit {
		n, ok := items[2].Int()
		if !ok {
			return fmt.Errorf("%w: uniform number %q", ErrMalformed, items[2].String())
		}
		unum = int(n)
	}
	mode := items[want-1]
	if mode.Kind() != sexp.KindString || mode.Atom() == "" || world.IsRefereeCall(mode.Atom()) {
		return fmt.Errorf("%w: play mode %q", ErrMalformed, mode.String())
	}
	pm := world.PlayMode(mode.Atom())
	if !pm.Known() {
		h.log.Debug("unrecognized play mode", "play_mode", string(pm))
	}
	h.model.UpdateState(func(s *world.State) {
		s.Side = side
		if tag == TagInit {
			s.UniformNumber = unum
		}
		s.PlayMode = pm
	})
	h.log.Info("joined match", "side", string(side), "unum", unum, "play_mode", string(pm))
	return nil
}
