// Package command builds, validates and sends player commands.
package command

import (
	"strconv"
	"strings"
)

// Kind is the command verb as it appears on the wire.
type Kind string

const (
	KindMove       Kind = "move"
	KindTurn       Kind = "turn"
	KindDash       Kind = "dash"
	KindKick       Kind = "kick"
	KindCatch      Kind = "catch"
	KindTurnNeck   Kind = "turn_neck"
	KindSay        Kind = "say"
	KindChangeView Kind = "change_view"
)

// Unlimited reports whether the server accepts any number of these per
// cycle. Everything else is executed at most once per cycle.
func (k Kind) Unlimited() bool { return k == KindSay }

// Command is one outbound action. Numeric parameters live in Args; say and
// change_view carry their words in Text.
type Command struct {
	Kind Kind
	Args []float64
	Text string
}

// Move teleports the player; only honoured before kick-off and after goals.
func Move(x, y float64) Command { return Command{Kind: KindMove, Args: []float64{x, y}} }

// Turn rotates the body by moment degrees.
func Turn(moment float64) Command { return Command{Kind: KindTurn, Args: []float64{moment}} }

// Dash accelerates along the body direction.
func Dash(power float64) Command { return Command{Kind: KindDash, Args: []float64{power}} }

// Kick accelerates the ball, direction relative to the body.
func Kick(power, direction float64) Command {
	return Command{Kind: KindKick, Args: []float64{power, direction}}
}

// Catch is the goalie's catch toward direction.
func Catch(direction float64) Command { return Command{Kind: KindCatch, Args: []float64{direction}} }

// TurnNeck rotates the neck relative to its current angle.
func TurnNeck(moment float64) Command {
	return Command{Kind: KindTurnNeck, Args: []float64{moment}}
}

// Say broadcasts a short message to nearby players.
func Say(message string) Command { return Command{Kind: KindSay, Text: message} }

// ChangeView sets view width (narrow, normal, wide) and quality (high, low).
func ChangeView(width, quality string) Command {
	return Command{Kind: KindChangeView, Text: width + " " + quality}
}

// String renders the wire text, numbers with fixed ten-digit precision:
// "(kick 100.0000000000 -45.0000000000)".
func (c Command) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(string(c.Kind))
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(a, 'f', 10, 64))
	}
	if c.Text != "" {
		b.WriteByte(' ')
		b.WriteString(c.Text)
	}
	b.WriteByte(')')
	return b.String()
}

// Bytes is String as a datagram payload.
func (c Command) Bytes() []byte { return []byte(c.String()) }
