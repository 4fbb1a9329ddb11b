// Package handler routes parsed server messages to updates of a world.Model.
//
// Dispatch is a closed switch over Tag. A message whose tag is not in the
// table is a protocol error and is never skipped silently.
package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/kickoff/sexp"
	"github.com/brensch/kickoff/world"
)

// Handler folds messages into one agent's model. It may be called from
// several goroutines; every write goes through the model's serialized
// update methods.
type Handler struct {
	model *world.Model
	log   *slog.Logger
}

func New(model *world.Model, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{model: model, log: log}
}

func (h *Handler) Model() *world.Model { return h.model }

// HandleRaw parses one datagram and dispatches every top-level message in
// order. It stops at the first error and returns the tags handled so far.
// A datagram with a syntax error is rejected whole.
func (h *Handler) HandleRaw(data []byte) ([]Tag, error) {
	text := string(data)
	exprs, err := sexp.Parse(text)
	if err != nil {
		return nil, protocolErr("", text, err)
	}
	if len(exprs) == 0 {
		return nil, protocolErr("", text, ErrMalformed)
	}
	tags := make([]Tag, 0, len(exprs))
	for _, e := range exprs {
		tag, err := h.Handle(e)
		if err != nil {
			return tags, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Handle applies one parsed message to the model.
func (h *Handler) Handle(msg sexp.Expr) (Tag, error) {
	name, ok := msg.Tag()
	if !ok {
		return TagUnknown, protocolErr("", msg.String(), ErrMalformed)
	}
	tag, ok := ParseTag(name)
	if !ok {
		return TagUnknown, protocolErr(name, msg.String(), ErrUnknownMessage)
	}

	var err error
	switch tag {
	case TagSee:
		err = h.see(msg)
	case TagHear:
		err = h.hear(msg)
	case TagSenseBody:
		err = h.senseBody(msg)
	case TagServerParam:
		err = h.serverParam(msg)
	case TagPlayerParam:
		err = h.playerParam(msg)
	case TagPlayerType:
		err = h.playerType(msg)
	case TagInit, TagReconnect:
		err = h.init(tag, msg)
	case TagOk:
		h.log.Debug("server ok", "message", msg.String())
	case TagWarning:
		h.log.Warn("server warning", "message", payload(msg))
	case TagError:
		return tag, &ServerError{Message: payload(msg)}
	}
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			return tag, err
		}
		return tag, protocolErr(name, msg.String(), err)
	}
	return tag, nil
}

// payload joins everything after the tag, as error and warning messages
// carry a single reason atom in practice but may carry more.
func payload(msg sexp.Expr) string {
	items := msg.Items()
	if len(items) < 2 {
		return ""
	}
	if len(items) == 2 && items[1].IsAtom() {
		return items[1].Atom()
	}
	return sexp.Format(items[1:])
}

func simTime(msg sexp.Expr) (int, error) {
	e, ok := msg.At(1)
	if !ok {
		return 0, fmt.Errorf("%w: missing time", ErrMalformed)
	}
	t, ok := e.Int()
	if !ok {
		return 0, fmt.Errorf("%w: time %q is not an integer", ErrMalformed, e.String())
	}
	return int(t), nil
}
