package handler

import (
	"fmt"

	"github.com/brensch/kickoff/sexp"
	"github.com/brensch/kickoff/world"
)

// readParams collects (name value) pairs from every element after the tag.
func readParams(msg sexp.Expr) (map[string]world.Param, error) {
	items := msg.Items()[1:]
	out := make(map[string]world.Param, len(items))
	for _, pair := range items {
		name, ok := pair.Tag()
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformed, pair.String())
		}
		v := pair.Items()[1]
		if f, ok := v.Float(); ok {
			out[name] = world.Num(f)
			continue
		}
		if v.IsList() {
			return nil, fmt.Errorf("%w: parameter %s", ErrMalformed, pair.String())
		}
		out[name] = world.Str(v.Atom())
	}
	return out, nil
}

func (h *Handler) serverParam(msg sexp.Expr) error {
	values, err := readParams(msg)
	if err != nil {
		return err
	}
	if !h.model.SetServerParams(values) {
		h.log.Debug("ignoring repeated server_param")
		return nil
	}
	h.log.Debug("server parameters", "count", len(values))
	return nil
}

func (h *Handler) playerParam(msg sexp.Expr) error {
	values, err := readParams(msg)
	if err != nil {
		return err
	}
	if !h.model.SetPlayerParams(values) {
		h.log.Debug("ignoring repeated player_param")
	}
	return nil
}

func (h *Handler) playerType(msg sexp.Expr) error {
	values, err := readParams(msg)
	if err != nil {
		return err
	}
	id, ok := values["id"]
	if !ok || id.IsString {
		return fmt.Errorf("%w: player_type without id", ErrMalformed)
	}
	h.model.SetPlayerType(int(id.Num), values)
	return nil
}
