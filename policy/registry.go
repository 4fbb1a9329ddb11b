package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brensch/kickoff/agent"
)

var ErrUnknownPolicy = errors.New("unknown policy")

// ByName builds a fresh policy instance. Agents must not share one: the Lua
// VM and the random walk's state are per player. A zero seed is taken from
// the clock.
func ByName(name, script string, seed int64) (agent.Policy, error) {
	switch strings.ToLower(name) {
	case "", "random":
		return NewRandomWalk(seed), nil
	case "lua":
		if script == "" {
			return nil, errors.New("lua policy needs a script path")
		}
		return LoadLua(script)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}
