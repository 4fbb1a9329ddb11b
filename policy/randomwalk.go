// Package policy holds decision policies an agent can play with.
package policy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/brensch/kickoff/agent"
	"github.com/brensch/kickoff/command"
)

// RandomWalk is the placeholder strategy: take a random spot on our half,
// then chase the ball and kick it somewhere random.
type RandomWalk struct {
	mu    sync.Mutex
	rng   *rand.Rand
	moved bool
}

func NewRandomWalk(seed int64) *RandomWalk {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomWalk{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomWalk) Setup(env *agent.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moved = false
	return nil
}

func (p *RandomWalk) Think(env *agent.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.moved {
		p.moved = true
		// Move coordinates are always relative to our own half.
		x := -5 - p.rng.Float64()*45
		y := p.rng.Float64()*60 - 30
		return enqueue(env, command.Move(x, y))
	}

	st := env.World()
	ball := st.Ball
	if ball == nil || ball.Direction == nil {
		return enqueue(env, command.Turn(float64(30+p.rng.Intn(11))))
	}
	dir := *ball.Direction
	switch {
	case st.IsBallKickable(env.Params()):
		if err := enqueue(env, command.Say("K")); err != nil {
			return err
		}
		return enqueue(env, command.Kick(100, float64(180-p.rng.Intn(361))))
	case dir > -5 && dir < 5:
		return enqueue(env, command.Dash(100))
	default:
		return enqueue(env, command.Turn(dir/2))
	}
}

func enqueue(env *agent.Env, c command.Command) error {
	if err := env.Enqueue(c); err != nil {
		return fmt.Errorf("enqueue %s: %w", c.Kind, err)
	}
	return nil
}
