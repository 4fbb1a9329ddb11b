package policy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/brensch/kickoff/agent"
	"github.com/brensch/kickoff/command"
	"github.com/brensch/kickoff/world"
)

// Lua runs a strategy written in Lua. The script defines
//
//	function setup() ... end            -- optional
//	function think(world, body) ... end -- required
//
// and issues commands through the globals move, turn, dash, kick, catch,
// turn_neck, say and change_view. The VM has no io, os or module loading.
// Each call into the script is cut off after the time limit.
type Lua struct {
	mu      sync.Mutex // an LState is single-threaded
	L       *lua.LState
	name    string
	env     *agent.Env
	timeout time.Duration
}

// DefaultScriptTimeout is half of a 100ms simulation cycle.
const DefaultScriptTimeout = 50 * time.Millisecond

var ErrScriptTimeout = errors.New("lua: script ran past its time limit")

// LoadLua reads a script from disk.
func LoadLua(path string) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return NewLua(path, string(src))
}

// NewLua compiles and runs src once to define its functions.
func NewLua(name, src string) (*Lua, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)

	p := &Lua{L: L, name: name, timeout: DefaultScriptTimeout}
	p.registerAPI()

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}
	if _, ok := L.GetGlobal("think").(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("%s: no think function defined", name)
	}
	return p, nil
}

func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func sandbox(L *lua.LState) {
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"rawset", "rawget", "rawequal", "collectgarbage",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (p *Lua) registerAPI() {
	num := func(L *lua.LState, n int) float64 { return float64(L.CheckNumber(n)) }
	cmd := func(build func(L *lua.LState) command.Command) *lua.LFunction {
		return p.L.NewFunction(func(L *lua.LState) int {
			c := build(L)
			if p.env == nil {
				L.RaiseError("%s called outside setup or think", c.Kind)
				return 0
			}
			if err := p.env.Enqueue(c); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		})
	}

	p.L.SetGlobal("move", cmd(func(L *lua.LState) command.Command { return command.Move(num(L, 1), num(L, 2)) }))
	p.L.SetGlobal("turn", cmd(func(L *lua.LState) command.Command { return command.Turn(num(L, 1)) }))
	p.L.SetGlobal("dash", cmd(func(L *lua.LState) command.Command { return command.Dash(num(L, 1)) }))
	p.L.SetGlobal("kick", cmd(func(L *lua.LState) command.Command { return command.Kick(num(L, 1), num(L, 2)) }))
	p.L.SetGlobal("catch", cmd(func(L *lua.LState) command.Command { return command.Catch(num(L, 1)) }))
	p.L.SetGlobal("turn_neck", cmd(func(L *lua.LState) command.Command { return command.TurnNeck(num(L, 1)) }))
	p.L.SetGlobal("say", cmd(func(L *lua.LState) command.Command { return command.Say(L.CheckString(1)) }))
	p.L.SetGlobal("change_view", cmd(func(L *lua.LState) command.Command {
		return command.ChangeView(L.CheckString(1), L.CheckString(2))
	}))

	// param("kickable_margin") reads a server parameter, nil when unknown.
	p.L.SetGlobal("param", p.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if p.env == nil {
			L.Push(lua.LNil)
			return 1
		}
		v, ok := p.env.Params().Get(name)
		switch {
		case !ok:
			L.Push(lua.LNil)
		case v.IsString:
			L.Push(lua.LString(v.Str))
		default:
			L.Push(lua.LNumber(v.Num))
		}
		return 1
	}))

	p.L.SetGlobal("log", p.L.NewFunction(func(L *lua.LState) int {
		if p.env != nil {
			p.env.Log.Info("lua", "script", p.name, "message", L.CheckString(1))
		}
		return 0
	}))
}

// SetTimeout changes the per-call time limit. Zero removes it.
func (p *Lua) SetTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = d
}

// call runs fn under the time limit. The caller holds p.mu.
func (p *Lua) call(fn lua.LValue, args ...lua.LValue) error {
	if p.timeout <= 0 {
		return p.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()
	err := p.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w (%s)", ErrScriptTimeout, p.timeout)
	}
	return err
}

func (p *Lua) Setup(env *agent.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env = env
	fn, ok := p.L.GetGlobal("setup").(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := p.call(fn); err != nil {
		return fmt.Errorf("%s setup: %w", p.name, err)
	}
	return nil
}

func (p *Lua) Think(env *agent.Env) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env = env
	err := p.call(p.L.GetGlobal("think"), p.worldTable(env.World(), env), p.bodyTable(env.Body()))
	if err != nil {
		return fmt.Errorf("%s think: %w", p.name, err)
	}
	return nil
}

// Close releases the VM.
func (p *Lua) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

func setNum(t *lua.LTable, key string, v *float64) {
	if v != nil {
		t.RawSetString(key, lua.LNumber(*v))
	}
}

func (p *Lua) perceptTable(pc world.Percept, id string) *lua.LTable {
	t := p.L.NewTable()
	setNum(t, "distance", pc.Distance)
	setNum(t, "direction", pc.Direction)
	if id != "" {
		t.RawSetString("id", lua.LString(id))
	}
	return t
}

func (p *Lua) worldTable(st *world.State, env *agent.Env) *lua.LTable {
	L := p.L
	t := L.NewTable()
	t.RawSetString("time", lua.LNumber(st.Time))
	t.RawSetString("play_mode", lua.LString(st.PlayMode))
	t.RawSetString("side", lua.LString(st.Side))
	t.RawSetString("unum", lua.LNumber(st.UniformNumber))
	t.RawSetString("score_l", lua.LNumber(st.ScoreLeft))
	t.RawSetString("score_r", lua.LNumber(st.ScoreRight))
	t.RawSetString("kickable", lua.LBool(st.IsBallKickable(env.Params())))

	if st.Ball != nil {
		b := p.perceptTable(st.Ball.Percept, "")
		setNum(b, "distance_change", st.Ball.DistanceChange)
		setNum(b, "direction_change", st.Ball.DirectionChange)
		t.RawSetString("ball", b)
	}

	flags := L.NewTable()
	for _, f := range st.Flags {
		flags.Append(p.perceptTable(f.Percept, f.ID))
	}
	t.RawSetString("flags", flags)

	goals := L.NewTable()
	for _, g := range st.Goals {
		goals.Append(p.perceptTable(g.Percept, g.ID))
	}
	t.RawSetString("goals", goals)

	lines := L.NewTable()
	for _, l := range st.Lines {
		lines.Append(p.perceptTable(l.Percept, l.ID))
	}
	t.RawSetString("lines", lines)

	players := L.NewTable()
	for _, pl := range st.Players {
		pt := p.perceptTable(pl.Percept, "")
		if pl.Team != nil {
			pt.RawSetString("team", lua.LString(*pl.Team))
		}
		if pl.Side != world.SideUnknown {
			pt.RawSetString("side", lua.LString(pl.Side))
		}
		if pl.UniformNumber != nil {
			pt.RawSetString("unum", lua.LNumber(*pl.UniformNumber))
		}
		pt.RawSetString("goalie", lua.LBool(pl.Goalie))
		setNum(pt, "body_direction", pl.BodyDirection)
		setNum(pt, "neck_direction", pl.NeckDirection)
		players.Append(pt)
	}
	t.RawSetString("players", players)
	return t
}

func (p *Lua) bodyTable(b *world.Body) *lua.LTable {
	t := p.L.NewTable()
	t.RawSetString("time", lua.LNumber(b.Time))
	t.RawSetString("view_quality", lua.LString(b.ViewMode.Quality))
	t.RawSetString("view_width", lua.LString(b.ViewMode.Width))
	setNum(t, "stamina", b.Stamina)
	setNum(t, "effort", b.Effort)
	setNum(t, "speed", b.SpeedAmount)
	setNum(t, "speed_direction", b.SpeedDirection)
	setNum(t, "head_angle", b.HeadAngle)

	c := p.L.NewTable()
	c.RawSetString("kick", lua.LNumber(b.Counters.Kick))
	c.RawSetString("dash", lua.LNumber(b.Counters.Dash))
	c.RawSetString("turn", lua.LNumber(b.Counters.Turn))
	c.RawSetString("say", lua.LNumber(b.Counters.Say))
	c.RawSetString("turn_neck", lua.LNumber(b.Counters.TurnNeck))
	c.RawSetString("catch", lua.LNumber(b.Counters.Catch))
	c.RawSetString("move", lua.LNumber(b.Counters.Move))
	c.RawSetString("change_view", lua.LNumber(b.Counters.ChangeView))
	t.RawSetString("counters", c)
	return t
}
