package world

import (
	"sync"
	"sync/atomic"
)

// PlayerTypes maps a heterogeneous player type id to its parameters.
type PlayerTypes map[int]*Params

// Model is the per-connection world record.
//
// Reads never block. Writes are serialized among themselves and become
// visible through a single pointer swap, so a reader sees either the old
// snapshot or the new one, never a partially built one.
type Model struct {
	mu        sync.Mutex // serializes writers only
	serverSet bool
	playerSet bool

	state   atomic.Pointer[State]
	body    atomic.Pointer[Body]
	server  atomic.Pointer[ServerParameters]
	player  atomic.Pointer[Params]
	ptypes  atomic.Pointer[PlayerTypes]
	updates atomic.Uint64
}

// NewModel returns a model with default server parameters and the play mode
// set to before_kick_off.
func NewModel(teamName string) *Model {
	m := &Model{}
	m.state.Store(&State{
		PlayMode: BeforeKickOff,
		TeamName: teamName,
		Flags:    []Flag{},
		Goals:    []Goal{},
		Players:  []Player{},
		Lines:    []Line{},
	})
	m.body.Store(&Body{})
	m.server.Store(DefaultServerParameters())
	m.player.Store(NewParams(nil, nil))
	empty := PlayerTypes{}
	m.ptypes.Store(&empty)
	return m
}

// State returns the current world snapshot.
func (m *Model) State() *State { return m.state.Load() }

// Body returns the current body snapshot.
func (m *Model) Body() *Body { return m.body.Load() }

// ServerParams returns the server parameter table.
func (m *Model) ServerParams() *ServerParameters { return m.server.Load() }

// PlayerParams returns the player_param table.
func (m *Model) PlayerParams() *Params { return m.player.Load() }

// PlayerType returns one heterogeneous player type.
func (m *Model) PlayerType(id int) (*Params, bool) {
	p, ok := (*m.ptypes.Load())[id]
	return p, ok
}

// Updates counts published snapshots of any kind.
func (m *Model) Updates() uint64 { return m.updates.Load() }

// UpdateState copies the current state, lets fn edit the copy and publishes
// it. fn must assign new slices rather than modify the existing ones.
func (m *Model) UpdateState(fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.state.Load()
	fn(&next)
	m.state.Store(&next)
	m.updates.Add(1)
}

// UpdateBody copies the current body, lets fn edit the copy and publishes it.
func (m *Model) UpdateBody(fn func(*Body)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.body.Load()
	fn(&next)
	m.body.Store(&next)
	m.updates.Add(1)
}

// SetServerParams installs the server's own table on top of the defaults.
// Only the first call has an effect; it reports whether it was applied.
func (m *Model) SetServerParams(values map[string]Param) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serverSet {
		return false
	}
	m.serverSet = true
	m.server.Store(NewParams(DefaultServerParameters(), values))
	m.updates.Add(1)
	return true
}

// SetPlayerParams installs the player_param table once.
func (m *Model) SetPlayerParams(values map[string]Param) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playerSet {
		return false
	}
	m.playerSet = true
	m.player.Store(NewParams(nil, values))
	m.updates.Add(1)
	return true
}

// SetPlayerType records one player_type message.
func (m *Model) SetPlayerType(id int, values map[string]Param) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := *m.ptypes.Load()
	next := make(PlayerTypes, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[id] = NewParams(nil, values)
	m.ptypes.Store(&next)
	m.updates.Add(1)
}
