// Package agent runs one player connection: a receive loop that folds server
// messages into the world model, and a decide loop that calls the policy and
// flushes commands once per simulation cycle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/brensch/kickoff/command"
	"github.com/brensch/kickoff/handler"
	"github.com/brensch/kickoff/transport"
	"github.com/brensch/kickoff/world"
)

// State is the connection lifecycle.
type State int32

const (
	Disconnected State = iota
	Connected
	Playing
	Disconnecting
	// Stopped is a session whose loops ended on a fatal error. It lasts
	// until Disconnect or the next Connect.
	Stopped
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Playing:
		return "playing"
	case Disconnecting:
		return "disconnecting"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	ErrAlreadyConnected = errors.New("agent: already connected")
	ErrNotConnected     = errors.New("agent: not connected")
	ErrAlreadyPlaying   = errors.New("agent: already playing")
	ErrInitTimeout      = errors.New("agent: no init reply from server")
	ErrShutdownTimeout  = errors.New("agent: loops did not stop in time")
)

// Config holds agent configuration
type Config struct {
	TeamName        string
	Version         int // protocol version sent in init
	Dialer          transport.Dialer
	Policy          Policy
	InitTimeout     time.Duration
	ShutdownTimeout time.Duration

	// SayLimit throttles say commands when non-zero.
	SayLimit rate.Limit
	SayBurst int

	// Wrap, if set, decorates every dialed transport (wire capture).
	Wrap func(session string, t transport.Transport) transport.Transport

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TeamName:        "kickoff",
		Version:         11,
		InitTimeout:     5 * time.Second,
		ShutdownTimeout: time.Second,
	}
}

// Stats is a point-in-time view of an agent's counters.
type Stats struct {
	Session   string         `json:"session"`
	State     string         `json:"state"`
	Datagrams uint64         `json:"datagrams"`
	Messages  uint64         `json:"messages"`
	Thinks    uint64         `json:"thinks"`
	Updates   uint64         `json:"updates"`
	Commands  command.Stats  `json:"commands"`
	Side      world.Side     `json:"side"`
	Unum      int            `json:"unum"`
	PlayMode  world.PlayMode `json:"play_mode"`
	Time      int            `json:"time"`
}

// Agent is one player. Lifecycle methods may be called from any goroutine.
type Agent struct {
	cfg Config
	log *slog.Logger

	mu    sync.Mutex // serializes Connect, Play and Disconnect
	state atomic.Int32
	cur   atomic.Pointer[session]
}

// session is everything owned by one Connect..Disconnect span.
type session struct {
	id      string
	log     *slog.Logger
	tr      transport.Transport
	model   *world.Model
	handler *handler.Handler
	queue   *command.Queue
	env     *Env

	cancel context.CancelFunc
	start  chan struct{} // closed by Play
	fresh  chan struct{} // cap 1: new data since the last think
	flush  chan struct{} // cap 1: a cycle ended, flush commands
	joined chan struct{} // cap 1: init or reconnect arrived

	done chan struct{}
	err  error // written before done is closed

	datagrams atomic.Uint64
	messages  atomic.Uint64
	thinks    atomic.Uint64
}

func New(cfg Config) *Agent {
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = def.Version
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = def.InitTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.TeamName == "" {
		cfg.TeamName = def.TeamName
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Agent{cfg: cfg, log: log.With("team", cfg.TeamName)}
}

func (a *Agent) State() State {
	st := State(a.state.Load())
	if st == Connected || st == Playing {
		if s := a.cur.Load(); s != nil && s.stopped() {
			return Stopped
		}
	}
	return st
}

// Connect dials the server, starts the receive loop, sends init and waits
// for the server's reply.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.State() {
	case Disconnected:
	case Stopped:
		a.release(a.cur.Load())
	default:
		return ErrAlreadyConnected
	}
	if a.cfg.Dialer == nil {
		return errors.New("agent: no dialer configured")
	}

	id := uuid.NewString()
	tr, err := a.cfg.Dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if a.cfg.Wrap != nil {
		tr = a.cfg.Wrap(id, tr)
	}

	s := a.newSession(id, tr)
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.receiveLoop(gctx) })
	g.Go(func() error { return s.decideLoop(gctx, a.cfg.Policy) })
	go func() {
		s.err = g.Wait()
		if s.err != nil {
			s.log.Error("agent stopped", "error", s.err)
		}
		close(s.done)
	}()
	a.cur.Store(s)

	hello := fmt.Sprintf("(init %s (version %d))", a.cfg.TeamName, a.cfg.Version)
	if err := tr.Send([]byte(hello)); err != nil {
		a.abort(s)
		return fmt.Errorf("send init: %w", err)
	}

	timer := time.NewTimer(a.cfg.InitTimeout)
	defer timer.Stop()
	select {
	case <-s.joined:
	case <-s.done:
		a.abort(s)
		return s.err
	case <-timer.C:
		a.abort(s)
		return ErrInitTimeout
	case <-ctx.Done():
		a.abort(s)
		return ctx.Err()
	}

	a.state.Store(int32(Connected))
	st := s.model.State()
	s.log.Info("connected", "peer", tr.Peer(), "side", string(st.Side), "unum", st.UniformNumber)
	return nil
}

func (a *Agent) newSession(id string, tr transport.Transport) *session {
	log := a.log.With("session", id)
	model := world.NewModel(a.cfg.TeamName)
	var opts []command.Option
	if a.cfg.SayLimit > 0 {
		burst := a.cfg.SayBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, command.WithSayLimit(a.cfg.SayLimit, burst))
	}
	queue := command.NewQueue(command.DefaultLimits(), opts...)
	return &session{
		id:      id,
		log:     log,
		tr:      tr,
		model:   model,
		handler: handler.New(model, log),
		queue:   queue,
		env:     NewEnv(id, log, model, queue),
		start:   make(chan struct{}),
		fresh:   make(chan struct{}, 1),
		flush:   make(chan struct{}, 1),
		joined:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// abort tears down a session that never reached Connected.
func (a *Agent) abort(s *session) {
	s.cancel()
	_ = s.tr.Close()
	select {
	case <-s.done:
	case <-time.After(a.cfg.ShutdownTimeout):
		s.log.Warn("loops still running after failed connect")
	}
}

// release drops a stopped session so the agent can connect again.
func (a *Agent) release(s *session) {
	if err := s.tr.Send([]byte("(bye)")); err != nil {
		s.log.Debug("send bye", "error", err)
	}
	_ = s.tr.Close()
	a.state.Store(int32(Disconnected))
	s.log.Info("released stopped session", "error", s.err)
}

// Play runs the policy's setup and starts the decide loop.
func (a *Agent) Play() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.State() {
	case Playing:
		return ErrAlreadyPlaying
	case Stopped:
		return fmt.Errorf("agent stopped: %w", a.cur.Load().failure())
	case Connected:
	default:
		return ErrNotConnected
	}
	s := a.cur.Load()
	if err := s.failure(); err != nil {
		return fmt.Errorf("agent stopped: %w", err)
	}
	if a.cfg.Policy == nil {
		return errors.New("agent: no policy configured")
	}
	if err := a.cfg.Policy.Setup(s.env); err != nil {
		return fmt.Errorf("policy setup: %w", err)
	}
	close(s.start)
	a.state.Store(int32(Playing))
	s.log.Info("playing")
	return nil
}

// Disconnect stops both loops, says goodbye and closes the transport. It is
// a no-op when not connected. If the loops do not stop within the shutdown
// timeout the agent is reset anyway and ErrShutdownTimeout is returned.
func (a *Agent) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.State() == Disconnected {
		return nil
	}
	a.state.Store(int32(Disconnecting))
	defer a.state.Store(int32(Disconnected))

	s := a.cur.Load()
	s.cancel()
	if err := s.tr.Send([]byte("(bye)")); err != nil {
		s.log.Debug("send bye", "error", err)
	}
	if err := s.tr.Close(); err != nil {
		s.log.Debug("close transport", "error", err)
	}

	timer := time.NewTimer(a.cfg.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		s.log.Info("disconnected")
		return nil
	case <-timer.C:
		s.log.Warn("loops did not stop, abandoning them", "timeout", a.cfg.ShutdownTimeout)
		return ErrShutdownTimeout
	}
}

// Done is closed when the current session's loops have stopped, either
// through Disconnect or a fatal error. It is nil before the first Connect.
func (a *Agent) Done() <-chan struct{} {
	s := a.cur.Load()
	if s == nil {
		return nil
	}
	return s.done
}

// Err reports the fatal error that stopped the current session, if any.
func (a *Agent) Err() error {
	s := a.cur.Load()
	if s == nil {
		return nil
	}
	return s.failure()
}

func (s *session) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) failure() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Model is the current session's world model, nil before the first Connect.
func (a *Agent) Model() *world.Model {
	s := a.cur.Load()
	if s == nil {
		return nil
	}
	return s.model
}

// Session is the id of the current connection.
func (a *Agent) Session() string {
	s := a.cur.Load()
	if s == nil {
		return ""
	}
	return s.id
}

func (a *Agent) Stats() Stats {
	st := Stats{State: a.State().String()}
	s := a.cur.Load()
	if s == nil {
		return st
	}
	ws := s.model.State()
	st.Session = s.id
	st.Datagrams = s.datagrams.Load()
	st.Messages = s.messages.Load()
	st.Thinks = s.thinks.Load()
	st.Updates = s.model.Updates()
	st.Commands = s.queue.Stats()
	st.Side = ws.Side
	st.Unum = ws.UniformNumber
	st.PlayMode = ws.PlayMode
	st.Time = ws.Time
	return st
}
