package agent

import (
	"log/slog"

	"github.com/brensch/kickoff/command"
	"github.com/brensch/kickoff/world"
)

// Policy decides what the agent does. Setup runs once when play starts;
// Think runs on the decide loop once per batch of fresh data and must not
// block for long, since commands wait for it.
type Policy interface {
	Setup(env *Env) error
	Think(env *Env) error
}

// PolicyFunc adapts a think function with no setup.
type PolicyFunc func(env *Env) error

func (f PolicyFunc) Setup(*Env) error     { return nil }
func (f PolicyFunc) Think(env *Env) error { return f(env) }

// Env is what a policy sees: read access to the model and write access to
// the command queue.
type Env struct {
	Session string
	Log     *slog.Logger

	model *world.Model
	queue *command.Queue
}

// NewEnv builds an environment over a model and queue. Agents build their
// own; this is for driving a policy without a connection.
func NewEnv(session string, log *slog.Logger, model *world.Model, queue *command.Queue) *Env {
	if log == nil {
		log = slog.Default()
	}
	return &Env{Session: session, Log: log, model: model, queue: queue}
}

func (e *Env) Model() *world.Model { return e.model }

// World is the current world snapshot.
func (e *Env) World() *world.State { return e.model.State() }

// Body is the current sense_body snapshot.
func (e *Env) Body() *world.Body { return e.model.Body() }

func (e *Env) Params() *world.ServerParameters { return e.model.ServerParams() }

// Enqueue validates and queues a command for the next flush.
func (e *Env) Enqueue(c command.Command) error { return e.queue.Enqueue(c) }
