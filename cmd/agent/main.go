package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/brensch/kickoff/agent"
	"github.com/brensch/kickoff/capture"
	"github.com/brensch/kickoff/config"
	"github.com/brensch/kickoff/logging"
	"github.com/brensch/kickoff/policy"
	"github.com/brensch/kickoff/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	var logOut io.Writer = os.Stderr
	if cfg.TUI {
		// The status table owns the terminal.
		f, err := tea.LogToFile("kickoff-agent.log", "")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log, err := logging.New(logOut, cfg.LogFormat, level)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *capture.Recorder
	if cfg.Capture != "" {
		rec, err = capture.Create(cfg.Capture)
		if err != nil {
			return err
		}
		log.Info("capturing wire traffic", "path", cfg.Capture)
	}

	team, err := newTeam(cfg, log, rec)
	if err != nil {
		return err
	}

	startErr := team.start(ctx)
	if startErr == nil {
		if cfg.TUI {
			startErr = runTUI(ctx, team)
		} else {
			team.logStats(ctx, cfg.StatsInterval)
		}
	}

	team.stop()
	if rec != nil {
		rows, err := rec.Close()
		if err != nil {
			log.Error("close capture", "error", err)
		} else {
			log.Info("capture written", "path", rec.Path(), "rows", rows)
		}
	}
	return startErr
}

// team is the set of players started by one process.
type team struct {
	name     string
	log      *slog.Logger
	agents   []*agent.Agent
	policies []agent.Policy
}

func newTeam(cfg config.Config, log *slog.Logger, rec *capture.Recorder) (*team, error) {
	t := &team{name: cfg.Team, log: log}
	dialer := transport.NewDialer(cfg.Server, cfg.ReadTimeout)
	for i := 0; i < cfg.Players; i++ {
		seed := cfg.Seed
		if seed != 0 {
			seed += int64(i)
		}
		p, err := policy.ByName(cfg.Policy, cfg.Script, seed)
		if err != nil {
			t.closePolicies()
			return nil, err
		}
		t.policies = append(t.policies, p)

		ac := agent.DefaultConfig()
		ac.TeamName = cfg.Team
		ac.Version = cfg.Version
		ac.Dialer = dialer
		ac.Policy = p
		ac.InitTimeout = cfg.InitTimeout
		ac.ShutdownTimeout = cfg.ShutdownTimeout
		if cfg.SayPerSecond > 0 {
			ac.SayLimit = rate.Limit(cfg.SayPerSecond)
			ac.SayBurst = cfg.SayBurst
		}
		if rec != nil {
			ac.Wrap = func(session string, tr transport.Transport) transport.Transport {
				return capture.NewTap(tr, rec, session)
			}
		}
		ac.Logger = log.With("player", i+1)
		t.agents = append(t.agents, agent.New(ac))
	}
	return t, nil
}

// start connects players one at a time, so the server hands out uniform
// numbers in order, and sets each one playing.
func (t *team) start(ctx context.Context) error {
	for i, a := range t.agents {
		if err := a.Connect(ctx); err != nil {
			return fmt.Errorf("player %d: connect: %w", i+1, err)
		}
		if err := a.Play(); err != nil {
			return fmt.Errorf("player %d: play: %w", i+1, err)
		}
	}
	return nil
}

// allDone is closed once every connected player has stopped.
func (t *team) allDone() <-chan struct{} {
	out := make(chan struct{})
	go func() {
		for _, a := range t.agents {
			if d := a.Done(); d != nil {
				<-d
			}
		}
		close(out)
	}()
	return out
}

func (t *team) teamName() string { return t.name }

func (t *team) stats() []agent.Stats {
	out := make([]agent.Stats, len(t.agents))
	for i, a := range t.agents {
		out[i] = a.Stats()
	}
	return out
}

func (t *team) logStats(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	done := t.allDone()
	for {
		select {
		case <-ctx.Done():
			t.log.Info("shutdown requested")
			return
		case <-done:
			t.log.Warn("all players stopped")
			return
		case <-ticker.C:
			for i, st := range t.stats() {
				t.log.Info("stats",
					"player", i+1,
					"state", st.State,
					"time", st.Time,
					"play_mode", string(st.PlayMode),
					"datagrams", st.Datagrams,
					"thinks", st.Thinks,
					"sent", st.Commands.Sent,
					"dropped", st.Commands.Dropped,
				)
			}
		}
	}
}

func (t *team) stop() {
	var wg sync.WaitGroup
	for i, a := range t.agents {
		wg.Add(1)
		go func(i int, a *agent.Agent) {
			defer wg.Done()
			err := a.Disconnect()
			if err != nil {
				t.log.Warn("disconnect", "player", i+1, "error", err)
			}
			if cause := a.Err(); cause != nil && !errors.Is(cause, context.Canceled) {
				t.log.Error("player stopped with error", "player", i+1, "error", cause)
			}
		}(i, a)
	}
	wg.Wait()
	t.closePolicies()
}

func (t *team) closePolicies() {
	for _, p := range t.policies {
		if c, ok := p.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
