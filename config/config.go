// Package config loads agent settings from KICKOFF_* environment variables,
// then lets command-line flags override them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server  string `env:"KICKOFF_SERVER" envDefault:"localhost:6000"`
	Team    string `env:"KICKOFF_TEAM" envDefault:"kickoff"`
	Players int    `env:"KICKOFF_PLAYERS" envDefault:"1"`
	Version int    `env:"KICKOFF_VERSION" envDefault:"11"`

	Policy string `env:"KICKOFF_POLICY" envDefault:"random"`
	Script string `env:"KICKOFF_SCRIPT"`
	Seed   int64  `env:"KICKOFF_SEED" envDefault:"0"`

	InitTimeout     time.Duration `env:"KICKOFF_INIT_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"KICKOFF_SHUTDOWN_TIMEOUT" envDefault:"1s"`
	ReadTimeout     time.Duration `env:"KICKOFF_READ_TIMEOUT" envDefault:"500ms"`

	// SayPerSecond of 0 leaves say unthrottled.
	SayPerSecond float64 `env:"KICKOFF_SAY_PER_SECOND" envDefault:"0"`
	SayBurst     int     `env:"KICKOFF_SAY_BURST" envDefault:"1"`

	Capture string `env:"KICKOFF_CAPTURE"`

	LogFormat     string        `env:"KICKOFF_LOG_FORMAT" envDefault:"text"`
	LogLevel      string        `env:"KICKOFF_LOG_LEVEL" envDefault:"info"`
	TUI           bool          `env:"KICKOFF_TUI" envDefault:"false"`
	StatsInterval time.Duration `env:"KICKOFF_STATS_INTERVAL" envDefault:"5s"`
}

// ParseEnv fills target from the environment. A nil environ reads the
// process environment.
func ParseEnv(target any, environ map[string]string) error {
	if err := env.ParseWithOptions(target, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the process environment and then args.
func Load(args []string) (Config, error) {
	return LoadFrom(args, nil)
}

// LoadFrom is Load with an explicit environment.
func LoadFrom(args []string, environ map[string]string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg, environ); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Server, "server", cfg.Server, "Server address: host:port for UDP, ws:// or wss:// URL for websocket")
	fs.StringVar(&cfg.Team, "team", cfg.Team, "Team name sent in init")
	fs.IntVar(&cfg.Players, "players", cfg.Players, "Number of players to connect")
	fs.IntVar(&cfg.Version, "version", cfg.Version, "Protocol version sent in init")
	fs.StringVar(&cfg.Policy, "policy", cfg.Policy, "Policy: random or lua")
	fs.StringVar(&cfg.Script, "script", cfg.Script, "Lua script for the lua policy")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for the random policy (0 picks one from the clock)")
	fs.DurationVar(&cfg.InitTimeout, "init-timeout", cfg.InitTimeout, "How long to wait for the init reply")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "How long to wait for loops to stop")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Receive poll interval")
	fs.Float64Var(&cfg.SayPerSecond, "say-rate", cfg.SayPerSecond, "Say messages per second (0 for no limit)")
	fs.IntVar(&cfg.SayBurst, "say-burst", cfg.SayBurst, "Say burst size")
	fs.StringVar(&cfg.Capture, "capture", cfg.Capture, "Write wire traffic to this parquet file")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json or pretty")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Show a live status table instead of periodic stats logs")
	fs.DurationVar(&cfg.StatsInterval, "stats-every", cfg.StatsInterval, "Stats log interval when the status table is off")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server) == "" {
		errs = append(errs, errors.New("server is required"))
	}
	if strings.TrimSpace(c.Team) == "" || strings.ContainsAny(c.Team, "() \t\r\n\"") {
		errs = append(errs, fmt.Errorf("team name %q must be one non-empty token", c.Team))
	}
	if c.Players < 1 || c.Players > 11 {
		errs = append(errs, fmt.Errorf("players %d not in [1, 11]", c.Players))
	}
	if c.Version < 1 {
		errs = append(errs, fmt.Errorf("version %d must be positive", c.Version))
	}
	switch strings.ToLower(c.Policy) {
	case "", "random":
	case "lua":
		if c.Script == "" {
			errs = append(errs, errors.New("lua policy needs a script"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", c.Policy))
	}
	if c.InitTimeout <= 0 || c.ShutdownTimeout <= 0 || c.ReadTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.SayPerSecond < 0 {
		errs = append(errs, fmt.Errorf("say rate %g must not be negative", c.SayPerSecond))
	}
	if c.SayPerSecond > 0 && c.SayBurst < 1 {
		errs = append(errs, fmt.Errorf("say burst %d must be at least 1", c.SayBurst))
	}
	return errors.Join(errs...)
}
