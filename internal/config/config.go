// Package config holds the command line options of the interpreter.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

const (
	DefaultTickRate = 500
	DefaultScale    = 16

	MaxTickRate = 10000
	MaxScale    = 64
)

var ErrInvalidConfig = errors.New("invalid config")

// Frontend selects the host implementation.
type Frontend string

const (
	FrontendSDL      Frontend = "sdl"
	FrontendTerminal Frontend = "term"
)

var frontends = []Frontend{FrontendSDL, FrontendTerminal}

func (f *Frontend) String() string {
	return string(*f)
}

func (f *Frontend) Set(s string) error {
	for _, known := range frontends {
		if strings.EqualFold(s, string(known)) {
			*f = known
			return nil
		}
	}
	return fmt.Errorf("unknown frontend %q, expected one of %s", s, frontendNames())
}

func (f *Frontend) Type() string {
	return "frontend"
}

func frontendNames() string {
	names := make([]string, len(frontends))
	for i, f := range frontends {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

type Config struct {
	ROMPath  string
	Verbose  bool
	Frontend Frontend
	TickRate int
	Scale    int
	Mute     bool
	Seed     uint64
}

func Default() Config {
	return Config{
		Frontend: FrontendSDL,
		TickRate: DefaultTickRate,
		Scale:    DefaultScale,
	}
}

// BindFlags registers the options on fs, using the current values as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "enable verbose logging")
	fs.VarP(&c.Frontend, "frontend", "f", fmt.Sprintf("frontend to run on (%s)", frontendNames()))
	fs.IntVarP(&c.TickRate, "tick-rate", "r", c.TickRate, "instructions executed per second")
	fs.IntVarP(&c.Scale, "scale", "s", c.Scale, "window pixels per screen pixel (sdl frontend)")
	fs.BoolVarP(&c.Mute, "mute", "m", c.Mute, "disable the tone")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed, 0 picks one from the clock")
}

func (c *Config) Validate() error {
	if c.TickRate < 1 || c.TickRate > MaxTickRate {
		return fmt.Errorf("%w: tick rate %d out of range [1, %d]", ErrInvalidConfig, c.TickRate, MaxTickRate)
	}

	if c.Scale < 1 || c.Scale > MaxScale {
		return fmt.Errorf("%w: scale %d out of range [1, %d]", ErrInvalidConfig, c.Scale, MaxScale)
	}

	var f Frontend
	if err := f.Set(string(c.Frontend)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Logger creates the process logger.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if c.Verbose {
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
