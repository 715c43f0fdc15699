package config

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/spf13/pflag"
)

func TestBindFlags(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	err := fs.Parse([]string{"-v", "--frontend", "TERM", "-r", "60", "--scale=8", "-m", "--seed", "42"})
	assert.NoError(t, err)

	assert.True(t, cfg.Verbose)
	assert.Equal(t, FrontendTerminal, cfg.Frontend)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 8, cfg.Scale)
	assert.True(t, cfg.Mute)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.NoError(t, cfg.Validate())
}

func TestBindFlagsDefaults(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)

	assert.NoError(t, fs.Parse(nil))
	assert.Equal(t, FrontendSDL, cfg.Frontend)
	assert.Equal(t, DefaultTickRate, cfg.TickRate)
	assert.Equal(t, DefaultScale, cfg.Scale)
	assert.False(t, cfg.Mute)
}

func TestUnknownFrontend(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	cfg.BindFlags(fs)

	err := fs.Parse([]string{"--frontend", "opengl"})
	assert.True(t, err != nil)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"max tick rate", func(c *Config) { c.TickRate = MaxTickRate }, true},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }, false},
		{"tick rate too high", func(c *Config) { c.TickRate = MaxTickRate + 1 }, false},
		{"zero scale", func(c *Config) { c.Scale = 0 }, false},
		{"scale too high", func(c *Config) { c.Scale = MaxScale + 1 }, false},
		{"empty frontend", func(c *Config) { c.Frontend = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()

	logger := cfg.Logger(&buf)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))

	cfg.Verbose = true
	logger = cfg.Logger(&buf)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger.Debug("hello", "n", 1)
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("msg=hello n=1")))
}
