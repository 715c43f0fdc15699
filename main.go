package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/kapitanov/chip8interp/internal/config"
	"github.com/kapitanov/chip8interp/internal/hal"
	"github.com/kapitanov/chip8interp/internal/rom"
	"github.com/kapitanov/chip8interp/internal/term"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/spf13/cobra"
)

func init() {
	// SDL must be driven from the main thread
	runtime.LockOSThread()
}

// host is a frontend the machine runs on.
type host interface {
	vm.HAL
	Shutdown()
}

func main() {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s [PATH_TO_ROM_FILE]", filepath.Base(os.Args[0])),
		Short:         "Run a CHIP-8 program",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cfg.BindFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(cfg.Logger(os.Stderr))

		if err := cfg.Validate(); err != nil {
			return err
		}

		if len(args) > 0 {
			cfg.ROMPath = args[0]
		} else {
			path, err := rom.Pick()
			if err != nil {
				return err
			}
			cfg.ROMPath = path
		}

		bs, err := rom.Load(cfg.ROMPath)
		if err != nil {
			return err
		}

		var opts []vm.Option
		if cfg.Seed != 0 {
			opts = append(opts, vm.WithSeed(cfg.Seed))
		}

		machine, err := vm.New(bs, opts...)
		if err != nil {
			return err
		}

		h, err := newHost(&cfg)
		if err != nil {
			return err
		}
		defer h.Shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, machine, h)
	}

	cmd.SetArgs(os.Args[1:])
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func newHost(cfg *config.Config) (host, error) {
	switch cfg.Frontend {
	case config.FrontendTerminal:
		t, err := term.New(cfg.TickRate)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize terminal: %w", err)
		}
		return t, nil

	default:
		h, err := hal.New(hal.Options{
			Scale:    cfg.Scale,
			TickRate: cfg.TickRate,
			Mute:     cfg.Mute,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to initialize hal: %w", err)
		}
		return h, nil
	}
}

func run(ctx context.Context, machine *vm.Machine, h vm.HAL) error {
	for {
		err := machine.Run(ctx, h)

		if errors.Is(err, vm.ErrQuit) {
			return nil
		}

		if errors.Is(err, vm.ErrReboot) {
			slog.Info("reboot")
			if err := machine.Reset(); err != nil {
				return err
			}
			continue
		}

		return err
	}
}
