package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrReboot         = errors.New("reboot")
	ErrQuit           = errors.New("quit")
	ErrPCOutOfProgram = errors.New("pc below program start")
)

// HAL is the boundary to the host: input events, frame presentation, the
// tone device and tick pacing.
type HAL interface {
	// ReadInput drains pending input events. It returns ErrQuit or ErrReboot
	// when the user asks for it.
	ReadInput(keyDown func(Key), keyUp func(Key)) error
	Draw(display *Display) error
	SetTone(active bool) error
	WaitForNextFrame() error
}

// Run ticks the machine until the program runs off its end, the host asks to
// quit, or ctx is cancelled.
func (vm *Machine) Run(ctx context.Context, hal HAL) error {
	for vm.state != Terminated {
		select {
		case <-ctx.Done():
			slog.Debug("run cancelled", "err", ctx.Err())
			return ErrQuit
		default:
		}

		if err := vm.Tick(hal); err != nil {
			return err
		}

		if err := hal.WaitForNextFrame(); err != nil {
			return err
		}
	}

	slog.Info("program finished", "pc", fmt.Sprintf("0x%04x", vm.pc))
	return nil
}

// Tick performs one run loop iteration. While running that is: poll input,
// tick both timers, execute one instruction and present the frame. While
// blocked on a key only input is polled.
func (vm *Machine) Tick(hal HAL) error {
	switch vm.state {
	case Terminated:
		return nil

	case BlockedOnKey:
		if err := hal.ReadInput(vm.keyDown, vm.keyUp); err != nil {
			return err
		}
		return vm.checkProgramBounds()
	}

	if err := vm.checkProgramBounds(); err != nil || vm.state == Terminated {
		return err
	}

	if err := hal.ReadInput(vm.keyDown, vm.keyUp); err != nil {
		return err
	}

	vm.delayTimer.Tick()
	vm.soundTimer.Tick()
	if err := hal.SetTone(vm.soundTimer.Active()); err != nil {
		return err
	}

	if err := vm.Step(); err != nil {
		return err
	}

	if err := hal.Draw(&vm.display); err != nil {
		return err
	}

	return vm.checkProgramBounds()
}

// checkProgramBounds terminates the machine once pc leaves the loaded
// program. Running off the end is a normal finish; landing below
// ProgramStart (interpreter and font area) is reported as an error.
func (vm *Machine) checkProgramBounds() error {
	if vm.state != Running {
		return nil
	}

	switch {
	case vm.pc < ProgramStart:
		vm.state = Terminated
		return fmt.Errorf("%w: pc 0x%04x", ErrPCOutOfProgram, vm.pc)

	case vm.pc >= vm.memory.ProgramEnd():
		slog.Debug("pc past program end", "pc", fmt.Sprintf("0x%04x", vm.pc), "end", fmt.Sprintf("0x%04x", vm.memory.ProgramEnd()))
		vm.state = Terminated
	}

	return nil
}

func (vm *Machine) keyDown(key Key) {
	key &= 0x0F
	vm.keypad[key] = true

	if vm.state == BlockedOnKey {
		slog.Debug("key wait done", "key", fmt.Sprintf("%X", uint8(key)), "reg", fmt.Sprintf("v%x", vm.waitReg))
		vm.registers[vm.waitReg] = uint8(key)
		vm.state = Running
		vm.pc += InstructionSize
	}
}

func (vm *Machine) keyUp(key Key) {
	vm.keypad[key&0x0F] = false
}
