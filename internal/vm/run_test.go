package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestNew(t *testing.T) {
	vm := newMachine(t, 0x6005)

	s := vm.State()
	assert.Equal(t, ProgramStart, s.PC)
	assert.Equal(t, uint16(0), s.I)
	assert.Equal(t, 0, s.SP)
	assert.Equal(t, Running, s.State)
	assert.Equal(t, [RegisterCount]uint8{}, s.V)
	assert.Equal(t, uint8(0xF0), vm.Memory().Read(0))
	assert.Equal(t, 0, litPixels(vm.Display()))
}

func TestNewProgramTooLarge(t *testing.T) {
	_, err := New(make([]byte, MaxProgramSize+1))
	assert.True(t, errors.Is(err, ErrProgramTooLarge))
}

func TestTickExample(t *testing.T) {
	vm := newMachine(t, 0x6005, 0x7003, 0x00E0)
	vm.display.Draw(0, 0, []uint8{0xFF})
	hal := &fakeHAL{}

	for i := 0; i < 3; i++ {
		assert.NoError(t, vm.Tick(hal))
	}

	assert.Equal(t, uint8(8), vm.registers[0])
	assert.Equal(t, 0, litPixels(&vm.display))
	assert.Equal(t, Terminated, vm.state)
	assert.Equal(t, 3, hal.reads)
	assert.Equal(t, 3, hal.draws)
	assert.Equal(t, []bool{false, false, false}, hal.tones)
}

func TestTickOrder(t *testing.T) {
	// 0x200: sound timer = v2
	// 0x202: jmp 0x202
	vm := newMachine(t, 0xF218, 0x1202)
	vm.registers[2] = 2
	vm.delayTimer.Set(5)
	hal := &fakeHAL{}

	// tick 1: timer ticks before the instruction sets it, so the tone stays off
	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, uint8(4), vm.delayTimer.Value())
	assert.Equal(t, uint8(2), vm.soundTimer.Value())

	assert.NoError(t, vm.Tick(hal))
	assert.NoError(t, vm.Tick(hal))
	assert.NoError(t, vm.Tick(hal))

	assert.Equal(t, []bool{false, true, false, false}, hal.tones)
	assert.Equal(t, uint8(1), vm.delayTimer.Value())
}

func TestTickUnknownOpcode(t *testing.T) {
	vm := newMachine(t, 0xFFFF, 0x6001)
	hal := &fakeHAL{}

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, ProgramStart+InstructionSize, vm.pc)
	assert.Equal(t, [RegisterCount]uint8{}, vm.registers)
	assert.Equal(t, Running, vm.state)

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, uint8(1), vm.registers[0])
}

func TestKeyInput(t *testing.T) {
	// skip the jump back while key 5 is held
	// 0x200: v0 = 5
	// 0x202: skpr v0
	// 0x204: jmp 0x202
	// 0x206: v1 = 1
	vm := newMachine(t, 0x6005, 0xE09E, 0x1202, 0x6101)
	hal := &fakeHAL{
		input: [][]inputEvent{
			nil,
			nil,
			nil,
			{{key: Key5, down: true}},
			nil,
		},
	}

	for i := 0; i < 3; i++ {
		assert.NoError(t, vm.Tick(hal))
	}
	assert.Equal(t, uint16(0x202), vm.pc)
	assert.False(t, vm.KeyPressed(Key5))

	assert.NoError(t, vm.Tick(hal))
	assert.True(t, vm.KeyPressed(Key5))
	assert.Equal(t, uint16(0x206), vm.pc)

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, uint8(1), vm.registers[1])
}

func TestKeyWait(t *testing.T) {
	// 0x200: v3 = key
	// 0x202: v4 = 1
	vm := newMachine(t, 0xF30A, 0x6401)
	vm.delayTimer.Set(10)
	vm.registers[3] = 0x77
	hal := &fakeHAL{
		input: [][]inputEvent{
			{{key: Key2, down: true}}, // held before the wait starts
			nil,
			{{key: Key2, down: false}},
			{{key: KeyE, down: true}},
		},
	}

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, BlockedOnKey, vm.state)
	assert.Equal(t, ProgramStart, vm.pc)
	assert.Equal(t, uint8(9), vm.delayTimer.Value())
	assert.Equal(t, 1, hal.draws)

	// blocked: no timers, no frames, no progress, a held key or a release does not count
	assert.NoError(t, vm.Tick(hal))
	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, BlockedOnKey, vm.state)
	assert.Equal(t, ProgramStart, vm.pc)
	assert.Equal(t, uint8(0x77), vm.registers[3])
	assert.Equal(t, uint8(9), vm.delayTimer.Value())
	assert.Equal(t, 1, hal.draws)
	assert.Equal(t, 1, len(hal.tones))

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, Running, vm.state)
	assert.Equal(t, uint8(KeyE), vm.registers[3])
	assert.Equal(t, ProgramStart+InstructionSize, vm.pc)

	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, uint8(1), vm.registers[4])
	assert.Equal(t, uint8(8), vm.delayTimer.Value())
	assert.Equal(t, Terminated, vm.state)
}

func TestKeyWaitQuit(t *testing.T) {
	vm := newMachine(t, 0xF00A)
	hal := &fakeHAL{readErrs: map[int]error{3: ErrQuit}}

	err := vm.Run(context.Background(), hal)
	assert.True(t, errors.Is(err, ErrQuit))
	assert.Equal(t, BlockedOnKey, vm.state)
	assert.Equal(t, 4, hal.reads)
}

func TestRunUntilProgramEnd(t *testing.T) {
	vm := newMachine(t, 0x6001, 0x6102, 0x6203)
	hal := &fakeHAL{}

	assert.NoError(t, vm.Run(context.Background(), hal))
	assert.Equal(t, Terminated, vm.state)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8(vm.registers[:3]))
	assert.Equal(t, 3, hal.waits)

	// ticking a finished machine is a no-op
	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, 3, hal.reads)
}

func TestRunEmptyProgram(t *testing.T) {
	vm := newMachine(t)
	hal := &fakeHAL{}

	assert.NoError(t, vm.Run(context.Background(), hal))
	assert.Equal(t, Terminated, vm.state)
	assert.Equal(t, 0, hal.reads)
}

func TestRunJumpBelowProgramStart(t *testing.T) {
	// 0x200: jmp 0x000
	vm := newMachine(t, 0x1000)
	hal := &fakeHAL{}

	err := vm.Run(context.Background(), hal)
	assert.True(t, errors.Is(err, ErrPCOutOfProgram))
	assert.Equal(t, Terminated, vm.state)
	assert.Equal(t, uint16(0), vm.pc)
	assert.Equal(t, 1, hal.draws)
	assert.Equal(t, [RegisterCount]uint8{}, vm.registers)

	// font bytes are never executed
	assert.NoError(t, vm.Tick(hal))
	assert.Equal(t, 1, hal.reads)
}

func TestRunQuit(t *testing.T) {
	// 0x200: jmp 0x200
	vm := newMachine(t, 0x1200)
	hal := &fakeHAL{readErrs: map[int]error{5: ErrQuit}}

	err := vm.Run(context.Background(), hal)
	assert.True(t, errors.Is(err, ErrQuit))
	assert.Equal(t, 5, hal.draws)
}

func TestRunCancelled(t *testing.T) {
	vm := newMachine(t, 0x1200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := vm.Run(ctx, &fakeHAL{})
	assert.True(t, errors.Is(err, ErrQuit))
}

func TestRunStackOverflow(t *testing.T) {
	vm := newMachine(t, 0x2200)

	err := vm.Run(context.Background(), &fakeHAL{})
	assert.True(t, errors.Is(err, ErrStackOverflow))
}

func TestReset(t *testing.T) {
	vm := newMachine(t, 0x6001, 0x2200)
	hal := &fakeHAL{readErrs: map[int]error{4: ErrReboot}}

	err := vm.Run(context.Background(), hal)
	assert.True(t, errors.Is(err, ErrReboot))
	assert.Equal(t, uint8(1), vm.registers[0])

	vm.memory.Write(ProgramStart, 0xFF)
	assert.NoError(t, vm.Reset())

	s := vm.State()
	assert.Equal(t, ProgramStart, s.PC)
	assert.Equal(t, 0, s.SP)
	assert.Equal(t, uint8(0), s.V[0])
	assert.Equal(t, Running, s.State)
	assert.Equal(t, uint8(0x60), vm.memory.Read(ProgramStart))
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "blocked-on-key", BlockedOnKey.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "RunState(9)", RunState(9).String())
}
