package vm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	RegisterCount = 16
	KeyCount      = 16

	InstructionSize = 2

	flagRegister = 0x0F
)

// RunState is the state of the run loop.
type RunState uint8

const (
	Running RunState = iota
	BlockedOnKey
	Terminated
)

func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case BlockedOnKey:
		return "blocked-on-key"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("RunState(%d)", uint8(s))
	}
}

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Machine is a CHIP-8 interpreter: memory, registers, timers, screen and
// keypad, plus the run loop state.
type Machine struct {
	program []byte

	memory    *Memory
	registers [RegisterCount]uint8 // V registers (V0-VF)
	stack     Stack

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer Timer
	soundTimer Timer

	display Display
	keypad  [KeyCount]bool

	state   RunState
	waitReg uint8 // register receiving the key while BlockedOnKey

	rand *rand.Rand
}

type Option func(*Machine)

// WithRand sets the random source used by Cxkk.
func WithRand(r *rand.Rand) Option {
	return func(vm *Machine) {
		vm.rand = r
	}
}

// WithSeed seeds the random source used by Cxkk.
func WithSeed(seed uint64) Option {
	return func(vm *Machine) {
		vm.rand = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	}
}

func New(program []byte, opts ...Option) (*Machine, error) {
	vm := &Machine{program: program}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.rand == nil {
		seed := uint64(time.Now().UnixNano())
		WithSeed(seed)(vm)
	}

	if err := vm.Reset(); err != nil {
		return nil, err
	}
	return vm, nil
}

// Reset reloads the program and puts the machine into its power-on state.
func (vm *Machine) Reset() error {
	memory, err := NewMemory(vm.program)
	if err != nil {
		return fmt.Errorf("unable to load program: %w", err)
	}

	vm.memory = memory
	vm.registers = [RegisterCount]uint8{}
	vm.stack.reset()
	vm.pc = ProgramStart
	vm.index = 0
	vm.delayTimer.Set(0)
	vm.soundTimer.Set(0)
	vm.display.Clear()
	vm.keypad = [KeyCount]bool{}
	vm.state = Running
	vm.waitReg = 0

	return nil
}

// Snapshot is a copy of the CPU visible state.
type Snapshot struct {
	V          [RegisterCount]uint8
	I          uint16
	PC         uint16
	SP         int
	DelayTimer uint8
	SoundTimer uint8
	State      RunState
}

func (vm *Machine) State() Snapshot {
	return Snapshot{
		V:          vm.registers,
		I:          vm.index,
		PC:         vm.pc,
		SP:         vm.stack.Len(),
		DelayTimer: vm.delayTimer.Value(),
		SoundTimer: vm.soundTimer.Value(),
		State:      vm.state,
	}
}

func (vm *Machine) Memory() *Memory {
	return vm.memory
}

func (vm *Machine) Display() *Display {
	return &vm.display
}

// ToneActive reports whether the sound timer is running.
func (vm *Machine) ToneActive() bool {
	return vm.soundTimer.Active()
}

func (vm *Machine) KeyPressed(key Key) bool {
	return vm.keypad[key&0x0F]
}
