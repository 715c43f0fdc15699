package vm

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	MemorySize = 4096

	ProgramStart   = uint16(0x200)
	MaxProgramSize = MemorySize - int(ProgramStart)

	FontStart      = uint16(0x000)
	FontSpriteSize = 5
)

var ErrProgramTooLarge = errors.New("program too large")

var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the 4K address space of the machine. The font table lives at
// FontStart and the program is loaded at ProgramStart.
type Memory struct {
	bytes       [MemorySize]uint8
	programSize int
}

// NewMemory builds a memory image with the font table and program loaded.
func NewMemory(program []byte) (*Memory, error) {
	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes, at most %d fit", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	m := &Memory{programSize: len(program)}

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(chip8Font))
	copy(m.bytes[FontStart:], chip8Font)

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	copy(m.bytes[ProgramStart:], program)

	return m, nil
}

// ProgramEnd is the first address past the loaded program.
func (m *Memory) ProgramEnd() uint16 {
	return ProgramStart + uint16(m.programSize)
}

// Read returns the byte at addr. Addresses wrap around the 4K space.
func (m *Memory) Read(addr uint16) uint8 {
	return m.bytes[addr%MemorySize]
}

// Write stores b at addr. Addresses wrap around the 4K space, so a write past
// 0xFFF lands in the font area.
func (m *Memory) Write(addr uint16, b uint8) {
	m.bytes[addr%MemorySize] = b
}

// Opcode fetches the big-endian instruction word at pc.
func (m *Memory) Opcode(pc uint16) uint16 {
	hi := m.Read(pc)
	lo := m.Read(pc + 1)

	return uint16(hi)<<8 | uint16(lo) // Op code is two bytes
}

func fontAddr(digit uint8) uint16 {
	return FontStart + uint16(digit)*FontSpriteSize
}
