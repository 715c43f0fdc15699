package vm

import (
	"errors"
	"fmt"
)

const StackSize = 16

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// Stack holds subroutine return addresses. It never grows past StackSize.
type Stack struct {
	entries [StackSize]uint16
	sp      int
}

func (s *Stack) Push(addr uint16) error {
	if s.sp >= StackSize {
		return fmt.Errorf("%w: push 0x%04x with %d frames", ErrStackOverflow, addr, s.sp)
	}

	s.entries[s.sp] = addr
	s.sp++
	return nil
}

func (s *Stack) Pop() (uint16, error) {
	if s.sp == 0 {
		return 0, ErrStackUnderflow
	}

	s.sp--
	return s.entries[s.sp], nil
}

// Len returns the number of frames on the stack.
func (s *Stack) Len() int {
	return s.sp
}

func (s *Stack) reset() {
	s.entries = [StackSize]uint16{}
	s.sp = 0
}
