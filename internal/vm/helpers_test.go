package vm

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// program encodes opcodes as a big-endian ROM image.
func program(opcodes ...uint16) []byte {
	bs := make([]byte, 0, 2*len(opcodes))
	for _, op := range opcodes {
		bs = append(bs, byte(op>>8), byte(op))
	}
	return bs
}

func newMachine(t *testing.T, opcodes ...uint16) *Machine {
	t.Helper()

	vm, err := New(program(opcodes...), WithSeed(1))
	assert.NoError(t, err)
	return vm
}

// step executes n instructions, failing the test on error.
func step(t *testing.T, vm *Machine, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		assert.NoError(t, vm.Step())
	}
}

type inputEvent struct {
	key  Key
	down bool
}

// fakeHAL replays scripted input, one batch per ReadInput call, and records
// what the machine presented.
type fakeHAL struct {
	input    [][]inputEvent
	readErrs map[int]error

	reads  int
	draws  int
	waits  int
	tones  []bool
	frames []uint64
}

func (h *fakeHAL) ReadInput(keyDown func(Key), keyUp func(Key)) error {
	call := h.reads
	h.reads++

	if err, ok := h.readErrs[call]; ok {
		return err
	}

	if call < len(h.input) {
		for _, e := range h.input[call] {
			if e.down {
				keyDown(e.key)
			} else {
				keyUp(e.key)
			}
		}
	}
	return nil
}

func (h *fakeHAL) Draw(display *Display) error {
	h.draws++
	h.frames = append(h.frames, display.Generation())
	return nil
}

func (h *fakeHAL) SetTone(active bool) error {
	h.tones = append(h.tones, active)
	return nil
}

func (h *fakeHAL) WaitForNextFrame() error {
	h.waits++
	return nil
}
