package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrUnknownOpcode = errors.New("unknown opcode")

// Step fetches the instruction at PC and executes it. PC is advanced past
// the instruction before it runs, so jumps and skips work relative to the
// next instruction. Unknown opcodes are logged and skipped; only stack
// violations are returned as errors.
func (vm *Machine) Step() error {
	pc := vm.pc
	opcode := vm.memory.Opcode(pc)
	instr := decode(opcode)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"instr", instr.Name(opcode),
		)
	}

	vm.pc += InstructionSize

	err := instr.Execute(vm, opcode)
	if errors.Is(err, ErrUnknownOpcode) {
		slog.Warn("skip instruction",
			"pc", fmt.Sprintf("0x%04x", pc),
			"opcode", fmt.Sprintf("0x%04x", opcode),
			"err", err,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("pc 0x%04x: %s: %w", pc, instr.Name(opcode), err)
	}

	return nil
}

type instruction struct {
	Name    func(opcode uint16) string
	Execute func(vm *Machine, opcode uint16) error
}

func opX(opcode uint16) uint8 { return uint8((opcode & 0x0F00) >> 8) }
func opY(opcode uint16) uint8 { return uint8((opcode & 0x00F0) >> 4) }
func opN(opcode uint16) uint8 { return uint8(opcode & 0x000F) }
func opKK(opcode uint16) uint8 { return uint8(opcode & 0x00FF) }
func opNNN(opcode uint16) uint16 { return opcode & 0x0FFF }

func decode(opcode uint16) instruction {
	switch opcode & 0xF000 {
	case 0x0000:
		switch opcode {
		case 0x00E0:
			// 00E0 - Clear screen
			return clsInstruction

		case 0x00EE:
			// 00EE - Return from subroutine
			return rtsInstruction
		}

	case 0x1000:
		// 1NNN - Jumps to address NNN
		return jmpInstruction

	case 0x2000:
		// 2NNN - Calls subroutine at NNN
		return jsrInstruction

	case 0x3000:
		// 3XNN - Skips the next instruction if VX equals NN
		return skeq1Instruction

	case 0x4000:
		// 4XNN - Skips the next instruction if VX does not equal NN
		return skne1Instruction

	case 0x5000:
		// 5XY0 - Skips the next instruction if VX equals VY
		if opN(opcode) == 0 {
			return skeq2Instruction
		}

	case 0x6000:
		// 6XNN - Sets VX to NN
		return mov1Instruction

	case 0x7000:
		// 7XNN - Adds NN to VX, no carry
		return add1Instruction

	case 0x8000:
		// 8XY_
		switch opN(opcode) {
		case 0x0:
			return mov2Instruction
		case 0x1:
			return orInstruction
		case 0x2:
			return andInstruction
		case 0x3:
			return xorInstruction
		case 0x4:
			return add2Instruction
		case 0x5:
			return subInstruction
		case 0x6:
			return shrInstruction
		case 0x7:
			return rsbInstruction
		case 0xE:
			return shlInstruction
		}

	case 0x9000:
		// 9XY0 - Skips the next instruction if VX doesn't equal VY
		if opN(opcode) == 0 {
			return skne2Instruction
		}

	case 0xA000:
		// ANNN - Sets I to the address NNN
		return mviInstruction

	case 0xB000:
		// BNNN - Jumps to the address NNN plus V0
		return jmiInstruction

	case 0xC000:
		// CXNN - Sets VX to a random number, masked by NN
		return randInstruction

	case 0xD000:
		// DXYN - Draws N rows of sprite data from I at (VX, VY), VF is the collision flag
		return spriteInstruction

	case 0xE000:
		switch opKK(opcode) {
		case 0x9E:
			// EX9E - Skips the next instruction if the key stored in VX is pressed
			return skprInstruction

		case 0xA1:
			// EXA1 - Skips the next instruction if the key stored in VX isn't pressed
			return skupInstruction
		}

	case 0xF000:
		switch opKK(opcode) {
		case 0x07:
			return gdelayInstruction
		case 0x0A:
			return keyInstruction
		case 0x15:
			return sdelayInstruction
		case 0x18:
			return ssoundInstruction
		case 0x1E:
			return adiInstruction
		case 0x29:
			return fontInstruction
		case 0x33:
			return bcdInstruction
		case 0x55:
			return strInstruction
		case 0x65:
			return ldrInstruction
		}
	}

	return unknownInstruction
}

func nameAddr(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s 0x%03x", mnemonic, opNNN(opcode))
	}
}

func nameX(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x", mnemonic, opX(opcode))
	}
}

func nameXKK(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, %d", mnemonic, opX(opcode), opKK(opcode))
	}
}

func nameXY(mnemonic string) func(uint16) string {
	return func(opcode uint16) string {
		return fmt.Sprintf("%s v%x, v%x", mnemonic, opX(opcode), opY(opcode))
	}
}

func (vm *Machine) skipIf(cond bool) {
	if cond {
		vm.pc += InstructionSize
	}
}

// alu builds an 8XY_ instruction. op returns the new VX and, when setFlag
// is true, the value of VF. VF is written after VX so the flag wins when X is F.
func alu(mnemonic string, op func(x, y uint8) (result, flag uint8), setFlag bool) instruction {
	return instruction{
		Name: nameXY(mnemonic),
		Execute: func(vm *Machine, opcode uint16) error {
			vX, vY := opX(opcode), opY(opcode)

			result, flag := op(vm.registers[vX], vm.registers[vY])
			vm.registers[vX] = result
			if setFlag {
				vm.registers[flagRegister] = flag
			}
			return nil
		},
	}
}

func boolFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var (
	// 00E0	cls	Clear the screen
	clsInstruction = instruction{
		Name: func(opcode uint16) string {
			return "cls"
		},
		Execute: func(vm *Machine, opcode uint16) error {
			vm.display.Clear()
			return nil
		},
	}

	// 00EE	rts	return from subroutine call
	rtsInstruction = instruction{
		Name: func(opcode uint16) string {
			return "rts"
		},
		Execute: func(vm *Machine, opcode uint16) error {
			addr, err := vm.stack.Pop()
			if err != nil {
				return err
			}
			vm.pc = addr
			return nil
		},
	}

	// 1xxx	jmp xxx	jump to address xxx
	jmpInstruction = instruction{
		Name: nameAddr("jmp"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.pc = opNNN(opcode)
			return nil
		},
	}

	// 2xxx	jsr xxx	jump to subroutine at address xxx
	jsrInstruction = instruction{
		Name: nameAddr("jsr"),
		Execute: func(vm *Machine, opcode uint16) error {
			// pc already points past the call, which is where rts resumes
			if err := vm.stack.Push(vm.pc); err != nil {
				return err
			}
			vm.pc = opNNN(opcode)
			return nil
		},
	}

	// 3rxx	skeq vr,xx	skip if register r = constant
	skeq1Instruction = instruction{
		Name: nameXKK("skeq"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] == opKK(opcode))
			return nil
		},
	}

	// 4rxx	skne vr,xx	skip if register r <> constant
	skne1Instruction = instruction{
		Name: nameXKK("skne"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] != opKK(opcode))
			return nil
		},
	}

	// 5ry0	skeq vr,vy	skip if register r = register y
	skeq2Instruction = instruction{
		Name: nameXY("skeq"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] == vm.registers[opY(opcode)])
			return nil
		},
	}

	// 6rxx	mov vr,xx	move constant to register r
	mov1Instruction = instruction{
		Name: nameXKK("mov"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.registers[opX(opcode)] = opKK(opcode)
			return nil
		},
	}

	// 7rxx	add vr,xx	add constant to register r	No carry generated
	add1Instruction = instruction{
		Name: nameXKK("add"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.registers[opX(opcode)] += opKK(opcode)
			return nil
		},
	}

	// 8ry0	mov vr,vy	move register vy into vr
	mov2Instruction = alu("mov", func(_, y uint8) (uint8, uint8) { return y, 0 }, false)

	// 8ry1	or rx,ry	or register vy into register vx
	orInstruction = alu("or", func(x, y uint8) (uint8, uint8) { return x | y, 0 }, false)

	// 8ry2	and rx,ry	and register vy into register vx
	andInstruction = alu("and", func(x, y uint8) (uint8, uint8) { return x & y, 0 }, false)

	// 8ry3	xor rx,ry	exclusive or register ry into register rx
	xorInstruction = alu("xor", func(x, y uint8) (uint8, uint8) { return x ^ y, 0 }, false)

	// 8ry4	add vr,vy	add register vy to vr, vf = 1 on carry
	add2Instruction = alu("add", func(x, y uint8) (uint8, uint8) {
		sum := uint16(x) + uint16(y)
		return uint8(sum), boolFlag(sum > 0xFF)
	}, true)

	// 8ry5	sub vr,vy	subtract register vy from vr, vf = 0 on borrow
	subInstruction = alu("sub", func(x, y uint8) (uint8, uint8) {
		return x - y, boolFlag(x >= y)
	}, true)

	// 8ry6	shr vr	shift register vr right, bit 0 goes into register vf
	shrInstruction = instruction{
		Name: nameX("shr"),
		Execute: func(vm *Machine, opcode uint16) error {
			vX := opX(opcode)
			x := vm.registers[vX]

			vm.registers[vX] = x >> 1
			vm.registers[flagRegister] = x & 0x01
			return nil
		},
	}

	// 8ry7	rsb vr,vy	vr = vy - vr, vf = 0 on borrow
	rsbInstruction = alu("rsb", func(x, y uint8) (uint8, uint8) {
		return y - x, boolFlag(y >= x)
	}, true)

	// 8r0e	shl vr	shift register vr left, bit 7 goes into register vf
	shlInstruction = instruction{
		Name: nameX("shl"),
		Execute: func(vm *Machine, opcode uint16) error {
			vX := opX(opcode)
			x := vm.registers[vX]

			vm.registers[vX] = x << 1
			vm.registers[flagRegister] = x >> 7
			return nil
		},
	}

	// 9ry0	skne vr,vy	skip if register r <> register y
	skne2Instruction = instruction{
		Name: nameXY("skne"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(vm.registers[opX(opcode)] != vm.registers[opY(opcode)])
			return nil
		},
	}

	// axxx	mvi xxx	Load index register with constant xxx
	mviInstruction = instruction{
		Name: nameAddr("mvi"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.index = opNNN(opcode)
			return nil
		},
	}

	// bxxx	jmi xxx	Jump to address xxx+register v0
	jmiInstruction = instruction{
		Name: nameAddr("jmi"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.pc = opNNN(opcode) + uint16(vm.registers[0])
			return nil
		},
	}

	// crxx	rand vr,xx	vr = random byte and xx
	randInstruction = instruction{
		Name: nameXKK("rand"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.registers[opX(opcode)] = uint8(vm.rand.UintN(256)) & opKK(opcode)
			return nil
		},
	}

	// drys	sprite rx,ry,s	Draw sprite at screen location rx,ry height s
	// Sprite rows are read from memory at the index register, I is unchanged.
	// All drawing is xor drawing, vf is set when a lit pixel is cleared.
	spriteInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("sprite v%x, v%x, %d", opX(opcode), opY(opcode), opN(opcode))
		},
		Execute: func(vm *Machine, opcode uint16) error {
			height := opN(opcode)

			sprite := make([]uint8, height)
			for row := range sprite {
				sprite[row] = vm.memory.Read(vm.index + uint16(row))
			}

			x, y := vm.registers[opX(opcode)], vm.registers[opY(opcode)]
			collision := vm.display.Draw(x, y, sprite)
			vm.registers[flagRegister] = boolFlag(collision)
			return nil
		},
	}

	// ek9e	skpr k	skip if key (register rk) pressed
	skprInstruction = instruction{
		Name: nameX("skpr"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(vm.KeyPressed(Key(vm.registers[opX(opcode)])))
			return nil
		},
	}

	// eka1	skup k	skip if key (register rk) not pressed
	skupInstruction = instruction{
		Name: nameX("skup"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.skipIf(!vm.KeyPressed(Key(vm.registers[opX(opcode)])))
			return nil
		},
	}

	// fr07	gdelay vr	get delay timer into vr
	gdelayInstruction = instruction{
		Name: nameX("gdelay"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.registers[opX(opcode)] = vm.delayTimer.Value()
			return nil
		},
	}

	// fr0a	key vr	wait for keypress, put key in register vr
	// The machine parks on this instruction until the run loop sees a key
	// press, see keyDown.
	keyInstruction = instruction{
		Name: nameX("key"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.pc -= InstructionSize
			vm.waitReg = opX(opcode)
			vm.state = BlockedOnKey
			return nil
		},
	}

	// fr15	sdelay vr	set the delay timer to vr
	sdelayInstruction = instruction{
		Name: nameX("sdelay"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.delayTimer.Set(vm.registers[opX(opcode)])
			return nil
		},
	}

	// fr18	ssound vr	set the sound timer to vr
	ssoundInstruction = instruction{
		Name: nameX("ssound"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.soundTimer.Set(vm.registers[opX(opcode)])
			return nil
		},
	}

	// fr1e	adi vr	add register vr to the index register, vf untouched
	adiInstruction = instruction{
		Name: nameX("adi"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.index += uint16(vm.registers[opX(opcode)])
			return nil
		},
	}

	// fr29	font vr	point I to the sprite for hexadecimal character in vr
	fontInstruction = instruction{
		Name: nameX("font"),
		Execute: func(vm *Machine, opcode uint16) error {
			vm.index = fontAddr(vm.registers[opX(opcode)])
			return nil
		},
	}

	// fr33	bcd vr	store the bcd representation of register vr at I, I+1, I+2
	bcdInstruction = instruction{
		Name: nameX("bcd"),
		Execute: func(vm *Machine, opcode uint16) error {
			x := vm.registers[opX(opcode)]

			vm.memory.Write(vm.index, x/100)
			vm.memory.Write(vm.index+1, (x/10)%10)
			vm.memory.Write(vm.index+2, x%10)
			return nil
		},
	}

	// fr55	str v0-vr	store registers v0-vr at location I onwards, I is unchanged
	strInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("str v0-v%x", opX(opcode))
		},
		Execute: func(vm *Machine, opcode uint16) error {
			n := uint16(opX(opcode))
			for i := uint16(0); i <= n; i++ {
				vm.memory.Write(vm.index+i, vm.registers[i])
			}
			return nil
		},
	}

	// fr65	ldr v0-vr	load registers v0-vr from location I onwards, I is unchanged
	ldrInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("ldr v0-v%x", opX(opcode))
		},
		Execute: func(vm *Machine, opcode uint16) error {
			n := uint16(opX(opcode))
			for i := uint16(0); i <= n; i++ {
				vm.registers[i] = vm.memory.Read(vm.index + i)
			}
			return nil
		},
	}

	unknownInstruction = instruction{
		Name: func(opcode uint16) string {
			return fmt.Sprintf("unknown 0x%04X", opcode)
		},
		Execute: func(vm *Machine, opcode uint16) error {
			return fmt.Errorf("%w 0x%04X", ErrUnknownOpcode, opcode)
		},
	}
)
