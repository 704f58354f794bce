// Package cpu emulates the Hack computer: a 16-bit CPU with separate
// instruction and data memories, a memory-mapped screen and a keyboard
// register.
package cpu

import (
	"errors"
	"fmt"
)

const (
	ROMSize = 32768
	RAMSize = 32768

	// ScreenBase is the first word of the 512×256 monochrome screen map.
	ScreenBase uint16 = 16384
	ScreenSize        = 8192
	// KBD holds the code of the key currently pressed, 0 for none.
	KBD uint16 = 24576

	addrMask uint16 = 0x7FFF
)

// C-instruction fields.
const (
	cBit    uint16 = 0x8000
	aBit    uint16 = 0x1000
	compSh         = 6
	destA   uint16 = 0b100
	destD   uint16 = 0b010
	destM   uint16 = 0b001
	jumpLT  uint16 = 0b100
	jumpEQ  uint16 = 0b010
	jumpGT  uint16 = 0b001
	jumpAll uint16 = 0b111
)

var (
	ErrStepLimit       = errors.New("step limit reached before halt")
	ErrProgramTooLarge = errors.New("program does not fit in ROM")
	ErrPCOutOfRange    = errors.New("program counter outside ROM")
)

type CPU struct {
	ROM [ROMSize]uint16
	RAM [RAMSize]uint16

	A  uint16
	D  uint16
	PC uint16

	// Halted is set when the program jumps into a one-instruction loop of
	// the form "(L) @L 0;JMP".
	Halted bool

	Steps uint64

	// Trace, when set, is called before each instruction executes.
	Trace func(pc, word uint16)
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load copies program into ROM, clearing whatever was there, and resets the
// registers. RAM is left alone.
func (c *CPU) Load(program []uint16) error {
	if len(program) > ROMSize {
		return fmt.Errorf("%w: %d words", ErrProgramTooLarge, len(program))
	}
	c.ROM = [ROMSize]uint16{}
	copy(c.ROM[:], program)
	c.Reset()
	return nil
}

// Reset puts the CPU back at address 0 without touching memory.
func (c *CPU) Reset() {
	c.A, c.D, c.PC = 0, 0, 0
	c.Halted = false
	c.Steps = 0
}

func (c *CPU) ReadMem(addr uint16) uint16 {
	return c.RAM[addr&addrMask]
}

func (c *CPU) WriteMem(addr uint16, val uint16) {
	c.RAM[addr&addrMask] = val
}

// SetKey reports the key currently held down. 0 means no key.
func (c *CPU) SetKey(code uint16) {
	c.RAM[KBD] = code
}

// Step executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.PC >= ROMSize {
		return fmt.Errorf("%w: pc=%d", ErrPCOutOfRange, c.PC)
	}

	instr := c.ROM[c.PC]
	if c.Trace != nil {
		c.Trace(c.PC, instr)
	}
	c.Steps++

	if instr&cBit == 0 {
		c.A = instr
		c.PC++
		return nil
	}

	y := c.A
	if instr&aBit != 0 {
		y = c.ReadMem(c.A)
	}
	out := alu(c.D, y, (instr>>compSh)&0x3F)

	// Writes and the jump target all use A as it was before this
	// instruction.
	oldA := c.A
	dest := (instr >> 3) & 0b111
	if dest&destM != 0 {
		c.WriteMem(oldA, out)
	}
	if dest&destD != 0 {
		c.D = out
	}
	if dest&destA != 0 {
		c.A = out
	}

	jump := instr & 0b111
	if !taken(jump, out) {
		c.PC++
		return nil
	}
	if jump == jumpAll && c.PC > 0 && oldA == c.PC-1 && c.ROM[oldA] == oldA {
		c.Halted = true
	}
	c.PC = oldA
	return nil
}

// Run steps until the program halts. maxSteps of 0 means no limit.
func (c *CPU) Run(maxSteps uint64) error {
	start := c.Steps
	for !c.Halted {
		if maxSteps > 0 && c.Steps-start >= maxSteps {
			return fmt.Errorf("%w: %d steps, pc=%d", ErrStepLimit, maxSteps, c.PC)
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// alu implements the Hack ALU. ctrl holds zx nx zy ny f no, most
// significant first.
func alu(x, y, ctrl uint16) uint16 {
	if ctrl&0b100000 != 0 {
		x = 0
	}
	if ctrl&0b010000 != 0 {
		x = ^x
	}
	if ctrl&0b001000 != 0 {
		y = 0
	}
	if ctrl&0b000100 != 0 {
		y = ^y
	}
	var out uint16
	if ctrl&0b000010 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if ctrl&0b000001 != 0 {
		out = ^out
	}
	return out
}

func taken(jump, out uint16) bool {
	neg := int16(out) < 0
	zero := out == 0
	return (jump&jumpLT != 0 && neg) ||
		(jump&jumpEQ != 0 && zero) ||
		(jump&jumpGT != 0 && !neg && !zero)
}
