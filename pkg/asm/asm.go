// Package asm implements the Hack assembler: a two-pass translator from
// symbolic assembly to 16-bit machine words.
package asm

import (
	"fmt"
	"strings"
)

// ROMSize is the number of instruction words the machine can address.
const ROMSize = 32768

type Assembler struct {
	syms  *SymbolTable
	lines []parsedLine
}

type parsedLine struct {
	lineNo int
	text   string
	instr  Instruction
}

func NewAssembler() *Assembler {
	return &Assembler{
		syms: NewSymbolTable(),
	}
}

// Assemble translates source text and returns the machine words plus a map
// from instruction address to source line.
func Assemble(code string) ([]uint16, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

// AssembleInstructions encodes an instruction list that was built in memory,
// for example by the code generator. Line numbers in errors and in the
// source map count instructions from 1.
func AssembleInstructions(instrs []Instruction) ([]uint16, map[uint16]int, error) {
	a := NewAssembler()
	a.lines = make([]parsedLine, 0, len(instrs))
	for i, in := range instrs {
		a.lines = append(a.lines, parsedLine{lineNo: i + 1, text: in.String(), instr: in})
	}
	if err := a.bindLabels(); err != nil {
		return nil, nil, err
	}
	return a.pass2()
}

func (a *Assembler) Assemble(code string) ([]uint16, map[uint16]int, error) {
	a.syms = NewSymbolTable()
	a.lines = nil

	if err := a.pass1(strings.Split(code, "\n")); err != nil {
		return nil, nil, err
	}
	return a.pass2()
}

// Symbols exposes the table built by the last run.
func (a *Assembler) Symbols() *SymbolTable {
	return a.syms
}

// pass1 parses every line and binds each label to the address of the next
// real instruction.
func (a *Assembler) pass1(lines []string) error {
	for i, raw := range lines {
		lineNo := i + 1
		text := stripComment(raw)
		if text == "" {
			continue
		}
		in, err := ParseInstruction(text)
		if err != nil {
			return &LineError{Line: lineNo, Text: text, Err: err}
		}
		a.lines = append(a.lines, parsedLine{lineNo: lineNo, text: text, instr: in})
	}
	return a.bindLabels()
}

func (a *Assembler) bindLabels() error {
	var address int
	for _, p := range a.lines {
		if p.instr.Kind != KindLabel {
			address++
			if address > ROMSize {
				return &LineError{Line: p.lineNo, Text: p.text, Err: fmt.Errorf("%w: program exceeds %d instructions", ErrAddressRange, ROMSize)}
			}
			continue
		}
		if err := a.syms.DefineLabel(p.instr.Symbol, uint16(address)); err != nil {
			return &LineError{Line: p.lineNo, Text: p.text, Err: err}
		}
	}
	return nil
}

func (a *Assembler) pass2() ([]uint16, map[uint16]int, error) {
	program := make([]uint16, 0, len(a.lines))
	sourceMap := make(map[uint16]int)

	for _, p := range a.lines {
		if p.instr.Kind == KindLabel {
			continue
		}
		word, err := a.encode(p.instr)
		if err != nil {
			return nil, nil, &LineError{Line: p.lineNo, Text: p.text, Err: err}
		}
		sourceMap[uint16(len(program))] = p.lineNo
		program = append(program, word)
	}

	return program, sourceMap, nil
}

func (a *Assembler) encode(in Instruction) (uint16, error) {
	switch in.Kind {
	case KindA:
		if isNumeric(in.Symbol) {
			return parseAddress(in.Symbol)
		}
		if !isSymbol(in.Symbol) {
			return 0, fmt.Errorf("%w: invalid symbol %q", ErrSyntax, in.Symbol)
		}
		return a.syms.Resolve(in.Symbol)
	case KindC:
		return EncodeC(in.Dest, in.Comp, in.Jump)
	}
	return 0, fmt.Errorf("%w: %v instruction has no encoding", ErrSyntax, in.Kind)
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
