// Package codegen lowers VM commands to Hack assembly.
//
// Pipeline: VM source → vm.Parse → CodeGen.Translate → []asm.Instruction →
// asm.AssembleInstructions → machine words.
package codegen

import (
	"errors"
	"fmt"

	"gohack/pkg/asm"
	"gohack/pkg/vm"
)

const (
	// StackBase is where the bootstrap points SP.
	StackBase = 256
	// TempBase is the RAM address of temp 0.
	TempBase = 5
	// EntryPoint is the function the bootstrap calls.
	EntryPoint = "Sys.init"

	// frameRegister and returnRegister are scratch registers used by the
	// return sequence; addressRegister is used by pop.
	frameRegister   = "R13"
	returnRegister  = "R14"
	addressRegister = "R13"
)

var (
	ErrBootstrap = errors.New("bootstrap must be emitted once, before any other code")
	ErrNoUnit    = errors.New("static segment used outside a translation unit")
	ErrUnitName  = errors.New("invalid translation unit name")
)

var segmentBase = map[vm.Segment]string{
	vm.SegLocal:    "LCL",
	vm.SegArgument: "ARG",
	vm.SegThis:     "THIS",
	vm.SegThat:     "THAT",
}

var binaryComp = map[vm.Op]string{
	vm.OpAdd: "D+M",
	vm.OpSub: "M-D",
	vm.OpAnd: "D&M",
	vm.OpOr:  "D|M",
}

var compareJump = map[vm.Op]string{
	vm.OpEq: "JEQ",
	vm.OpGt: "JGT",
	vm.OpLt: "JLT",
}

// CodeGen translates a stream of VM commands from one or more translation
// units into a single instruction list. All label counters live here, so one
// CodeGen must see every unit of a program, in order.
type CodeGen struct {
	out             []asm.Instruction
	unit            string
	currentFunction string
	nextCompare     int
	callCounts      map[string]int
	bootstrapped    bool
	comments        bool
}

type Option func(*CodeGen)

// WithComments annotates the first instruction of every translated command
// with the VM source it came from.
func WithComments() Option {
	return func(cg *CodeGen) { cg.comments = true }
}

func New(opts ...Option) *CodeGen {
	cg := &CodeGen{
		callCounts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(cg)
	}
	return cg
}

// EmitBootstrap sets SP to 256 and calls Sys.init. It must be the first code
// emitted.
func (cg *CodeGen) EmitBootstrap() error {
	if cg.bootstrapped || len(cg.out) > 0 {
		return ErrBootstrap
	}
	seq := []asm.Instruction{
		asm.AConst(StackBase),
		asm.C("D", "A", ""),
		asm.A("SP"),
		asm.C("M", "D", ""),
	}
	seq = append(seq, cg.call(EntryPoint, 0)...)
	cg.emit("bootstrap", seq)
	cg.bootstrapped = true
	return nil
}

// SetTranslationUnit switches the namespace used for static variables.
func (cg *CodeGen) SetTranslationUnit(name string) error {
	if !vm.IsSymbol(name) {
		return fmt.Errorf("%w: %q", ErrUnitName, name)
	}
	cg.unit = name
	return nil
}

// Translate appends the code for one command. Invalid commands produce no
// output and leave every counter untouched.
func (cg *CodeGen) Translate(cmd vm.Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if (cmd.Type == vm.CmdPush || cmd.Type == vm.CmdPop) && cmd.Segment == vm.SegStatic && cg.unit == "" {
		return fmt.Errorf("%s: %w", cmd, ErrNoUnit)
	}

	var seq []asm.Instruction
	switch cmd.Type {
	case vm.CmdArithmetic:
		seq = cg.arithmetic(cmd.Op)
	case vm.CmdPush:
		seq = cg.push(cmd.Segment, cmd.Index)
	case vm.CmdPop:
		seq = cg.pop(cmd.Segment, cmd.Index)
	case vm.CmdLabel:
		seq = []asm.Instruction{asm.Label(cg.scoped(cmd.Name))}
	case vm.CmdGoto:
		seq = []asm.Instruction{
			asm.A(cg.scoped(cmd.Name)),
			asm.C("", "0", "JMP"),
		}
	case vm.CmdIf:
		seq = append(popD(),
			asm.A(cg.scoped(cmd.Name)),
			asm.C("", "D", "JNE"),
		)
	case vm.CmdFunction:
		seq = cg.function(cmd.Name, cmd.Count)
	case vm.CmdCall:
		seq = cg.call(cmd.Name, cmd.Count)
	case vm.CmdReturn:
		seq = cg.ret()
	}

	cg.emit(cmd.String(), seq)
	return nil
}

// Finish returns the accumulated instruction list.
func (cg *CodeGen) Finish() []asm.Instruction {
	out := make([]asm.Instruction, len(cg.out))
	copy(out, cg.out)
	return out
}

func (cg *CodeGen) emit(comment string, seq []asm.Instruction) {
	if cg.comments && len(seq) > 0 {
		seq[0] = seq[0].WithComment(comment)
	}
	cg.out = append(cg.out, seq...)
}

// scoped qualifies a VM label with the enclosing function, or with the
// translation unit when no function has been seen yet.
func (cg *CodeGen) scoped(label string) string {
	switch {
	case cg.currentFunction != "":
		return cg.currentFunction + "$" + label
	case cg.unit != "":
		return cg.unit + "$" + label
	}
	return label
}

func (cg *CodeGen) arithmetic(op vm.Op) []asm.Instruction {
	switch {
	case op.Unary():
		comp := "-M"
		if op == vm.OpNot {
			comp = "!M"
		}
		return []asm.Instruction{
			asm.A("SP"),
			asm.C("A", "M-1", ""),
			asm.C("M", comp, ""),
		}

	case op.Comparison():
		end := fmt.Sprintf("CMP_END_%d", cg.nextCompare)
		cg.nextCompare++
		return []asm.Instruction{
			asm.A("SP"),
			asm.C("AM", "M-1", ""),
			asm.C("D", "M", ""),
			asm.C("A", "A-1", ""),
			asm.C("D", "M-D", ""),
			asm.C("M", "-1", ""),
			asm.A(end),
			asm.C("", "D", compareJump[op]),
			asm.A("SP"),
			asm.C("A", "M-1", ""),
			asm.C("M", "0", ""),
			asm.Label(end),
		}
	}

	return []asm.Instruction{
		asm.A("SP"),
		asm.C("AM", "M-1", ""),
		asm.C("D", "M", ""),
		asm.C("A", "A-1", ""),
		asm.C("M", binaryComp[op], ""),
	}
}

func (cg *CodeGen) push(seg vm.Segment, index int) []asm.Instruction {
	var seq []asm.Instruction
	switch seg {
	case vm.SegConstant:
		seq = []asm.Instruction{asm.AConst(index), asm.C("D", "A", "")}
	case vm.SegLocal, vm.SegArgument, vm.SegThis, vm.SegThat:
		seq = []asm.Instruction{
			asm.AConst(index),
			asm.C("D", "A", ""),
			asm.A(segmentBase[seg]),
			asm.C("A", "D+M", ""),
			asm.C("D", "M", ""),
		}
	default:
		seq = []asm.Instruction{asm.A(cg.directAddress(seg, index)), asm.C("D", "M", "")}
	}
	return append(seq, pushD()...)
}

func (cg *CodeGen) pop(seg vm.Segment, index int) []asm.Instruction {
	if base, ok := segmentBase[seg]; ok {
		seq := []asm.Instruction{
			asm.AConst(index),
			asm.C("D", "A", ""),
			asm.A(base),
			asm.C("D", "D+M", ""),
			asm.A(addressRegister),
			asm.C("M", "D", ""),
		}
		seq = append(seq, popD()...)
		return append(seq,
			asm.A(addressRegister),
			asm.C("A", "M", ""),
			asm.C("M", "D", ""),
		)
	}
	return append(popD(),
		asm.A(cg.directAddress(seg, index)),
		asm.C("M", "D", ""),
	)
}

// directAddress returns the A-instruction operand for segments whose
// address is known at translation time.
func (cg *CodeGen) directAddress(seg vm.Segment, index int) string {
	switch seg {
	case vm.SegStatic:
		return fmt.Sprintf("%s.%d", cg.unit, index)
	case vm.SegTemp:
		return fmt.Sprintf("%d", TempBase+index)
	case vm.SegPointer:
		if index == 0 {
			return "THIS"
		}
		return "THAT"
	}
	panic(fmt.Sprintf("codegen: segment %v has no direct address", seg))
}

func (cg *CodeGen) function(name string, nLocals int) []asm.Instruction {
	cg.currentFunction = name
	seq := []asm.Instruction{asm.Label(name)}
	if nLocals == 0 {
		return seq
	}
	seq = append(seq, asm.A("SP"), asm.C("A", "M", ""))
	for i := 0; i < nLocals; i++ {
		seq = append(seq, asm.C("M", "0", ""), asm.C("A", "A+1", ""))
	}
	return append(seq,
		asm.C("D", "A", ""),
		asm.A("SP"),
		asm.C("M", "D", ""),
	)
}

func (cg *CodeGen) call(name string, nArgs int) []asm.Instruction {
	ret := fmt.Sprintf("%s$ret.%d", name, cg.callCounts[name])
	cg.callCounts[name]++

	seq := []asm.Instruction{asm.A(ret), asm.C("D", "A", "")}
	seq = append(seq, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		seq = append(seq, asm.A(reg), asm.C("D", "M", ""))
		seq = append(seq, pushD()...)
	}
	return append(seq,
		// ARG = SP - 5 - nArgs
		asm.A("SP"),
		asm.C("D", "M", ""),
		asm.AConst(5+nArgs),
		asm.C("D", "D-A", ""),
		asm.A("ARG"),
		asm.C("M", "D", ""),
		// LCL = SP
		asm.A("SP"),
		asm.C("D", "M", ""),
		asm.A("LCL"),
		asm.C("M", "D", ""),
		asm.A(name),
		asm.C("", "0", "JMP"),
		asm.Label(ret),
	)
}

// ret tears down the current frame. The return address is saved before the
// result is copied to *ARG, which overwrites it when the callee took no
// arguments.
func (cg *CodeGen) ret() []asm.Instruction {
	seq := []asm.Instruction{
		asm.A("LCL"),
		asm.C("D", "M", ""),
		asm.A(frameRegister),
		asm.C("M", "D", ""),
		asm.AConst(5),
		asm.C("A", "D-A", ""),
		asm.C("D", "M", ""),
		asm.A(returnRegister),
		asm.C("M", "D", ""),
	}
	seq = append(seq, popD()...)
	seq = append(seq,
		asm.A("ARG"),
		asm.C("A", "M", ""),
		asm.C("M", "D", ""),
		asm.A("ARG"),
		asm.C("D", "M+1", ""),
		asm.A("SP"),
		asm.C("M", "D", ""),
	)
	for _, reg := range []string{"THAT", "THIS", "ARG", "LCL"} {
		seq = append(seq,
			asm.A(frameRegister),
			asm.C("AM", "M-1", ""),
			asm.C("D", "M", ""),
			asm.A(reg),
			asm.C("M", "D", ""),
		)
	}
	return append(seq,
		asm.A(returnRegister),
		asm.C("A", "M", ""),
		asm.C("", "0", "JMP"),
	)
}

func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.A("SP"),
		asm.C("M", "M+1", ""),
		asm.C("A", "M-1", ""),
		asm.C("M", "D", ""),
	}
}

func popD() []asm.Instruction {
	return []asm.Instruction{
		asm.A("SP"),
		asm.C("AM", "M-1", ""),
		asm.C("D", "M", ""),
	}
}
