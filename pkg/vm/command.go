package vm

import (
	"fmt"
	"strconv"
	"strings"
)

type CommandType int

const (
	CmdArithmetic CommandType = iota
	CmdPush
	CmdPop
	CmdLabel
	CmdGoto
	CmdIf
	CmdFunction
	CmdCall
	CmdReturn
)

var commandNames = [...]string{
	CmdArithmetic: "arithmetic",
	CmdPush:       "push",
	CmdPop:        "pop",
	CmdLabel:      "label",
	CmdGoto:       "goto",
	CmdIf:         "if-goto",
	CmdFunction:   "function",
	CmdCall:       "call",
	CmdReturn:     "return",
}

func (t CommandType) String() string {
	if int(t) < len(commandNames) {
		return commandNames[t]
	}
	return fmt.Sprintf("CommandType(%d)", int(t))
}

type Segment int

const (
	SegConstant Segment = iota
	SegArgument
	SegLocal
	SegStatic
	SegThis
	SegThat
	SegPointer
	SegTemp
)

var segmentNames = [...]string{
	SegConstant: "constant",
	SegArgument: "argument",
	SegLocal:    "local",
	SegStatic:   "static",
	SegThis:     "this",
	SegThat:     "that",
	SegPointer:  "pointer",
	SegTemp:     "temp",
}

func (s Segment) String() string {
	if int(s) >= 0 && int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", int(s))
}

// ParseSegment maps a segment keyword to its Segment.
func ParseSegment(name string) (Segment, error) {
	for i, n := range segmentNames {
		if n == name {
			return Segment(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSegment, name)
}

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpNeg
	OpEq
	OpGt
	OpLt
	OpAnd
	OpOr
	OpNot
)

var opNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpNeg: "neg",
	OpEq:  "eq",
	OpGt:  "gt",
	OpLt:  "lt",
	OpAnd: "and",
	OpOr:  "or",
	OpNot: "not",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Unary reports whether the op replaces the stack top in place.
func (o Op) Unary() bool {
	return o == OpNeg || o == OpNot
}

// Comparison reports whether the op produces a VM boolean.
func (o Op) Comparison() bool {
	return o == OpEq || o == OpGt || o == OpLt
}

// MaxConstant is the largest value an A-instruction can load.
const MaxConstant = 32767

// TempSize is the number of slots in the temp segment.
const TempSize = 8

// Command is one decoded VM instruction. Only the fields relevant to Type are
// set: Op for arithmetic, Segment/Index for push and pop, Name for labels,
// jumps, functions and calls, Count for nLocals and nArgs.
type Command struct {
	Type    CommandType
	Op      Op
	Segment Segment
	Index   int
	Name    string
	Count   int
}

func Arithmetic(op Op) Command { return Command{Type: CmdArithmetic, Op: op} }

func Push(seg Segment, index int) Command {
	return Command{Type: CmdPush, Segment: seg, Index: index}
}

func Pop(seg Segment, index int) Command {
	return Command{Type: CmdPop, Segment: seg, Index: index}
}

func Label(name string) Command  { return Command{Type: CmdLabel, Name: name} }
func Goto(name string) Command   { return Command{Type: CmdGoto, Name: name} }
func IfGoto(name string) Command { return Command{Type: CmdIf, Name: name} }

func Function(name string, nLocals int) Command {
	return Command{Type: CmdFunction, Name: name, Count: nLocals}
}

func Call(name string, nArgs int) Command {
	return Command{Type: CmdCall, Name: name, Count: nArgs}
}

func Return() Command { return Command{Type: CmdReturn} }

// String renders the command in VM source form.
func (c Command) String() string {
	switch c.Type {
	case CmdArithmetic:
		return c.Op.String()
	case CmdPush, CmdPop:
		return fmt.Sprintf("%s %s %d", c.Type, c.Segment, c.Index)
	case CmdLabel, CmdGoto, CmdIf:
		return fmt.Sprintf("%s %s", c.Type, c.Name)
	case CmdFunction, CmdCall:
		return fmt.Sprintf("%s %s %d", c.Type, c.Name, c.Count)
	case CmdReturn:
		return "return"
	}
	return c.Type.String()
}

// Validate checks the segment addressing rules that make a command
// untranslatable regardless of where it appears.
func (c Command) Validate() error {
	switch c.Type {
	case CmdArithmetic:
		if c.Op < OpAdd || c.Op > OpNot {
			return fmt.Errorf("%w: %v", ErrUnknownCommand, c.Op)
		}
	case CmdPush, CmdPop:
		if c.Index < 0 {
			return fmt.Errorf("%w: negative index %d", ErrSegmentIndex, c.Index)
		}
		switch c.Segment {
		case SegConstant:
			if c.Type == CmdPop {
				return fmt.Errorf("%w: cannot pop into the constant segment", ErrSegmentIndex)
			}
			if c.Index > MaxConstant {
				return fmt.Errorf("%w: constant %d exceeds %d", ErrSegmentIndex, c.Index, MaxConstant)
			}
		case SegPointer:
			if c.Index > 1 {
				return fmt.Errorf("%w: pointer index must be 0 or 1, got %d", ErrSegmentIndex, c.Index)
			}
		case SegTemp:
			if c.Index >= TempSize {
				return fmt.Errorf("%w: temp index must be below %d, got %d", ErrSegmentIndex, TempSize, c.Index)
			}
		case SegArgument, SegLocal, SegStatic, SegThis, SegThat:
		default:
			return fmt.Errorf("%w: %v", ErrUnknownSegment, c.Segment)
		}
	case CmdLabel, CmdGoto, CmdIf, CmdFunction, CmdCall:
		if !IsSymbol(c.Name) {
			return fmt.Errorf("%w: invalid name %q", ErrMalformedOperands, c.Name)
		}
		if c.Count < 0 {
			return fmt.Errorf("%w: negative count %d", ErrMalformedOperands, c.Count)
		}
	case CmdReturn:
	default:
		return fmt.Errorf("%w: %v", ErrUnknownCommand, c.Type)
	}
	return nil
}

var arithmeticOps = map[string]Op{
	"add": OpAdd,
	"sub": OpSub,
	"neg": OpNeg,
	"eq":  OpEq,
	"gt":  OpGt,
	"lt":  OpLt,
	"and": OpAnd,
	"or":  OpOr,
	"not": OpNot,
}

// ParseCommand classifies one comment-free, trimmed line of VM source.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrMalformedOperands)
	}

	keyword, args := fields[0], fields[1:]

	if op, ok := arithmeticOps[keyword]; ok {
		if err := expectArgs(keyword, args, 0); err != nil {
			return Command{}, err
		}
		return Arithmetic(op), nil
	}

	var cmd Command
	switch keyword {
	case "push", "pop":
		if err := expectArgs(keyword, args, 2); err != nil {
			return Command{}, err
		}
		seg, err := ParseSegment(args[0])
		if err != nil {
			return Command{}, err
		}
		index, err := parseCount(keyword, args[1])
		if err != nil {
			return Command{}, err
		}
		if keyword == "push" {
			cmd = Push(seg, index)
		} else {
			cmd = Pop(seg, index)
		}

	case "label", "goto", "if-goto":
		if err := expectArgs(keyword, args, 1); err != nil {
			return Command{}, err
		}
		switch keyword {
		case "label":
			cmd = Label(args[0])
		case "goto":
			cmd = Goto(args[0])
		default:
			cmd = IfGoto(args[0])
		}

	case "function", "call":
		if err := expectArgs(keyword, args, 2); err != nil {
			return Command{}, err
		}
		n, err := parseCount(keyword, args[1])
		if err != nil {
			return Command{}, err
		}
		if keyword == "function" {
			cmd = Function(args[0], n)
		} else {
			cmd = Call(args[0], n)
		}

	case "return":
		if err := expectArgs(keyword, args, 0); err != nil {
			return Command{}, err
		}
		cmd = Return()

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, keyword)
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func expectArgs(keyword string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s expects %d operand(s), got %d", ErrMalformedOperands, keyword, n, len(args))
	}
	return nil
}

func parseCount(keyword, token string) (int, error) {
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 || strings.HasPrefix(token, "+") || strings.HasPrefix(token, "-") {
		return 0, fmt.Errorf("%w: %s expects a non-negative integer, got %q", ErrMalformedOperands, keyword, token)
	}
	return n, nil
}

// IsSymbol reports whether s is a legal label or function name: letters,
// digits, '_', '.', '$' and ':', not starting with a digit.
func IsSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '.', r == '$', r == ':':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
