package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindA Kind = iota
	KindC
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindA:
		return "A"
	case KindC:
		return "C"
	case KindLabel:
		return "label"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Instruction is one line of Hack assembly. Symbol holds the A-instruction
// operand (decimal or symbolic) or the label name; Dest, Comp and Jump are
// only used by C-instructions. Comment is emitted as a "//" line ahead of the
// instruction by Format and never affects encoding.
type Instruction struct {
	Kind    Kind
	Symbol  string
	Dest    string
	Comp    string
	Jump    string
	Comment string
}

// A builds an A-instruction loading a symbol or decimal literal.
func A(value string) Instruction {
	return Instruction{Kind: KindA, Symbol: value}
}

// AConst builds an A-instruction loading a numeric constant.
func AConst(n int) Instruction {
	return Instruction{Kind: KindA, Symbol: strconv.Itoa(n)}
}

func C(dest, comp, jump string) Instruction {
	return Instruction{Kind: KindC, Dest: dest, Comp: comp, Jump: jump}
}

func Label(name string) Instruction {
	return Instruction{Kind: KindLabel, Symbol: name}
}

// WithComment returns a copy of i annotated with comment.
func (i Instruction) WithComment(comment string) Instruction {
	i.Comment = comment
	return i
}

func (i Instruction) String() string {
	switch i.Kind {
	case KindA:
		return "@" + i.Symbol
	case KindLabel:
		return "(" + i.Symbol + ")"
	}
	var sb strings.Builder
	if i.Dest != "" {
		sb.WriteString(i.Dest)
		sb.WriteByte('=')
	}
	sb.WriteString(i.Comp)
	if i.Jump != "" {
		sb.WriteByte(';')
		sb.WriteString(i.Jump)
	}
	return sb.String()
}

// Format renders instructions as assembly source, one per line. Labels start
// at column zero, everything else is indented.
func Format(instrs []Instruction) string {
	var sb strings.Builder
	for _, in := range instrs {
		if in.Comment != "" {
			sb.WriteString("// ")
			sb.WriteString(in.Comment)
			sb.WriteByte('\n')
		}
		if in.Kind != KindLabel {
			sb.WriteString("    ")
		}
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// sepSpace matches the blanks allowed around the "=" and ";" of a
// C-instruction.
var sepSpace = regexp.MustCompile(`[ \t]*([=;])[ \t]*`)

// ParseInstruction decodes one comment-free line of assembly. Leading and
// trailing blanks are ignored, as are blanks around "=" and ";". Any other
// blank inside the line is a syntax error.
func ParseInstruction(line string) (Instruction, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Instruction{}, fmt.Errorf("%w: empty instruction", ErrSyntax)
	}
	if text[0] != '(' && text[0] != '@' {
		text = sepSpace.ReplaceAllString(text, "$1")
	}
	if strings.ContainsAny(text, " \t") {
		return Instruction{}, fmt.Errorf("%w: unexpected blank in %q", ErrSyntax, text)
	}

	switch text[0] {
	case '(':
		if !strings.HasSuffix(text, ")") {
			return Instruction{}, fmt.Errorf("%w: unterminated label %q", ErrSyntax, text)
		}
		name := text[1 : len(text)-1]
		if !isSymbol(name) {
			return Instruction{}, fmt.Errorf("%w: invalid label name %q", ErrSyntax, name)
		}
		return Label(name), nil

	case '@':
		value := text[1:]
		if value == "" {
			return Instruction{}, fmt.Errorf("%w: missing A-instruction operand", ErrSyntax)
		}
		if isNumeric(value) {
			if _, err := parseAddress(value); err != nil {
				return Instruction{}, err
			}
			return A(value), nil
		}
		if !isSymbol(value) {
			return Instruction{}, fmt.Errorf("%w: invalid symbol %q", ErrSyntax, value)
		}
		return A(value), nil
	}

	return parseC(text)
}

func parseC(text string) (Instruction, error) {
	if strings.Count(text, "=") > 1 || strings.Count(text, ";") > 1 {
		return Instruction{}, fmt.Errorf("%w: expected [dest=]comp[;jump], got %q", ErrSyntax, text)
	}

	var in Instruction
	in.Kind = KindC

	rest := text
	if dest, after, found := strings.Cut(rest, "="); found {
		if dest == "" {
			return Instruction{}, fmt.Errorf("%w: empty dest in %q", ErrSyntax, text)
		}
		in.Dest = dest
		rest = after
	}
	if comp, jump, found := strings.Cut(rest, ";"); found {
		if jump == "" {
			return Instruction{}, fmt.Errorf("%w: empty jump in %q", ErrSyntax, text)
		}
		in.Comp = comp
		in.Jump = jump
	} else {
		in.Comp = rest
	}
	if in.Comp == "" {
		return Instruction{}, fmt.Errorf("%w: missing comp in %q", ErrSyntax, text)
	}

	if _, err := EncodeC(in.Dest, in.Comp, in.Jump); err != nil {
		return Instruction{}, err
	}
	return in, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || c == '+' || (c >= '0' && c <= '9')
}

func parseAddress(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", ErrSyntax, s)
	}
	if n < 0 || n > MaxAddress {
		return 0, fmt.Errorf("%w: %d not in 0..%d", ErrAddressRange, n, MaxAddress)
	}
	return uint16(n), nil
}

func isSymbol(s string) bool {
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
