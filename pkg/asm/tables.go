package asm

import (
	"fmt"
	"strconv"
)

// MaxAddress is the largest value an A-instruction can carry; bit 15 marks a
// C-instruction.
const MaxAddress = 0x7FFF

// cPrefix sets the three leading bits of every C-instruction.
const cPrefix uint16 = 0b111 << 13

// compTable holds the a-bit followed by c1..c6.
var compTable = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"D|A": 0b0010101,
	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"D|M": 0b1010101,
}

var destTable = map[string]uint16{
	"":    0b000,
	"M":   0b001,
	"D":   0b010,
	"MD":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"AD":  0b110,
	"AMD": 0b111,
}

var jumpTable = map[string]uint16{
	"":    0b000,
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

var (
	compByBits = invert(compTable)
	destByBits = invert(destTable)
	jumpByBits = invert(jumpTable)
)

func invert(table map[string]uint16) map[uint16]string {
	out := make(map[uint16]string, len(table))
	for k, v := range table {
		out[v] = k
	}
	return out
}

// EncodeC packs a C-instruction as 111 comp(7) dest(3) jump(3).
func EncodeC(dest, comp, jump string) (uint16, error) {
	c, ok := compTable[comp]
	if !ok {
		return 0, fmt.Errorf("%w: comp %q", ErrUnknownMnemonic, comp)
	}
	d, ok := destTable[dest]
	if !ok {
		return 0, fmt.Errorf("%w: dest %q", ErrUnknownMnemonic, dest)
	}
	j, ok := jumpTable[jump]
	if !ok {
		return 0, fmt.Errorf("%w: jump %q", ErrUnknownMnemonic, jump)
	}
	return cPrefix | c<<6 | d<<3 | j, nil
}

// Decode turns a machine word back into an instruction. A-instructions come
// back with their numeric operand since symbol names are not recoverable.
func Decode(word uint16) (Instruction, error) {
	if word&0x8000 == 0 {
		return A(strconv.Itoa(int(word))), nil
	}
	if word&cPrefix != cPrefix {
		return Instruction{}, fmt.Errorf("%w: word %016b lacks the C-instruction prefix", ErrSyntax, word)
	}
	comp, ok := compByBits[(word>>6)&0x7F]
	if !ok {
		return Instruction{}, fmt.Errorf("%w: comp bits %07b", ErrUnknownMnemonic, (word>>6)&0x7F)
	}
	return C(destByBits[(word>>3)&0x7], comp, jumpByBits[word&0x7]), nil
}

// Disassemble decodes a program into assembly text, one instruction per
// line. Undecodable words are rendered as raw binary comments.
func Disassemble(words []uint16) []string {
	out := make([]string, len(words))
	for i, w := range words {
		in, err := Decode(w)
		if err != nil {
			out[i] = fmt.Sprintf("// %016b", w)
			continue
		}
		out[i] = in.String()
	}
	return out
}
