package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatHack renders words in the .hack text format: one 16-character binary
// line per word, most significant bit first.
func FormatHack(words []uint16) string {
	var sb strings.Builder
	sb.Grow(len(words) * 17)
	for _, w := range words {
		fmt.Fprintf(&sb, "%016b\n", w)
	}
	return sb.String()
}

// ParseHack reads the .hack text format. Blank lines are ignored; any other
// line must be exactly sixteen '0' or '1' characters.
func ParseHack(text string) ([]uint16, error) {
	var words []uint16
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) != 16 || strings.Trim(line, "01") != "" {
			return nil, &LineError{Line: i + 1, Text: line, Err: fmt.Errorf("%w: expected 16 binary digits", ErrSyntax)}
		}
		v, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, &LineError{Line: i + 1, Text: line, Err: fmt.Errorf("%w: %v", ErrSyntax, err)}
		}
		words = append(words, uint16(v))
	}
	if len(words) > ROMSize {
		return nil, fmt.Errorf("%w: %d words exceed ROM size %d", ErrAddressRange, len(words), ROMSize)
	}
	return words, nil
}
