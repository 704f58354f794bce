package asm

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// VariableBase is the address given to the first user variable.
	VariableBase uint16 = 16
	ScreenBase   uint16 = 16384
	KeyboardAddr uint16 = 24576
)

var predefined = map[string]uint16{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": ScreenBase,
	"KBD":    KeyboardAddr,
}

func init() {
	for i := 0; i < 16; i++ {
		predefined[fmt.Sprintf("R%d", i)] = uint16(i)
	}
}

// SymbolTable maps symbols to addresses for a single assembly run. Labels
// are bound by address in pass 1, variables get sequential addresses from
// VariableBase on first reference in pass 2. A bound symbol never changes.
type SymbolTable struct {
	symbols      map[string]uint16
	labels       map[string]bool
	variables    []string
	nextVariable uint16
}

func NewSymbolTable() *SymbolTable {
	s := &SymbolTable{
		symbols:      make(map[string]uint16, len(predefined)),
		labels:       make(map[string]bool),
		nextVariable: VariableBase,
	}
	for name, addr := range predefined {
		s.symbols[name] = addr
	}
	return s
}

func (s *SymbolTable) Lookup(name string) (uint16, bool) {
	addr, ok := s.symbols[name]
	return addr, ok
}

func (s *SymbolTable) Contains(name string) bool {
	_, ok := s.symbols[name]
	return ok
}

// DefineLabel binds name to the instruction address addr.
func (s *SymbolTable) DefineLabel(name string, addr uint16) error {
	if _, exists := s.symbols[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, name)
	}
	if addr > MaxAddress {
		return fmt.Errorf("%w: label %q at %d", ErrAddressRange, name, addr)
	}
	s.symbols[name] = addr
	s.labels[name] = true
	return nil
}

// Resolve returns the address bound to name, allocating the next variable
// slot when the name has not been seen before.
func (s *SymbolTable) Resolve(name string) (uint16, error) {
	if addr, ok := s.symbols[name]; ok {
		return addr, nil
	}
	if s.nextVariable >= ScreenBase {
		return 0, fmt.Errorf("%w: no variable space left for %q", ErrAddressRange, name)
	}
	addr := s.nextVariable
	s.symbols[name] = addr
	s.variables = append(s.variables, name)
	s.nextVariable++
	return addr, nil
}

// Variables lists user variables in allocation order.
func (s *SymbolTable) Variables() []string {
	out := make([]string, len(s.variables))
	copy(out, s.variables)
	return out
}

// Labels lists user labels sorted by name.
func (s *SymbolTable) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for name := range s.labels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *SymbolTable) String() string {
	var sb strings.Builder
	sb.WriteString("Labels:\n")
	for _, name := range s.Labels() {
		fmt.Fprintf(&sb, "  %-24s %5d\n", name, s.symbols[name])
	}
	sb.WriteString("Variables:\n")
	for _, name := range s.variables {
		fmt.Fprintf(&sb, "  %-24s %5d\n", name, s.symbols[name])
	}
	return sb.String()
}
