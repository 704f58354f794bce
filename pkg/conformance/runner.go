package conformance

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gohack/pkg/asm"
	"gohack/pkg/codegen"
	"gohack/pkg/cpu"
)

// DefaultMaxSteps bounds every test that does not set its own step budget.
const DefaultMaxSteps = 1_000_000

// haltLabel ends programs that have no bootstrap of their own.
const haltLabel = "__END"

// TestResult represents the outcome of running a single test
type TestResult struct {
	Test       LoadedTest
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Runner executes conformance tests
type Runner struct {
	MaxSteps uint64
}

func NewRunner() *Runner {
	return &Runner{MaxSteps: DefaultMaxSteps}
}

// Run executes a single test case
func (r *Runner) Run(test LoadedTest) TestResult {
	if skipped, reason := test.Test.IsSkipped(); skipped {
		return TestResult{
			Test:       test,
			Skipped:    true,
			SkipReason: reason,
		}
	}

	err := r.execute(test.Test)
	return TestResult{
		Test:   test,
		Passed: err == nil,
		Error:  err,
	}
}

// RunAll executes all loaded tests
func (r *Runner) RunAll(tests []LoadedTest) []TestResult {
	results := make([]TestResult, len(tests))
	for i, test := range tests {
		results[i] = r.Run(test)
	}
	return results
}

func (r *Runner) execute(tc TestCase) error {
	machine, syms, err := r.load(tc)
	if err == nil {
		steps := tc.Steps
		if steps == 0 {
			steps = r.MaxSteps
		}
		err = machine.Run(steps)
	}

	if tc.Expect.Error != "" {
		if err == nil {
			return fmt.Errorf("expected error containing %q, got none", tc.Expect.Error)
		}
		if !strings.Contains(err.Error(), tc.Expect.Error) {
			return fmt.Errorf("expected error containing %q, got %v", tc.Expect.Error, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	return checkRAM(machine, syms, tc.Expect.RAM)
}

// load builds the test program and applies its initial RAM writes.
func (r *Runner) load(tc TestCase) (*cpu.CPU, *asm.SymbolTable, error) {
	text, err := source(tc)
	if err != nil {
		return nil, nil, err
	}

	a := asm.NewAssembler()
	words, _, err := a.Assemble(text)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: %w", err)
	}

	machine := cpu.NewCPU()
	if err := machine.Load(words); err != nil {
		return nil, nil, err
	}
	for _, key := range sortedKeys(tc.RAM) {
		addr, err := resolve(a.Symbols(), key)
		if err != nil {
			return nil, nil, err
		}
		machine.WriteMem(addr, uint16(tc.RAM[key]))
	}
	return machine, a.Symbols(), nil
}

// source returns the assembly text for a test.
func source(tc TestCase) (string, error) {
	if len(tc.Units) == 0 {
		if tc.Asm == "" {
			return "", errors.New("test has neither units nor asm")
		}
		return tc.Asm, nil
	}

	units := make([]codegen.Unit, len(tc.Units))
	for i, u := range tc.Units {
		units[i] = codegen.Unit{Name: u.Name, Source: u.Code}
	}
	instrs, err := codegen.Translate(units, tc.Bootstrap, codegen.WithComments())
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if !tc.Bootstrap {
		instrs = append(instrs,
			asm.Label(haltLabel),
			asm.A(haltLabel),
			asm.C("", "0", "JMP"),
		)
	}
	return asm.Format(instrs), nil
}

func checkRAM(machine *cpu.CPU, syms *asm.SymbolTable, want map[string]int) error {
	var mismatches []string
	for _, key := range sortedKeys(want) {
		addr, err := resolve(syms, key)
		if err != nil {
			return err
		}
		got := machine.ReadMem(addr)
		if got != uint16(want[key]) {
			mismatches = append(mismatches, fmt.Sprintf("%s (RAM[%d]) = %d, want %d", key, addr, int16(got), want[key]))
		}
	}
	if len(mismatches) > 0 {
		return errors.New(strings.Join(mismatches, "; "))
	}
	return nil
}

// resolve turns a RAM key into an address. Keys are decimal addresses or
// any symbol the assembler bound, including statics such as Main.0.
func resolve(syms *asm.SymbolTable, key string) (uint16, error) {
	if n, err := strconv.Atoi(key); err == nil {
		if n < 0 || n >= cpu.RAMSize {
			return 0, fmt.Errorf("RAM address %d out of range", n)
		}
		return uint16(n), nil
	}
	if addr, ok := syms.Lookup(key); ok {
		return addr, nil
	}
	return 0, fmt.Errorf("unknown RAM symbol %q", key)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SummaryStats computes statistics from test results
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// ComputeStats generates statistics from test results
func ComputeStats(results []TestResult) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		if r.Skipped {
			stats.Skipped++
		} else if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}
