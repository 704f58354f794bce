package codegen

import (
	"fmt"

	"gohack/pkg/asm"
	"gohack/pkg/vm"
)

// Unit is one VM source file. Name scopes its static variables and any
// labels that appear before its first function.
type Unit struct {
	Name   string
	Source string
}

// TranslateUnit parses u and translates every command in it. Failures are
// reported as "<unit>: line N: ..." and unwrap to a *vm.LineError.
func (cg *CodeGen) TranslateUnit(u Unit) error {
	lines, err := vm.Parse(u.Source)
	if err != nil {
		return fmt.Errorf("%s: %w", u.Name, err)
	}
	if err := cg.SetTranslationUnit(u.Name); err != nil {
		return err
	}
	return cg.translateLines(u.Name, lines)
}

func (cg *CodeGen) translateLines(name string, lines []vm.Line) error {
	for _, l := range lines {
		if err := cg.Translate(l.Command); err != nil {
			return fmt.Errorf("%s: %w", name, &vm.LineError{Line: l.No, Text: l.Command.String(), Err: err})
		}
	}
	return nil
}

// Translate lowers units, in order, to one instruction list. With bootstrap
// set the list starts with the SP setup and the call to Sys.init.
func Translate(units []Unit, bootstrap bool, opts ...Option) ([]asm.Instruction, error) {
	cg := New(opts...)
	if bootstrap {
		if err := cg.EmitBootstrap(); err != nil {
			return nil, err
		}
	}
	for _, u := range units {
		if err := cg.TranslateUnit(u); err != nil {
			return nil, err
		}
	}
	return cg.Finish(), nil
}

// Compile runs the whole pipeline and returns the assembly text along with
// the machine words. The text is returned even when assembly fails.
func Compile(units []Unit, bootstrap bool, opts ...Option) (*string, []uint16, error) {
	instrs, err := Translate(units, bootstrap, opts...)
	if err != nil {
		return nil, nil, err
	}

	assembly := asm.Format(instrs)

	machineCode, _, err := asm.AssembleInstructions(instrs)
	if err != nil {
		return &assembly, nil, fmt.Errorf("assembly error: %w", err)
	}

	return &assembly, machineCode, nil
}
