package codegen

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"gohack/pkg/asm"
	"gohack/pkg/cpu"
	"gohack/pkg/vm"
)

// defaultFrame gives programs without a bootstrap a usable stack and
// segment bases.
func defaultFrame(c *cpu.CPU) {
	c.RAM[0] = 256
	c.RAM[1] = 300
	c.RAM[2] = 400
	c.RAM[3] = 3000
	c.RAM[4] = 3010
}

// runVM translates units, executes the result until it halts and returns
// the machine. Programs without a bootstrap get a halt loop appended.
func runVM(t *testing.T, bootstrap bool, setup func(*cpu.CPU), units ...Unit) *cpu.CPU {
	t.Helper()
	instrs, err := Translate(units, bootstrap)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !bootstrap {
		instrs = append(instrs, asm.Label("__HALT"), asm.A("__HALT"), asm.C("", "0", "JMP"))
	}
	words, _, err := asm.AssembleInstructions(instrs)
	if err != nil {
		t.Fatalf("AssembleInstructions: %v", err)
	}
	c := cpu.NewCPU()
	if err := c.Load(words); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if setup != nil {
		setup(c)
	}
	if err := c.Run(1_000_000); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return c
}

func TestPushAddPopLocal(t *testing.T) {
	c := runVM(t, false, defaultFrame, Unit{"Main", `
		push constant 7
		push constant 8
		add
		pop local 0
	`})
	if c.RAM[300] != 15 {
		t.Errorf("local 0 = %d, want 15", c.RAM[300])
	}
	if c.RAM[0] != 256 {
		t.Errorf("SP = %d, want 256", c.RAM[0])
	}
}

func TestArithmetic(t *testing.T) {
	const true16, false16 = 0xFFFF, 0
	tests := []struct {
		src  string
		want uint16
	}{
		{"push constant 10\npush constant 3\nsub", 7},
		{"push constant 10\npush constant 3\nadd", 13},
		{"push constant 12\npush constant 10\nand", 8},
		{"push constant 12\npush constant 10\nor", 14},
		{"push constant 5\nneg", 0xFFFB},
		{"push constant 0\nnot", 0xFFFF},
		{"push constant 5\npush constant 5\neq", true16},
		{"push constant 5\npush constant 6\neq", false16},
		{"push constant 7\npush constant 3\ngt", true16},
		{"push constant 3\npush constant 7\ngt", false16},
		{"push constant 3\npush constant 3\ngt", false16},
		{"push constant 3\npush constant 7\nlt", true16},
		{"push constant 7\npush constant 3\nlt", false16},
		{"push constant 3\nneg\npush constant 2\nlt", true16},
		{"push constant 32767\npush constant 0\ngt", true16},
	}

	for _, tc := range tests {
		name := strings.ReplaceAll(tc.src, "\n", "; ")
		t.Run(name, func(t *testing.T) {
			c := runVM(t, false, defaultFrame, Unit{"Main", tc.src})
			if c.RAM[0] != 257 {
				t.Fatalf("SP = %d, want 257", c.RAM[0])
			}
			if c.RAM[256] != tc.want {
				t.Errorf("top = 0x%04X, want 0x%04X", c.RAM[256], tc.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	c := runVM(t, false, defaultFrame, Unit{"Main", `
		push constant 11
		pop this 2
		push constant 22
		pop that 5
		push constant 33
		pop argument 1
		push constant 44
		pop temp 7
		push constant 55
		pop static 3
		push this 2
		push that 5
		add
		pop local 1
		push argument 1
		push temp 7
		add
		push static 3
		add
		pop local 2
	`})

	checks := []struct {
		addr int
		want uint16
	}{
		{3002, 11},
		{3015, 22},
		{401, 33},
		{12, 44},
		{16, 55},
		{301, 33},
		{302, 132},
		{0, 256},
	}
	for _, ck := range checks {
		if c.RAM[ck.addr] != ck.want {
			t.Errorf("RAM[%d] = %d, want %d", ck.addr, c.RAM[ck.addr], ck.want)
		}
	}
}

func TestPointerSegment(t *testing.T) {
	c := runVM(t, false, defaultFrame, Unit{"Main", `
		push constant 5000
		pop pointer 0
		push constant 6000
		pop pointer 1
		push constant 1
		pop this 0
		push constant 2
		pop that 0
		push pointer 1
		pop local 0
	`})
	if c.RAM[3] != 5000 || c.RAM[4] != 6000 {
		t.Errorf("THIS/THAT = %d/%d, want 5000/6000", c.RAM[3], c.RAM[4])
	}
	if c.RAM[5000] != 1 || c.RAM[6000] != 2 {
		t.Errorf("RAM[5000]/RAM[6000] = %d/%d, want 1/2", c.RAM[5000], c.RAM[6000])
	}
	if c.RAM[300] != 6000 {
		t.Errorf("local 0 = %d, want 6000", c.RAM[300])
	}
}

func TestStaticScoping(t *testing.T) {
	c := runVM(t, false, defaultFrame,
		Unit{"Foo", "push constant 1\npop static 0\n"},
		Unit{"Bar", "push constant 2\npop static 0\npush constant 3\npop static 1\n"},
		Unit{"Foo", "push static 0\npop local 0\n"},
	)
	if c.RAM[16] != 1 || c.RAM[17] != 2 || c.RAM[18] != 3 {
		t.Errorf("statics = %d %d %d, want 1 2 3", c.RAM[16], c.RAM[17], c.RAM[18])
	}
	if c.RAM[300] != 1 {
		t.Errorf("Foo.0 read back as %d, want 1", c.RAM[300])
	}

	instrs, err := Translate([]Unit{{"Foo", "push static 0"}, {"Bar", "push static 0"}}, false)
	if err != nil {
		t.Fatal(err)
	}
	var symbols []string
	for _, in := range instrs {
		if in.Kind == asm.KindA && strings.Contains(in.Symbol, ".") {
			symbols = append(symbols, in.Symbol)
		}
	}
	if !reflect.DeepEqual(symbols, []string{"Foo.0", "Bar.0"}) {
		t.Errorf("static symbols = %v, want [Foo.0 Bar.0]", symbols)
	}
}

func TestBranching(t *testing.T) {
	// Sums 1..10 into local 0.
	c := runVM(t, false, defaultFrame, Unit{"Main", `
		push constant 0
		pop local 0
		push constant 10
		pop local 1
	label LOOP
		push local 1
		push constant 0
		eq
		if-goto DONE
		push local 0
		push local 1
		add
		pop local 0
		push local 1
		push constant 1
		sub
		pop local 1
		goto LOOP
	label DONE
	`})
	if c.RAM[300] != 55 {
		t.Errorf("sum = %d, want 55", c.RAM[300])
	}
	if c.RAM[0] != 256 {
		t.Errorf("SP = %d, want 256", c.RAM[0])
	}
}

func TestLabelScoping(t *testing.T) {
	cg := New()
	if err := cg.SetTranslationUnit("Loop"); err != nil {
		t.Fatal(err)
	}
	steps := []vm.Command{
		vm.Label("TOP"),
		vm.Function("Loop.run", 0),
		vm.Label("TOP"),
		vm.Goto("TOP"),
		vm.Function("Loop.other", 0),
		vm.IfGoto("TOP"),
	}
	for _, cmd := range steps {
		if err := cg.Translate(cmd); err != nil {
			t.Fatalf("Translate(%v): %v", cmd, err)
		}
	}

	var labels, targets []string
	for _, in := range cg.Finish() {
		switch {
		case in.Kind == asm.KindLabel:
			labels = append(labels, in.Symbol)
		case in.Kind == asm.KindA && strings.Contains(in.Symbol, "$"):
			targets = append(targets, in.Symbol)
		}
	}
	wantLabels := []string{"Loop$TOP", "Loop.run", "Loop.run$TOP", "Loop.other"}
	if !reflect.DeepEqual(labels, wantLabels) {
		t.Errorf("labels = %v, want %v", labels, wantLabels)
	}
	wantTargets := []string{"Loop.run$TOP", "Loop.other$TOP"}
	if !reflect.DeepEqual(targets, wantTargets) {
		t.Errorf("targets = %v, want %v", targets, wantTargets)
	}
}

func TestLabelUniqueness(t *testing.T) {
	instrs, err := Translate([]Unit{
		{"Sys", `
			function Sys.init 0
			call Main.f 0
			call Main.f 0
			call Main.g 0
			push constant 1
			push constant 1
			eq
			push constant 1
			push constant 2
			lt
			push constant 2
			push constant 1
			gt
		`},
		{"Main", `
			function Main.f 0
			push constant 1
			push constant 1
			eq
			return
			function Main.g 0
			call Main.f 0
			return
		`},
	}, true)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, in := range instrs {
		if in.Kind != asm.KindLabel {
			continue
		}
		if seen[in.Symbol] {
			t.Errorf("label %q emitted twice", in.Symbol)
		}
		seen[in.Symbol] = true
	}
	for _, want := range []string{
		"Sys.init$ret.0",
		"Main.f$ret.0", "Main.f$ret.1", "Main.f$ret.2",
		"Main.g$ret.0",
		"CMP_END_0", "CMP_END_1", "CMP_END_2", "CMP_END_3",
	} {
		if !seen[want] {
			t.Errorf("missing label %q", want)
		}
	}

	if _, _, err := asm.AssembleInstructions(instrs); err != nil {
		t.Errorf("AssembleInstructions: %v", err)
	}
}

func TestCallReturn(t *testing.T) {
	c := runVM(t, true, nil,
		Unit{"Sys", `
			function Sys.init 0
			push constant 3
			push constant 4
			call Main.add 2
			pop static 0
			label END
			goto END
		`},
		Unit{"Main", `
			function Main.add 1
			push argument 0
			push argument 1
			add
			pop local 0
			push local 0
			return
		`},
	)
	if c.RAM[16] != 7 {
		t.Errorf("Sys.0 = %d, want 7", c.RAM[16])
	}
	// Sys.init's frame: ARG=256, LCL=SP=261.
	if c.RAM[0] != 261 || c.RAM[1] != 261 || c.RAM[2] != 256 {
		t.Errorf("SP/LCL/ARG = %d/%d/%d, want 261/261/256", c.RAM[0], c.RAM[1], c.RAM[2])
	}
}

func TestReturnWithoutArguments(t *testing.T) {
	// The result overwrites the slot holding the return address.
	c := runVM(t, true, nil,
		Unit{"Sys", `
			function Sys.init 0
			call Main.seven 0
			call Main.seven 0
			add
			pop static 0
			label END
			goto END
		`},
		Unit{"Main", `
			function Main.seven 0
			push constant 7
			return
		`},
	)
	if c.RAM[16] != 14 {
		t.Errorf("Sys.0 = %d, want 14", c.RAM[16])
	}
	if c.RAM[0] != 261 {
		t.Errorf("SP = %d, want 261", c.RAM[0])
	}
}

func TestRecursion(t *testing.T) {
	c := runVM(t, true, nil,
		Unit{"Sys", `
			function Sys.init 0
			push constant 12
			call Main.fib 1
			pop static 0
			label END
			goto END
		`},
		Unit{"Main", `
			function Main.fib 0
			push argument 0
			push constant 2
			lt
			if-goto BASE
			push argument 0
			push constant 1
			sub
			call Main.fib 1
			push argument 0
			push constant 2
			sub
			call Main.fib 1
			add
			return
			label BASE
			push argument 0
			return
		`},
	)
	if c.RAM[16] != 144 {
		t.Errorf("fib(12) = %d, want 144", c.RAM[16])
	}
}

func TestFunctionZeroesLocals(t *testing.T) {
	garbage := func(c *cpu.CPU) {
		for i := 256; i < 280; i++ {
			c.RAM[i] = 0xBEEF
		}
	}
	c := runVM(t, true, garbage, Unit{"Sys", `
		function Sys.init 3
		push local 0
		push local 1
		or
		push local 2
		or
		push constant 1
		add
		pop static 0
		label END
		goto END
	`})
	if c.RAM[16] != 1 {
		t.Errorf("locals not zeroed: static 0 = 0x%04X, want 1", c.RAM[16])
	}
	if c.RAM[0] != 264 {
		t.Errorf("SP = %d, want 264", c.RAM[0])
	}
}

func TestBootstrapFirst(t *testing.T) {
	instrs, err := Translate([]Unit{{"Sys", "function Sys.init 0\nlabel L\ngoto L\n"}}, true)
	if err != nil {
		t.Fatal(err)
	}
	head := []asm.Instruction{asm.AConst(256), asm.C("D", "A", ""), asm.A("SP"), asm.C("M", "D", "")}
	if !reflect.DeepEqual(instrs[:4], head) {
		t.Errorf("bootstrap head = %v, want %v", instrs[:4], head)
	}

	cg := New()
	if err := cg.EmitBootstrap(); err != nil {
		t.Fatal(err)
	}
	if err := cg.EmitBootstrap(); !errors.Is(err, ErrBootstrap) {
		t.Errorf("second EmitBootstrap error = %v, want ErrBootstrap", err)
	}

	cg = New()
	if err := cg.Translate(vm.Push(vm.SegConstant, 1)); err != nil {
		t.Fatal(err)
	}
	if err := cg.EmitBootstrap(); !errors.Is(err, ErrBootstrap) {
		t.Errorf("late EmitBootstrap error = %v, want ErrBootstrap", err)
	}
}

func TestRejectsInvalidCommands(t *testing.T) {
	tests := []struct {
		cmd  vm.Command
		want error
	}{
		{vm.Pop(vm.SegConstant, 3), vm.ErrSegmentIndex},
		{vm.Push(vm.SegConstant, 32768), vm.ErrSegmentIndex},
		{vm.Push(vm.SegTemp, 8), vm.ErrSegmentIndex},
		{vm.Pop(vm.SegPointer, 2), vm.ErrSegmentIndex},
		{vm.Push(vm.SegLocal, -1), vm.ErrSegmentIndex},
		{vm.Call("Main.f", -1), vm.ErrMalformedOperands},
		{vm.Label("1bad"), vm.ErrMalformedOperands},
		{vm.Push(vm.SegStatic, 0), ErrNoUnit},
	}

	for _, tc := range tests {
		cg := New()
		if err := cg.Translate(tc.cmd); !errors.Is(err, tc.want) {
			t.Errorf("Translate(%v) error = %v, want %v", tc.cmd, err, tc.want)
		}
		if out := cg.Finish(); len(out) != 0 {
			t.Errorf("Translate(%v) emitted %d instructions", tc.cmd, len(out))
		}
	}

	// A rejected comparison must not consume a label.
	cg := New()
	_ = cg.Translate(vm.Command{Type: vm.CmdArithmetic, Op: vm.Op(99)})
	if err := cg.Translate(vm.Arithmetic(vm.OpEq)); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, in := range cg.Finish() {
		if in.Kind == asm.KindLabel && in.Symbol == "CMP_END_0" {
			found = true
		}
	}
	if !found {
		t.Error("expected CMP_END_0 after a rejected command")
	}
}

func TestSetTranslationUnit(t *testing.T) {
	cg := New()
	for _, name := range []string{"Main", "Sys", "my_file", "a.b"} {
		if err := cg.SetTranslationUnit(name); err != nil {
			t.Errorf("SetTranslationUnit(%q): %v", name, err)
		}
	}
	for _, name := range []string{"", "1abc", "my-file"} {
		if err := cg.SetTranslationUnit(name); !errors.Is(err, ErrUnitName) {
			t.Errorf("SetTranslationUnit(%q) error = %v, want ErrUnitName", name, err)
		}
	}
}

func TestStackNeutrality(t *testing.T) {
	// Each entry leaves SP exactly where it started.
	programs := []string{
		"push constant 1\npop temp 0",
		"push local 0\npop local 1",
		"push constant 1\npush constant 2\nadd\npop static 0",
		"push constant 1\npush constant 2\neq\npop this 0",
		"push constant 1\nneg\nnot\npop that 0",
		"push constant 0\nif-goto SKIP\nlabel SKIP",
		"push pointer 0\npop pointer 0",
	}
	for i, src := range programs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			c := runVM(t, false, defaultFrame, Unit{"Main", src})
			if c.RAM[0] != 256 {
				t.Errorf("SP = %d, want 256", c.RAM[0])
			}
		})
	}
}

func TestWithComments(t *testing.T) {
	cg := New(WithComments())
	if err := cg.SetTranslationUnit("Main"); err != nil {
		t.Fatal(err)
	}
	if err := cg.Translate(vm.Push(vm.SegConstant, 7)); err != nil {
		t.Fatal(err)
	}
	out := cg.Finish()
	if out[0].Comment != "push constant 7" {
		t.Errorf("comment = %q, want %q", out[0].Comment, "push constant 7")
	}
	for _, in := range out[1:] {
		if in.Comment != "" {
			t.Errorf("unexpected comment on %v", in)
		}
	}
	if !strings.HasPrefix(asm.Format(out), "// push constant 7\n") {
		t.Errorf("Format output does not start with the comment:\n%s", asm.Format(out))
	}
}

func TestTranslateUnitErrors(t *testing.T) {
	_, err := Translate([]Unit{{"Main", "push constant 1\npop constant 2\n"}}, false)
	if !errors.Is(err, vm.ErrSegmentIndex) {
		t.Fatalf("error = %v, want ErrSegmentIndex", err)
	}
	if !strings.HasPrefix(err.Error(), "Main: line 2: ") {
		t.Errorf("error %q does not start with Main: line 2", err)
	}

	_, err = Translate([]Unit{{"Main", "push constant 1\nfrobnicate\n"}}, false)
	if !errors.Is(err, vm.ErrUnknownCommand) {
		t.Errorf("error = %v, want ErrUnknownCommand", err)
	}
	var lineErr *vm.LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 2 {
		t.Errorf("error %v does not carry line 2", err)
	}
	if !strings.HasPrefix(err.Error(), "Main: line 2: ") {
		t.Errorf("error %q does not start with Main: line 2", err)
	}
}

func TestTranslateUnitCommandError(t *testing.T) {
	// Parses fine but cannot be translated outside a unit.
	cg := New()
	cg.unit = ""
	err := cg.translateLines("Main", []vm.Line{
		{No: 1, Command: vm.Push(vm.SegConstant, 1)},
		{No: 3, Command: vm.Push(vm.SegStatic, 0)},
	})
	if !errors.Is(err, ErrNoUnit) {
		t.Fatalf("error = %v, want ErrNoUnit", err)
	}
	var lineErr *vm.LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 3 || lineErr.Text != "push static 0" {
		t.Errorf("error %v does not carry line 3", err)
	}
	if !strings.HasPrefix(err.Error(), "Main: line 3: ") {
		t.Errorf("error %q does not start with Main: line 3", err)
	}
}

func TestCompile(t *testing.T) {
	assembly, words, err := Compile([]Unit{{"Sys", "function Sys.init 0\nlabel END\ngoto END\n"}}, true, WithComments())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if assembly == nil || !strings.Contains(*assembly, "// bootstrap") {
		t.Fatalf("assembly missing bootstrap comment")
	}
	fromText, _, err := asm.Assemble(*assembly)
	if err != nil {
		t.Fatalf("Assemble(assembly): %v", err)
	}
	if !reflect.DeepEqual(fromText, words) {
		t.Error("assembling the text gives different words")
	}
}
