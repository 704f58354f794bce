//go:build !js

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"gohack/pkg/asm"
	"gohack/pkg/cpu"
	"gohack/pkg/program"
)

// DefaultMaxSteps stops runaway programs.
const DefaultMaxSteps = 10_000_000

var runOpts struct {
	steps       uint64
	noBootstrap bool
	dump        []string
	key         int
	trace       bool
	screenshot  string
	scale       int
	snapshot    string
	restore     string
}

var runCmd = &cobra.Command{
	Use:   "run [<file.hack|file.asm|file.vm|dir|hack.yaml>]",
	Short: "Run a program on the emulated Hack computer",
	Long: `Run loads a program into ROM and executes it until it halts in a
"(L) @L 0;JMP" loop or the step budget runs out. VM input is translated
and assembled first.

--restore resumes a machine saved with --snapshot; the program argument is
then optional.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && runOpts.restore == "" {
			return errors.New("nothing to run: give a program or --restore")
		}

		machine := cpu.NewCPU()
		name := runOpts.restore
		if len(args) == 1 {
			name = args[0]
			words, err := program.Load(args[0], program.Options{Bootstrap: !runOpts.noBootstrap})
			if err != nil {
				return err
			}
			if err := machine.Load(words); err != nil {
				return err
			}
			logf("loaded %d words", len(words))
		}
		if runOpts.restore != "" {
			if err := machine.RestoreFromFile(runOpts.restore); err != nil {
				return fmt.Errorf("restore %s: %w", runOpts.restore, err)
			}
		}
		if runOpts.key != 0 {
			machine.SetKey(uint16(runOpts.key))
		}

		w := cmd.OutOrStdout()
		if runOpts.trace {
			machine.Trace = traceTo(w)
		}

		runErr := machine.Run(runOpts.steps)
		if runErr != nil && !errors.Is(runErr, cpu.ErrStepLimit) {
			return runErr
		}

		fmt.Fprintf(w, "run complete (%s): PC=%d A=%d D=%d SP=%d steps=%d halted=%t\n",
			name, machine.PC, machine.A, int16(machine.D), machine.RAM[0], machine.Steps, machine.Halted)
		if err := dumpRAM(w, machine, runOpts.dump); err != nil {
			return err
		}

		if runOpts.screenshot != "" {
			if err := machine.SaveScreenshot(runOpts.screenshot, runOpts.scale); err != nil {
				return err
			}
			logf("screenshot -> %s", runOpts.screenshot)
		}
		if runOpts.snapshot != "" {
			if err := machine.HibernateToFile(runOpts.snapshot); err != nil {
				return err
			}
			logf("snapshot -> %s", runOpts.snapshot)
		}
		return runErr
	},
}

func init() {
	f := runCmd.Flags()
	f.Uint64Var(&runOpts.steps, "steps", DefaultMaxSteps, "maximum instructions to execute, 0 for no limit")
	f.BoolVar(&runOpts.noBootstrap, "no-bootstrap", false, "translate VM input without the bootstrap")
	f.StringSliceVar(&runOpts.dump, "dump", nil, "RAM addresses or symbols to print after the run (e.g. SP,LCL,256)")
	f.IntVar(&runOpts.key, "key", 0, "key code held down for the whole run")
	f.BoolVar(&runOpts.trace, "trace", false, "print every executed instruction")
	f.StringVar(&runOpts.screenshot, "screenshot", "", "write the screen to a PNG file")
	f.IntVar(&runOpts.scale, "scale", 1, "screenshot scale factor")
	f.StringVar(&runOpts.snapshot, "snapshot", "", "save the machine state to a zip file after the run")
	f.StringVar(&runOpts.restore, "restore", "", "load machine state from a zip file before the run")
	rootCmd.AddCommand(runCmd)
}

func traceTo(w io.Writer) func(pc, word uint16) {
	return func(pc, word uint16) {
		text := fmt.Sprintf("%016b", word)
		if in, err := asm.Decode(word); err == nil {
			text = in.String()
		}
		fmt.Fprintf(w, "%5d  %04x  %s\n", pc, word, text)
	}
}

// dumpRAM prints the requested cells. Keys are decimal addresses or
// predefined symbols.
func dumpRAM(w io.Writer, machine *cpu.CPU, keys []string) error {
	syms := asm.NewSymbolTable()
	for _, key := range keys {
		var addr uint16
		if n, err := strconv.ParseUint(key, 10, 16); err == nil {
			addr = uint16(n)
		} else if a, ok := syms.Lookup(key); ok {
			addr = a
		} else {
			return fmt.Errorf("dump: unknown address %q", key)
		}
		v := machine.ReadMem(addr)
		fmt.Fprintf(w, "RAM[%d] %s = %d\n", addr, key, int16(v))
	}
	return nil
}
