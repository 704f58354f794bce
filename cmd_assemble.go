//go:build !js

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gohack/pkg/asm"
	"gohack/pkg/utils"
)

var assembleOpts struct {
	out     string
	symbols bool
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <file.asm>",
	Short: "Assemble Hack assembly into .hack machine code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file %q: %w", args[0], err)
		}

		a := asm.NewAssembler()
		words, _, err := a.Assemble(string(source))
		if err != nil {
			return fmt.Errorf("assembly failed: %w", err)
		}

		out := assembleOpts.out
		if out == "" {
			out = utils.ReplaceExt(args[0], ".hack")
		}
		if err := writeText(out, asm.FormatHack(words)); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if assembleOpts.symbols {
			fmt.Fprint(w, a.Symbols())
		}
		fmt.Fprintf(w, "assembled %d words -> %s\n", len(words), out)
		return nil
	},
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.hack>",
	Short: "Print the instructions encoded in a .hack file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		words, err := asm.ParseHack(string(data))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for addr, line := range asm.Disassemble(words) {
			fmt.Fprintf(w, "%5d  %s\n", addr, line)
		}
		return nil
	},
}

func init() {
	f := assembleCmd.Flags()
	f.StringVarP(&assembleOpts.out, "out", "o", "", "output .hack path")
	f.BoolVar(&assembleOpts.symbols, "symbols", false, "print the symbol table")
	rootCmd.AddCommand(assembleCmd, disasmCmd)
}
