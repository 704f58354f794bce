//go:build !js

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "gohack",
	Short: "Hack VM translator, assembler and emulator",
	Long: `gohack turns Hack VM programs into Hack assembly, assembles Hack
assembly into .hack machine code, and runs the result on an emulated Hack
computer.

A VM program is one or more .vm files, or a directory of them. Files are
translated in the order given; a directory contributes its files sorted by
name. Each file's name, without extension, scopes its static variables.
`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		log.SetPrefix("gohack: ")
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

// logf logs only when --verbose is set.
func logf(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
