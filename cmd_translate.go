//go:build !js

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gohack/pkg/program"
)

var translateOpts struct {
	out         string
	noBootstrap bool
	comments    bool
}

var translateCmd = &cobra.Command{
	Use:   "translate <file.vm|dir>...",
	Short: "Translate VM code to Hack assembly",
	Long: `Translate lowers one or more VM translation units to a single Hack
assembly file. The program starts with a bootstrap that sets SP to 256 and
calls Sys.init unless --no-bootstrap is given.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := program.CompileVM(args, program.Options{
			Bootstrap: !translateOpts.noBootstrap,
			Comments:  translateOpts.comments,
		})
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		logf("%d units -> %d words", len(b.Units), len(b.Words))

		out := translateOpts.out
		if out == "" {
			out = defaultOutput(args, ".asm")
		}
		if err := writeText(out, b.Assembly); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "translated %d unit(s) -> %s\n", len(b.Units), out)
		return nil
	},
}

func init() {
	f := translateCmd.Flags()
	f.StringVarP(&translateOpts.out, "out", "o", "", "output .asm path")
	f.BoolVar(&translateOpts.noBootstrap, "no-bootstrap", false, "omit the SP setup and call to Sys.init")
	f.BoolVar(&translateOpts.comments, "comments", false, "annotate the output with the VM source of each command")
	rootCmd.AddCommand(translateCmd)
}
