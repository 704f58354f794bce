//go:build !js

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gohack/pkg/asm"
	"gohack/pkg/config"
	"gohack/pkg/program"
	"gohack/pkg/utils"
)

var buildOpts struct {
	config      string
	noBootstrap bool
	comments    bool
}

var buildCmd = &cobra.Command{
	Use:   "build [<file.vm|dir>...]",
	Short: "Translate and assemble a VM program in one step",
	Long: `Build writes both the .asm and the .hack file for a VM program.

With no arguments the program is described by a project file (hack.yaml in
the current directory unless --config names another):

    name: Pong
    bootstrap: true
    units: [Sys.vm, Main.vm, Ball.vm]
    asm: build/Pong.asm
    hack: build/Pong.hack
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := program.Options{
			Bootstrap: !buildOpts.noBootstrap,
			Comments:  buildOpts.comments,
		}

		var (
			b                 *program.Build
			asmPath, hackPath string
			err               error
		)
		if len(args) == 0 {
			path := buildOpts.config
			if path == "" {
				path = config.DefaultFile
			}
			p, err := config.Load(path)
			if err != nil {
				return err
			}
			logf("project %s: %d units", p.Name, len(p.Units))
			if b, err = program.CompileProject(p, opts); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			asmPath, hackPath = p.AsmPath(), p.HackPath()
		} else {
			if b, err = program.CompileVM(args, opts); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			asmPath = defaultOutput(args, ".asm")
			hackPath = utils.ReplaceExt(asmPath, ".hack")
		}

		if err := writeText(asmPath, b.Assembly); err != nil {
			return err
		}
		if err := writeText(hackPath, asm.FormatHack(b.Words)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "built %d words -> %s, %s\n", len(b.Words), asmPath, hackPath)
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildOpts.config, "config", "c", "", "project file (default "+config.DefaultFile+")")
	f.BoolVar(&buildOpts.noBootstrap, "no-bootstrap", false, "omit the SP setup and call to Sys.init")
	f.BoolVar(&buildOpts.comments, "comments", false, "annotate the assembly with VM source")
	rootCmd.AddCommand(buildCmd)
}
