// Package program turns any supported input into Hack machine code.
package program

import (
	"fmt"
	"os"
	"path/filepath"

	"gohack/pkg/asm"
	"gohack/pkg/codegen"
	"gohack/pkg/config"
	"gohack/pkg/utils"
)

type Options struct {
	// Bootstrap prefixes VM programs with the SP setup and call to
	// Sys.init. Project files carry their own setting.
	Bootstrap bool
	Comments  bool
}

// Build is the result of compiling VM input.
type Build struct {
	Units    []codegen.Unit
	Assembly string
	Words    []uint16
}

// CompileVM translates and assembles the .vm files named by paths.
func CompileVM(paths []string, opts Options) (*Build, error) {
	files, err := utils.CollectVMFiles(paths)
	if err != nil {
		return nil, err
	}
	units, err := utils.ReadUnits(files)
	if err != nil {
		return nil, err
	}
	return CompileUnits(units, opts)
}

// CompileProject builds the units listed in a project file.
func CompileProject(p *config.Project, opts Options) (*Build, error) {
	units, err := p.LoadUnits()
	if err != nil {
		return nil, err
	}
	opts.Bootstrap = p.UsesBootstrap()
	opts.Comments = opts.Comments || p.Comments
	return CompileUnits(units, opts)
}

func CompileUnits(units []codegen.Unit, opts Options) (*Build, error) {
	var cgOpts []codegen.Option
	if opts.Comments {
		cgOpts = append(cgOpts, codegen.WithComments())
	}
	assembly, words, err := codegen.Compile(units, opts.Bootstrap, cgOpts...)
	if err != nil {
		return nil, err
	}
	return &Build{Units: units, Assembly: *assembly, Words: words}, nil
}

// Load produces machine code from a .hack file, an .asm file, a project
// file, a .vm file or a directory of .vm files.
func Load(path string, opts Options) ([]uint16, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		b, err := CompileVM([]string{path}, opts)
		if err != nil {
			return nil, err
		}
		return b.Words, nil
	}

	switch filepath.Ext(path) {
	case ".hack":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return asm.ParseHack(string(data))

	case ".asm":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		words, _, err := asm.Assemble(string(data))
		return words, err

	case utils.VMExt:
		b, err := CompileVM([]string{path}, opts)
		if err != nil {
			return nil, err
		}
		return b.Words, nil

	case ".yaml", ".yml":
		p, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		b, err := CompileProject(p, opts)
		if err != nil {
			return nil, err
		}
		return b.Words, nil
	}
	return nil, fmt.Errorf("%s: unsupported input", path)
}
