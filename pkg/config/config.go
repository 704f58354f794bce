// Package config reads hack.yaml project files.
//
//	name: Pong
//	bootstrap: true
//	units: [Sys.vm, Main.vm, Ball.vm]
//	asm: build/Pong.asm
//	hack: build/Pong.hack
//
// Units are translated in the order listed. Relative paths resolve against
// the directory holding the project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gohack/pkg/codegen"
	"gohack/pkg/utils"
)

// DefaultFile is looked up when no project file is named.
const DefaultFile = "hack.yaml"

var ErrNoUnits = errors.New("project lists no units")

type Project struct {
	Name      string   `yaml:"name"`
	Bootstrap *bool    `yaml:"bootstrap,omitempty"`
	Comments  bool     `yaml:"comments,omitempty"`
	Units     []string `yaml:"units"`
	Asm       string   `yaml:"asm,omitempty"`
	Hack      string   `yaml:"hack,omitempty"`

	dir string
}

// Load reads and validates the project file at path.
func Load(path string) (*Project, error) {
	fullPath, dir, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a project whose relative paths are based at dir.
func Parse(data []byte, dir string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	p.dir = dir
	if p.Name == "" {
		p.Name = filepath.Base(dir)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Project) Validate() error {
	if len(p.Units) == 0 {
		return ErrNoUnits
	}
	for _, u := range p.Units {
		if filepath.Ext(u) != utils.VMExt {
			return fmt.Errorf("unit %q is not a %s file", u, utils.VMExt)
		}
	}
	return nil
}

// UsesBootstrap defaults to true when the file does not say.
func (p *Project) UsesBootstrap() bool {
	return p.Bootstrap == nil || *p.Bootstrap
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}

// UnitPaths returns the unit files, resolved and in translation order.
func (p *Project) UnitPaths() []string {
	out := make([]string, len(p.Units))
	for i, u := range p.Units {
		out[i] = p.resolve(u)
	}
	return out
}

func (p *Project) AsmPath() string {
	if p.Asm != "" {
		return p.resolve(p.Asm)
	}
	return filepath.Join(p.dir, p.Name+".asm")
}

func (p *Project) HackPath() string {
	if p.Hack != "" {
		return p.resolve(p.Hack)
	}
	return filepath.Join(p.dir, p.Name+".hack")
}

// LoadUnits reads every unit file.
func (p *Project) LoadUnits() ([]codegen.Unit, error) {
	return utils.ReadUnits(p.UnitPaths())
}
