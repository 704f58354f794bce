package program

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gohack/pkg/asm"
	"gohack/pkg/config"
)

const sysVM = `function Sys.init 0
    push constant 42
    pop static 0
label HALT
    goto HALT
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAllInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Sys.vm"), sysVM)

	b, err := CompileVM([]string{dir}, Options{Bootstrap: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Units) != 1 || b.Units[0].Name != "Sys" {
		t.Fatalf("units = %+v", b.Units)
	}
	writeFile(t, filepath.Join(dir, "Sys.asm"), b.Assembly)
	writeFile(t, filepath.Join(dir, "Sys.hack"), asm.FormatHack(b.Words))
	writeFile(t, filepath.Join(dir, "hack.yaml"), "name: Sys\nunits: [Sys.vm]\n")

	for _, path := range []string{
		dir,
		filepath.Join(dir, "Sys.vm"),
		filepath.Join(dir, "Sys.asm"),
		filepath.Join(dir, "Sys.hack"),
		filepath.Join(dir, "hack.yaml"),
	} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			words, err := Load(path, Options{Bootstrap: true})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(words, b.Words) {
				t.Errorf("Load(%s) differs from the direct build", path)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	writeFile(t, filepath.Join(dir, "Bad.asm"), "@1\nD=Q\n")

	tests := []struct {
		path    string
		wantErr string
	}{
		{filepath.Join(dir, "missing.vm"), "no such file"},
		{filepath.Join(dir, "notes.txt"), "unsupported input"},
		{filepath.Join(dir, "Bad.asm"), "line 2"},
	}
	for _, tc := range tests {
		_, err := Load(tc.path, Options{})
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("Load(%s) = %v, want error containing %q", filepath.Base(tc.path), err, tc.wantErr)
		}
	}
}

func TestCompileProjectSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Main.vm"), "push constant 1\n")
	writeFile(t, filepath.Join(dir, "hack.yaml"), "units: [Main.vm]\nbootstrap: false\ncomments: true\n")

	p, err := config.Load(filepath.Join(dir, "hack.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	// The project's own settings win over the caller's bootstrap flag.
	b, err := CompileProject(p, Options{Bootstrap: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.Assembly, "Sys.init") {
		t.Error("bootstrap emitted although the project disables it")
	}
	if !strings.Contains(b.Assembly, "// push constant 1") {
		t.Errorf("comments missing:\n%s", b.Assembly)
	}
}

func TestCompileUnitsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Main.vm"), "push local 0\nfrobnicate\n")
	_, err := CompileVM([]string{dir}, Options{})
	if err == nil || !strings.Contains(err.Error(), "Main") {
		t.Errorf("err = %v, want error naming Main", err)
	}
}
