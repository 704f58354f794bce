package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gohack/pkg/codegen"
)

// VMExt is the extension of VM translation units.
const VMExt = ".vm"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// UnitName is the file name without directory or extension. It names the
// translation unit and scopes its statics.
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReplaceExt swaps the extension of path for ext, which includes the dot.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// CollectVMFiles expands the given paths into an ordered list of .vm files.
// Files keep their argument order; a directory contributes its own .vm files
// sorted by name. A file named twice is kept at its first position.
func CollectVMFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		full, _, err := GetPathInfo(p)
		if err != nil {
			full = p
		}
		if !seen[full] {
			seen[full] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(p) != VMExt {
				return nil, fmt.Errorf("%s: not a %s file", p, VMExt)
			}
			add(p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == VMExt {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%s: no %s files", p, VMExt)
		}
		sort.Strings(names)
		for _, name := range names {
			add(filepath.Join(p, name))
		}
	}
	return files, nil
}

// ReadUnits loads each file as a translation unit named after its stem.
func ReadUnits(files []string) ([]codegen.Unit, error) {
	units := make([]codegen.Unit, 0, len(files))
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		units = append(units, codegen.Unit{Name: UnitName(f), Source: string(src)})
	}
	return units, nil
}
