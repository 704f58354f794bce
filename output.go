//go:build !js

package main

import (
	"os"
	"path/filepath"

	"gohack/pkg/utils"
)

// defaultOutput names the output of translating paths when -o is absent:
// next to a single file, or inside a directory named after it.
func defaultOutput(paths []string, ext string) string {
	first := filepath.Clean(paths[0])
	if info, err := os.Stat(first); err == nil && info.IsDir() {
		full, _, err := utils.GetPathInfo(first)
		if err != nil {
			full = first
		}
		return filepath.Join(first, filepath.Base(full)+ext)
	}
	return utils.ReplaceExt(first, ext)
}

func writeText(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
