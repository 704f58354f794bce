package vm

import "strings"

// Line is a parsed command together with its 1-based source line.
type Line struct {
	No      int
	Command Command
}

// Parse reads a whole VM translation unit. Comments start with "//" and run
// to the end of the line; blank lines are skipped. The first bad line stops
// parsing.
func Parse(src string) ([]Line, error) {
	var out []Line
	for i, raw := range strings.Split(src, "\n") {
		text := StripComment(raw)
		if text == "" {
			continue
		}
		cmd, err := ParseCommand(text)
		if err != nil {
			return nil, &LineError{Line: i + 1, Text: text, Err: err}
		}
		out = append(out, Line{No: i + 1, Command: cmd})
	}
	return out, nil
}

// StripComment removes a trailing "//" comment and surrounding whitespace.
func StripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
