package asm

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax          = errors.New("syntax error")
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrAddressRange    = errors.New("address out of range")
	ErrDuplicateLabel  = errors.New("duplicate label")
)

// LineError reports the source line an assembly failure came from.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
