package vm

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrMalformedOperands = errors.New("malformed operands")
	ErrUnknownSegment    = errors.New("unknown segment")
	ErrSegmentIndex      = errors.New("segment index error")
)

// LineError ties a parse failure to the source line it came from.
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
