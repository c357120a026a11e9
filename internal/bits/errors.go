package bits

import (
	"errors"
	"fmt"

	"github.com/danmuck/bits/internal/bits/stream"
)

var (
	ErrFormat        = stream.ErrFormat
	ErrTruncated     = stream.ErrTruncated
	ErrOverflow      = stream.ErrOverflow
	ErrSemantic      = errors.New("bits: semantic error")
	ErrDepthExceeded = errors.New("bits: nesting depth exceeded")
	ErrInputTooLarge = errors.New("bits: input too large")
	ErrEncode        = errors.New("bits: cannot encode packet")
)

// DecodeError locates a decode failure in the input.
type DecodeError struct {
	Field  string
	Offset int
	Depth  int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bits: decode %s at bit %d (depth %d): %v", e.Field, e.Offset, e.Depth, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ArityError indicates a relational operator without exactly two operands.
type ArityError struct {
	Type     Type
	Children int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("bits: %s packet needs 2 operands, has %d", e.Type, e.Children)
}

func (e *ArityError) Unwrap() error { return ErrSemantic }
