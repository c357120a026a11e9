package stream

import "errors"

var (
	ErrFormat    = errors.New("bits: invalid hex input")
	ErrTruncated = errors.New("bits: truncated input")
	ErrOverflow  = errors.New("bits: integer overflow")
)
