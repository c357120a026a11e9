package bits

import (
	"fmt"

	"github.com/danmuck/bits/internal/bits/stream"
)

// Header field widths from the packet grammar.
const (
	VersionBits     = 3
	TypeBits        = 3
	HeaderBits      = VersionBits + TypeBits
	GroupBits       = 5
	NibbleBits      = 4
	LengthModeBits  = 1
	TotalLengthBits = 15
	CountBits       = 11

	MaxVersion     = 1<<VersionBits - 1
	MaxTotalLength = 1<<TotalLengthBits - 1
	MaxCount       = 1<<CountBits - 1
)

// Type is the 3-bit packet type id.
type Type uint8

const (
	TypeSum     Type = 0
	TypeProduct Type = 1
	TypeMinimum Type = 2
	TypeMaximum Type = 3
	TypeLiteral Type = 4
	TypeGreater Type = 5
	TypeLess    Type = 6
	TypeEqual   Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeSum:
		return "sum"
	case TypeProduct:
		return "product"
	case TypeMinimum:
		return "minimum"
	case TypeMaximum:
		return "maximum"
	case TypeLiteral:
		return "literal"
	case TypeGreater:
		return "greater"
	case TypeLess:
		return "less"
	case TypeEqual:
		return "equal"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Relational reports whether t compares exactly two operands.
func (t Type) Relational() bool {
	return t == TypeGreater || t == TypeLess || t == TypeEqual
}

// LengthMode selects how an operator frames its children.
type LengthMode uint8

const (
	// LengthBits prefixes the children with their total bit length.
	LengthBits LengthMode = 0
	// LengthCount prefixes the children with their number.
	LengthCount LengthMode = 1
)

func (m LengthMode) String() string {
	switch m {
	case LengthBits:
		return "bits"
	case LengthCount:
		return "count"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Packet is one decoded node. Contents is a *Literal when Type is
// TypeLiteral and an *Operator otherwise.
type Packet struct {
	Version  uint8
	Type     Type
	Contents Contents
}

// Contents is the body of a packet.
type Contents interface {
	contents()
}

// Literal holds the accumulated value bits of a type 4 packet.
type Literal struct {
	bits *stream.Stream
}

// Operator holds the ordered children of a non-literal packet.
type Operator struct {
	Mode     LengthMode
	Children []*Packet
}

func (*Literal) contents()  {}
func (*Operator) contents() {}

// NewLiteral returns a literal holding v in the fewest nibbles.
func NewLiteral(v uint64) *Literal {
	n := NibbleBits
	for n < stream.MaxReadBits && v>>uint(n) != 0 {
		n += NibbleBits
	}
	s, _ := stream.FromUint(v, n)
	return &Literal{bits: s}
}

// Value interprets the literal bits as an unsigned big-endian integer.
func (l *Literal) Value() (uint64, error) {
	if l == nil {
		return 0, nil
	}
	return l.bits.Value()
}

// Len returns the number of value bits (four per group).
func (l *Literal) Len() int {
	if l == nil {
		return 0
	}
	return l.bits.Len()
}

// Bits returns a copy of the value bits.
func (l *Literal) Bits() *stream.Stream {
	if l == nil {
		return &stream.Stream{}
	}
	return l.bits.Clone()
}

// NewOperator returns operator contents framed with mode.
func NewOperator(mode LengthMode, children ...*Packet) *Operator {
	return &Operator{Mode: mode, Children: children}
}

// Children returns the packet's children, nil for literals.
func (p *Packet) Children() []*Packet {
	if op, ok := p.Contents.(*Operator); ok {
		return op.Children
	}
	return nil
}

// Walk calls fn for p and every descendant in pre-order. Returning false
// skips the node's children.
func (p *Packet) Walk(fn func(p *Packet, depth int) bool) {
	p.walk(fn, 0)
}

func (p *Packet) walk(fn func(*Packet, int) bool, depth int) {
	if p == nil || !fn(p, depth) {
		return
	}
	for _, child := range p.Children() {
		child.walk(fn, depth+1)
	}
}

// Count returns the number of packets in the tree rooted at p.
func (p *Packet) Count() int {
	n := 0
	p.Walk(func(*Packet, int) bool {
		n++
		return true
	})
	return n
}
