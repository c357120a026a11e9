package bits

import (
	"strconv"
	"strings"
)

var infix = map[Type]string{
	TypeSum:     " + ",
	TypeProduct: " * ",
	TypeGreater: " > ",
	TypeLess:    " < ",
	TypeEqual:   " == ",
}

// Format renders the tree as an infix expression, e.g.
// "((1 + 3) == (2 * 2))". Literals too wide to evaluate render as their bits.
func Format(p *Packet) string {
	var b strings.Builder
	format(&b, p)
	return b.String()
}

func format(b *strings.Builder, p *Packet) {
	if p == nil {
		b.WriteString("<nil>")
		return
	}
	switch c := p.Contents.(type) {
	case *Literal:
		v, err := c.Value()
		if err != nil {
			b.WriteString("0b")
			b.WriteString(c.Bits().String())
			return
		}
		b.WriteString(strconv.FormatUint(v, 10))
	case *Operator:
		if sep, ok := infix[p.Type]; ok {
			b.WriteByte('(')
			formatList(b, c.Children, sep)
			b.WriteByte(')')
			return
		}
		switch p.Type {
		case TypeMinimum:
			b.WriteString("min(")
		case TypeMaximum:
			b.WriteString("max(")
		default:
			b.WriteString(p.Type.String())
			b.WriteByte('(')
		}
		formatList(b, c.Children, ", ")
		b.WriteByte(')')
	default:
		b.WriteString(p.Type.String())
		b.WriteString("()")
	}
}

func formatList(b *strings.Builder, children []*Packet, sep string) {
	for i, child := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		format(b, child)
	}
}
