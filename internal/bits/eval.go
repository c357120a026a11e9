package bits

import (
	"fmt"
	mathbits "math/bits"
)

// VersionTotal returns the sum of every version field in the tree.
func VersionTotal(p *Packet) uint64 {
	if p == nil {
		return 0
	}
	total := uint64(p.Version)
	for _, child := range p.Children() {
		total += VersionTotal(child)
	}
	return total
}

// Evaluate computes the expression encoded by the tree.
func Evaluate(p *Packet) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: nil packet", ErrSemantic)
	}
	switch c := p.Contents.(type) {
	case *Literal:
		if p.Type != TypeLiteral {
			return 0, fmt.Errorf("%w: %s packet carries a literal", ErrSemantic, p.Type)
		}
		return c.Value()
	case *Operator:
		return evaluateOperator(p.Type, c.Children)
	default:
		return 0, fmt.Errorf("%w: %s packet has no contents", ErrSemantic, p.Type)
	}
}

func evaluateOperator(t Type, children []*Packet) (uint64, error) {
	if t == TypeLiteral {
		return 0, fmt.Errorf("%w: literal packet carries operands", ErrSemantic)
	}
	if t.Relational() && len(children) != 2 {
		return 0, &ArityError{Type: t, Children: len(children)}
	}
	if len(children) == 0 {
		return 0, fmt.Errorf("%w: %s packet has no operands", ErrSemantic, t)
	}

	values := make([]uint64, len(children))
	for i, child := range children {
		v, err := Evaluate(child)
		if err != nil {
			return 0, err
		}
		values[i] = v
	}

	switch t {
	case TypeSum:
		var total uint64
		for _, v := range values {
			var carry uint64
			total, carry = mathbits.Add64(total, v, 0)
			if carry != 0 {
				return 0, fmt.Errorf("%w: sum exceeds 64 bits", ErrOverflow)
			}
		}
		return total, nil
	case TypeProduct:
		total := uint64(1)
		for _, v := range values {
			hi, lo := mathbits.Mul64(total, v)
			if hi != 0 {
				return 0, fmt.Errorf("%w: product exceeds 64 bits", ErrOverflow)
			}
			total = lo
		}
		return total, nil
	case TypeMinimum:
		m := values[0]
		for _, v := range values[1:] {
			m = min(m, v)
		}
		return m, nil
	case TypeMaximum:
		m := values[0]
		for _, v := range values[1:] {
			m = max(m, v)
		}
		return m, nil
	case TypeGreater:
		return boolValue(values[0] > values[1]), nil
	case TypeLess:
		return boolValue(values[0] < values[1]), nil
	case TypeEqual:
		return boolValue(values[0] == values[1]), nil
	default:
		return 0, fmt.Errorf("%w: unknown %s", ErrSemantic, t)
	}
}

func boolValue(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Summary holds both derived values of a transcript.
type Summary struct {
	VersionTotal uint64 `json:"version_total"`
	Value        uint64 `json:"value"`
}

// Summarize computes the version total and the evaluated value of p.
func Summarize(p *Packet) (Summary, error) {
	v, err := Evaluate(p)
	if err != nil {
		return Summary{}, err
	}
	return Summary{VersionTotal: VersionTotal(p), Value: v}, nil
}

// DecodeSummary decodes hex with the default decoder and summarizes it.
func DecodeSummary(hex string) (Summary, error) {
	p, err := Decode(hex)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(p)
}
