package bits

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/icza/bitio"
)

// EncodedLen returns the exact number of bits Encode writes for p.
func EncodedLen(p *Packet) (int, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: nil packet", ErrEncode)
	}
	if p.Version > MaxVersion {
		return 0, fmt.Errorf("%w: version %d exceeds %d", ErrEncode, p.Version, MaxVersion)
	}
	switch c := p.Contents.(type) {
	case *Literal:
		if p.Type != TypeLiteral {
			return 0, fmt.Errorf("%w: %s packet carries a literal", ErrEncode, p.Type)
		}
		return HeaderBits + literalGroups(c)*GroupBits, nil
	case *Operator:
		if p.Type == TypeLiteral || p.Type > TypeEqual {
			return 0, fmt.Errorf("%w: %s packet carries operands", ErrEncode, p.Type)
		}
		body := 0
		for _, child := range c.Children {
			n, err := EncodedLen(child)
			if err != nil {
				return 0, err
			}
			body += n
		}
		switch c.Mode {
		case LengthBits:
			if body > MaxTotalLength {
				return 0, fmt.Errorf("%w: %d sub-packet bits exceed %d", ErrEncode, body, MaxTotalLength)
			}
			return HeaderBits + LengthModeBits + TotalLengthBits + body, nil
		case LengthCount:
			if len(c.Children) > MaxCount {
				return 0, fmt.Errorf("%w: %d sub-packets exceed %d", ErrEncode, len(c.Children), MaxCount)
			}
			return HeaderBits + LengthModeBits + CountBits + body, nil
		default:
			return 0, fmt.Errorf("%w: unknown %s", ErrEncode, c.Mode)
		}
	default:
		return 0, fmt.Errorf("%w: %s packet has no contents", ErrEncode, p.Type)
	}
}

// Encode serializes p MSB-first. The returned slice is zero padded to a byte
// boundary; n is the number of meaningful bits.
func Encode(p *Packet) (out []byte, n int, err error) {
	n, err = EncodedLen(p)
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	if err := writePacket(w, p); err != nil {
		return nil, 0, err
	}
	if err := w.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n, nil
}

// EncodeHex serializes p as upper-case hex, padded to whole bytes.
func EncodeHex(p *Packet) (string, error) {
	b, _, err := Encode(p)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func writePacket(w *bitio.Writer, p *Packet) error {
	if err := w.WriteBits(uint64(p.Version), VersionBits); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(p.Type), TypeBits); err != nil {
		return err
	}
	switch c := p.Contents.(type) {
	case *Literal:
		return writeLiteral(w, c)
	case *Operator:
		return writeOperator(w, c)
	default:
		return fmt.Errorf("%w: %s packet has no contents", ErrEncode, p.Type)
	}
}

func writeLiteral(w *bitio.Writer, l *Literal) error {
	bits := l.Bits()
	groups := literalGroups(l)
	// left-pad to whole nibbles
	lead := groups*NibbleBits - bits.Len()
	for i := 0; i < groups; i++ {
		width := NibbleBits
		if i == 0 {
			width -= lead
		}
		nibble, err := bits.Read(width)
		if err != nil {
			return err
		}
		if err := w.WriteBool(i < groups-1); err != nil {
			return err
		}
		if err := w.WriteBits(nibble, NibbleBits); err != nil {
			return err
		}
	}
	return nil
}

func writeOperator(w *bitio.Writer, op *Operator) error {
	if err := w.WriteBits(uint64(op.Mode), LengthModeBits); err != nil {
		return err
	}
	switch op.Mode {
	case LengthBits:
		body := 0
		for _, child := range op.Children {
			n, err := EncodedLen(child)
			if err != nil {
				return err
			}
			body += n
		}
		if err := w.WriteBits(uint64(body), TotalLengthBits); err != nil {
			return err
		}
	case LengthCount:
		if err := w.WriteBits(uint64(len(op.Children)), CountBits); err != nil {
			return err
		}
	}
	for _, child := range op.Children {
		if err := writePacket(w, child); err != nil {
			return err
		}
	}
	return nil
}

func literalGroups(l *Literal) int {
	groups := (l.Len() + NibbleBits - 1) / NibbleBits
	if groups == 0 {
		return 1
	}
	return groups
}
