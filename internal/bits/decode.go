package bits

import (
	"fmt"

	"github.com/danmuck/bits/internal/bits/stream"
	"github.com/rs/zerolog/log"
)

// Limits constrains decode memory and recursion.
type Limits struct {
	MaxDepth     int
	MaxInputBits int
}

func DefaultLimits() Limits {
	return Limits{
		MaxDepth:     1024,
		MaxInputBits: 8 * 1024 * 1024,
	}
}

// Config selects decoder behavior.
type Config struct {
	Limits Limits
	// StrictHex rejects any non-hex, non-whitespace input character instead
	// of skipping it.
	StrictHex bool
}

func DefaultConfig() Config {
	return Config{Limits: DefaultLimits()}
}

// Decoder parses BITS packets.
type Decoder struct {
	cfg Config
}

func NewDecoder(cfg Config) *Decoder {
	def := DefaultLimits()
	if cfg.Limits.MaxDepth <= 0 {
		cfg.Limits.MaxDepth = def.MaxDepth
	}
	if cfg.Limits.MaxInputBits <= 0 {
		cfg.Limits.MaxInputBits = def.MaxInputBits
	}
	return &Decoder{cfg: cfg}
}

// Config returns the effective decoder configuration.
func (d *Decoder) Config() Config { return d.cfg }

// Decode parses the outermost packet of a hex transcript. Padding bits
// after it are ignored.
func Decode(hex string) (*Packet, error) {
	return NewDecoder(DefaultConfig()).Decode(hex)
}

// Read consumes exactly one packet from s using the default limits.
func Read(s *stream.Stream) (*Packet, error) {
	return NewDecoder(DefaultConfig()).Read(s)
}

// Transcript is a decoded hex transcript with its size accounting.
type Transcript struct {
	Root *Packet
	// InputBits counts the bits of the hex digits actually decoded; skipped
	// separators are not included.
	InputBits   int
	PaddingBits int
}

// Decode parses the outermost packet of a hex transcript.
func (d *Decoder) Decode(hex string) (*Packet, error) {
	tr, err := d.DecodeTranscript(hex)
	if err != nil {
		return nil, err
	}
	return tr.Root, nil
}

// DecodeTranscript is Decode that also reports the transcript size. When the
// hex converts but the packet does not decode, InputBits is still set.
func (d *Decoder) DecodeTranscript(hex string) (Transcript, error) {
	var (
		s   *stream.Stream
		err error
	)
	if d.cfg.StrictHex {
		s, err = stream.FromHexStrict(hex)
	} else {
		s, err = stream.FromHex(hex)
	}
	if err != nil {
		return Transcript{}, err
	}
	tr := Transcript{InputBits: s.Len()}
	p, err := d.Read(s)
	if err != nil {
		return tr, err
	}
	tr.Root = p
	tr.PaddingBits = s.Len()
	log.Debug().
		Int("input_bits", tr.InputBits).
		Int("padding_bits", tr.PaddingBits).
		Int("packets", p.Count()).
		Msg("bits: decoded transcript")
	return tr, nil
}

// Read consumes exactly one packet from s, leaving the remainder in place.
func (d *Decoder) Read(s *stream.Stream) (*Packet, error) {
	if s.Len() > d.cfg.Limits.MaxInputBits {
		return nil, fmt.Errorf("%w: %d bits, max %d", ErrInputTooLarge, s.Len(), d.cfg.Limits.MaxInputBits)
	}
	return d.readPacket(s, 0)
}

func (d *Decoder) readPacket(s *stream.Stream, depth int) (*Packet, error) {
	start := s.Offset()
	if depth > d.cfg.Limits.MaxDepth {
		return nil, &DecodeError{Field: "packet", Offset: start, Depth: depth, Err: ErrDepthExceeded}
	}

	version, err := d.readField(s, "version", VersionBits, depth)
	if err != nil {
		return nil, err
	}
	typeID, err := d.readField(s, "type", TypeBits, depth)
	if err != nil {
		return nil, err
	}

	p := &Packet{Version: uint8(version), Type: Type(typeID)}
	if p.Type == TypeLiteral {
		lit, err := d.readLiteral(s, depth)
		if err != nil {
			return nil, err
		}
		p.Contents = lit
	} else {
		op, err := d.readOperator(s, depth)
		if err != nil {
			return nil, err
		}
		p.Contents = op
	}

	log.Trace().
		Int("offset", start).
		Int("depth", depth).
		Uint8("version", p.Version).
		Stringer("type", p.Type).
		Msg("bits: packet")
	return p, nil
}

func (d *Decoder) readLiteral(s *stream.Stream, depth int) (*Literal, error) {
	acc := &stream.Stream{}
	for {
		cont, err := d.readField(s, "literal group", 1, depth)
		if err != nil {
			return nil, err
		}
		offset := s.Offset()
		group, ok := s.Consume(NibbleBits)
		if !ok {
			return nil, &DecodeError{
				Field:  "literal group",
				Offset: offset,
				Depth:  depth,
				Err:    fmt.Errorf("%w: need %d bits, have %d", ErrTruncated, NibbleBits, s.Len()),
			}
		}
		acc.Append(group)
		if cont == 0 {
			return &Literal{bits: acc}, nil
		}
	}
}

func (d *Decoder) readOperator(s *stream.Stream, depth int) (*Operator, error) {
	mode, err := d.readField(s, "length mode", LengthModeBits, depth)
	if err != nil {
		return nil, err
	}

	op := &Operator{Mode: LengthMode(mode)}
	if op.Mode == LengthBits {
		total, err := d.readField(s, "total length", TotalLengthBits, depth)
		if err != nil {
			return nil, err
		}
		offset := s.Offset()
		sub, ok := s.Consume(int(total))
		if !ok {
			return nil, &DecodeError{
				Field:  "sub-packets",
				Offset: offset,
				Depth:  depth,
				Err:    fmt.Errorf("%w: length field claims %d bits, have %d", ErrTruncated, total, s.Len()),
			}
		}
		for sub.Len() > 0 {
			child, err := d.readPacket(sub, depth+1)
			if err != nil {
				return nil, err
			}
			op.Children = append(op.Children, child)
		}
		return op, nil
	}

	count, err := d.readField(s, "sub-packet count", CountBits, depth)
	if err != nil {
		return nil, err
	}
	op.Children = make([]*Packet, 0, count)
	for i := uint64(0); i < count; i++ {
		child, err := d.readPacket(s, depth+1)
		if err != nil {
			return nil, err
		}
		op.Children = append(op.Children, child)
	}
	return op, nil
}

func (d *Decoder) readField(s *stream.Stream, field string, n int, depth int) (uint64, error) {
	offset := s.Offset()
	v, err := s.Read(n)
	if err != nil {
		return 0, &DecodeError{Field: field, Offset: offset, Depth: depth, Err: err}
	}
	return v, nil
}
