// Package stream owns the bit-level view used by the packet decoder.
//
// Ownership boundary:
// - hex and byte ingestion
// - prefix consumption and big-endian integer reads
// - literal accumulation (Append)
package stream

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxReadBits is the widest integer Read and Value can return.
const MaxReadBits = 64

// Stream is an ordered, destructively consumable bit sequence.
//
// Bits live in a packed MSB-first buffer that is never written after
// construction; a Stream is a cursor [off, end) over it. Sub-streams returned
// by Consume share the buffer but own disjoint ranges.
type Stream struct {
	buf []byte
	off int
	end int
	// owned is set when buf was allocated by Append and no other stream
	// reads past end, so later appends may extend it in place.
	owned bool
}

// FromHex expands each hex digit of text into four bits, MSB first.
// Characters that are not hex digits are skipped. Input without a single
// hex digit is rejected with ErrFormat.
func FromHex(text string) (*Stream, error) {
	buf := make([]byte, 0, (len(text)+1)/2)
	digits := 0
	for i := 0; i < len(text); i++ {
		n, ok := nibble(text[i])
		if !ok {
			continue
		}
		buf = pushNibble(buf, digits, n)
		digits++
	}
	if digits == 0 {
		return nil, fmt.Errorf("%w: no hex digits", ErrFormat)
	}
	return &Stream{buf: buf, end: digits * 4}, nil
}

// FromHexStrict is FromHex that only tolerates whitespace between digits.
func FromHexStrict(text string) (*Stream, error) {
	buf := make([]byte, 0, (len(text)+1)/2)
	digits := 0
	for i, r := range text {
		if r < 0x80 {
			if n, ok := nibble(byte(r)); ok {
				buf = pushNibble(buf, digits, n)
				digits++
				continue
			}
		}
		if unicode.IsSpace(r) {
			continue
		}
		return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrFormat, r, i)
	}
	if digits == 0 {
		return nil, fmt.Errorf("%w: no hex digits", ErrFormat)
	}
	return &Stream{buf: buf, end: digits * 4}, nil
}

// FromBytes returns a stream over every bit of b. The slice is copied.
func FromBytes(b []byte) *Stream {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Stream{buf: buf, end: len(buf) * 8}
}

// FromUint returns the n low bits of v, MSB first.
func FromUint(v uint64, n int) (*Stream, error) {
	if n < 0 || n > MaxReadBits {
		return nil, fmt.Errorf("%w: width %d", ErrOverflow, n)
	}
	if n < MaxReadBits && v>>uint(n) != 0 {
		return nil, fmt.Errorf("%w: %d does not fit in %d bits", ErrOverflow, v, n)
	}
	buf := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if (v>>uint(n-1-i))&1 == 1 {
			buf[i>>3] |= 0x80 >> uint(i&7)
		}
	}
	return &Stream{buf: buf, end: n}, nil
}

// Len returns the number of bits left.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return s.end - s.off
}

// Offset returns the position of the next bit relative to the start of the
// buffer the stream was created from.
func (s *Stream) Offset() int {
	if s == nil {
		return 0
	}
	return s.off
}

// Consume removes the first n bits and returns them as a new stream.
// It reports false, consuming nothing, when fewer than n bits remain.
func (s *Stream) Consume(n int) (*Stream, bool) {
	if s == nil || n < 0 || n > s.Len() {
		return nil, false
	}
	head := &Stream{buf: s.buf, off: s.off, end: s.off + n}
	s.off += n
	return head, true
}

// Read consumes n bits and interprets them as a big-endian unsigned integer.
func (s *Stream) Read(n int) (uint64, error) {
	if n < 0 || n > MaxReadBits {
		return 0, fmt.Errorf("%w: read of %d bits", ErrOverflow, n)
	}
	head, ok := s.Consume(n)
	if !ok {
		return 0, fmt.Errorf("%w: need %d bits, have %d", ErrTruncated, n, s.Len())
	}
	return head.uint(), nil
}

// Value interprets every remaining bit as a big-endian unsigned integer
// without consuming them. Leading zero bits do not count toward the 64-bit
// limit.
func (s *Stream) Value() (uint64, error) {
	if s.Len() <= MaxReadBits {
		return s.uint(), nil
	}
	first := s.off
	for first < s.end && s.bit(first) == 0 {
		first++
	}
	if s.end-first > MaxReadBits {
		return 0, fmt.Errorf("%w: value of %d significant bits", ErrOverflow, s.end-first)
	}
	tail := &Stream{buf: s.buf, off: first, end: s.end}
	return tail.uint(), nil
}

// Append moves the bits of other onto the end of s. other is left empty.
//
// The first append into a non-empty stream copies it into a buffer owned by
// s; later appends grow that buffer in place, so repeated appends cost time
// linear in the bits moved.
func (s *Stream) Append(other *Stream) {
	if other == nil || other.Len() == 0 {
		return
	}
	if other == s {
		other = s.Clone()
	}
	switch {
	case s.owned:
		need := (s.end + other.Len() + 7) / 8
		if need > len(s.buf) {
			s.buf = append(s.buf, make([]byte, need-len(s.buf))...)
		}
		s.end = copyBits(s.buf, s.end, other)
	case s.Len() == 0:
		s.buf, s.off, s.end = other.buf, other.off, other.end
	default:
		total := s.Len() + other.Len()
		size := (total + 7) / 8
		buf := make([]byte, size, 2*size)
		n := copyBits(buf, 0, s)
		copyBits(buf, n, other)
		s.buf, s.off, s.end, s.owned = buf, 0, total, true
	}
	other.off = other.end
}

// Clone returns an independent view of the remaining bits.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return &Stream{}
	}
	return &Stream{buf: s.buf, off: s.off, end: s.end}
}

// String renders the remaining bits as '0' and '1'.
func (s *Stream) String() string {
	var b strings.Builder
	b.Grow(s.Len())
	for i := s.Offset(); i < s.Offset()+s.Len(); i++ {
		b.WriteByte('0' + s.bit(i))
	}
	return b.String()
}

func (s *Stream) uint() uint64 {
	var v uint64
	if s == nil {
		return 0
	}
	for i := s.off; i < s.end; i++ {
		v = v<<1 | uint64(s.bit(i))
	}
	return v
}

func (s *Stream) bit(i int) byte {
	return (s.buf[i>>3] >> uint(7-i&7)) & 1
}

func copyBits(dst []byte, at int, src *Stream) int {
	for i := src.off; i < src.end; i++ {
		if src.bit(i) == 1 {
			dst[at>>3] |= 0x80 >> uint(at&7)
		}
		at++
	}
	return at
}

func pushNibble(buf []byte, index int, n byte) []byte {
	if index%2 == 0 {
		return append(buf, n<<4)
	}
	buf[len(buf)-1] |= n
	return buf
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
