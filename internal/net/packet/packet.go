package packet

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ElementType is the one-byte tag that precedes every element in a packet body.
type ElementType byte

const (
	None   ElementType = 0
	Byte   ElementType = 1
	Short  ElementType = 2
	Int    ElementType = 3
	Long   ElementType = 4
	Float  ElementType = 5
	String ElementType = 6
	Bin    ElementType = 7
)

func (t ElementType) String() string {
	switch t {
	case None:
		return "None"
	case Byte:
		return "Byte"
	case Short:
		return "Short"
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case String:
		return "String"
	case Bin:
		return "Bin"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

const (
	// DefaultSize is the initial body buffer capacity of a new packet.
	DefaultSize = 8192
	// AddSize is the minimum growth step when the body buffer runs out of space.
	AddSize = 1024
	// MaxElementLen is the largest String/Bin payload the 16-bit length prefix can carry.
	MaxElementLen = math.MaxUint16

	// headerFixed is op (4) + id (8).
	headerFixed = 12
)

// millisecond offset between 0001-01-01 and the Unix epoch; the client
// encodes timestamps as milliseconds since 0001-01-01.
const epochOffsetMillis int64 = 62135596800000

// Packet is a single protocol message: op code, subject id and an ordered
// stream of type-tagged elements. A Packet is either built with the Put
// methods or parsed from bytes and consumed with the Get methods; it is not
// safe for concurrent use.
type Packet struct {
	Op int32
	ID int64

	buf       []byte
	ptr       int
	bodyStart int
	owned     bool // buf was allocated by the packet, Clear may zero it

	elements int
	bodyLen  int
}

// New returns an empty packet ready for writing.
func New(op int32, id int64) *Packet {
	return &Packet{
		Op:    op,
		ID:    id,
		buf:   make([]byte, DefaultSize),
		owned: true,
	}
}

// Empty returns a packet with op and id zero.
func Empty() *Packet {
	return New(0, 0)
}

// Parse reads the header at buf[offset:] and returns a packet positioned at
// the first body element. The body is not copied; buf must not be modified
// while the packet is in use.
func Parse(buf []byte, offset int) (*Packet, error) {
	if offset < 0 || len(buf)-offset < headerFixed+3 {
		return nil, fmt.Errorf("parse header: %w", ErrTruncated)
	}
	p := &Packet{buf: buf, ptr: offset}
	p.Op = int32(binary.BigEndian.Uint32(buf[p.ptr:]))
	p.ID = int64(binary.BigEndian.Uint64(buf[p.ptr+4:]))
	p.ptr += headerFixed

	bodyLen, n, err := readVarInt(buf, p.ptr)
	if err != nil {
		return nil, fmt.Errorf("parse body length: %w", err)
	}
	p.ptr += n
	elements, n, err := readVarInt(buf, p.ptr)
	if err != nil {
		return nil, fmt.Errorf("parse element count: %w", err)
	}
	p.ptr += n

	if p.ptr >= len(buf) {
		return nil, fmt.Errorf("parse reserved byte: %w", ErrTruncated)
	}
	p.ptr++ // reserved 0x00

	if bodyLen > len(buf)-p.ptr {
		return nil, fmt.Errorf("body length %d exceeds %d available bytes: %w", bodyLen, len(buf)-p.ptr, ErrTruncated)
	}
	p.bodyStart = p.ptr
	p.bodyLen = bodyLen
	p.elements = elements
	return p, nil
}

// Clear resets the packet to zero elements with a new op and id. The body
// buffer is zeroed in place and reused, so rebuilding a packet of the same
// shape allocates nothing.
func (p *Packet) Clear(op int32, id int64) {
	p.Op = op
	p.ID = id
	if p.owned {
		clear(p.buf)
	} else {
		// parsed packets borrow the caller's buffer
		p.buf = make([]byte, DefaultSize)
		p.owned = true
	}
	p.ptr = 0
	p.bodyStart = 0
	p.elements = 0
	p.bodyLen = 0
}

// Elements returns the number of elements in the body.
func (p *Packet) Elements() int { return p.elements }

// BodyLen returns the encoded size of the body in bytes.
func (p *Packet) BodyLen() int { return p.bodyLen }

func (p *Packet) bodyEnd() int { return p.bodyStart + p.bodyLen }

// Peek returns the type of the next element without consuming it, or None
// when the body is exhausted.
func (p *Packet) Peek() ElementType {
	if p.ptr >= p.bodyEnd() || p.ptr >= len(p.buf) {
		return None
	}
	return ElementType(p.buf[p.ptr])
}

// NextIs reports whether the next element is of type t.
func (p *Packet) NextIs(t ElementType) bool {
	return p.Peek() == t
}

// ── Write ──────────────────────────────────────────────────────────

// ensureSize grows the buffer if required more bytes would not fit.
func (p *Packet) ensureSize(required int) {
	if p.ptr+required < len(p.buf) {
		return
	}
	grown := make([]byte, len(p.buf)+max(AddSize, required*2))
	copy(grown, p.buf)
	p.buf = grown
	p.owned = true
}

// putSimple writes tag followed by n bytes produced by fill.
func (p *Packet) putSimple(t ElementType, n int, fill func(b []byte)) {
	size := 1 + n
	p.ensureSize(size)
	p.buf[p.ptr] = byte(t)
	fill(p.buf[p.ptr+1 : p.ptr+size])
	p.ptr += size
	p.elements++
	p.bodyLen += size
}

// putWithLength writes tag, a 16-bit length and val. It panics when the
// value does not fit the length field.
func (p *Packet) putWithLength(t ElementType, val []byte, extra int) {
	n := len(val) + extra
	if n > MaxElementLen {
		panic(&ElementTooLargeError{Type: t, Len: n})
	}
	size := 1 + 2 + n
	p.ensureSize(size)
	p.buf[p.ptr] = byte(t)
	binary.BigEndian.PutUint16(p.buf[p.ptr+1:], uint16(n))
	copy(p.buf[p.ptr+3:], val)
	if extra > 0 {
		clear(p.buf[p.ptr+3+len(val) : p.ptr+size])
	}
	p.ptr += size
	p.elements++
	p.bodyLen += size
}

// PutByte writes v as a Byte element.
func (p *Packet) PutByte(v byte) {
	p.putSimple(Byte, 1, func(b []byte) { b[0] = v })
}

// PutBool writes v as a Byte element (1 or 0).
func (p *Packet) PutBool(v bool) {
	if v {
		p.PutByte(1)
		return
	}
	p.PutByte(0)
}

// PutShort writes v as a Short element.
func (p *Packet) PutShort(v int16) {
	p.putSimple(Short, 2, func(b []byte) { binary.BigEndian.PutUint16(b, uint16(v)) })
}

// PutUShort writes v as a Short element.
func (p *Packet) PutUShort(v uint16) { p.PutShort(int16(v)) }

// PutInt writes v as an Int element.
func (p *Packet) PutInt(v int32) {
	p.putSimple(Int, 4, func(b []byte) { binary.BigEndian.PutUint32(b, uint32(v)) })
}

// PutUInt writes v as an Int element.
func (p *Packet) PutUInt(v uint32) { p.PutInt(int32(v)) }

// PutLong writes v as a Long element.
func (p *Packet) PutLong(v int64) {
	p.putSimple(Long, 8, func(b []byte) { binary.BigEndian.PutUint64(b, uint64(v)) })
}

// PutULong writes v as a Long element.
func (p *Packet) PutULong(v uint64) { p.PutLong(int64(v)) }

// PutTime writes t as a Long element holding milliseconds since 0001-01-01.
func (p *Packet) PutTime(t time.Time) {
	p.PutLong(t.UnixMilli() + epochOffsetMillis)
}

// PutFloat writes v as a 4-byte IEEE754 Float element.
func (p *Packet) PutFloat(v float32) {
	p.putSimple(Float, 4, func(b []byte) { binary.BigEndian.PutUint32(b, math.Float32bits(v)) })
}

// PutString writes s as a UTF-8 String element with a trailing NUL.
func (p *Packet) PutString(s string) {
	p.putWithLength(String, []byte(s), 1)
}

// PutStringf writes a formatted String element.
func (p *Packet) PutStringf(format string, args ...any) {
	p.PutString(fmt.Sprintf(format, args...))
}

// PutBin writes v as a Bin element.
func (p *Packet) PutBin(v []byte) {
	p.putWithLength(Bin, v, 0)
}

// PutEmptyBin writes a Bin element holding a single zero byte.
func (p *Packet) PutEmptyBin() {
	p.PutBin([]byte{0})
}

// PutPacket writes the built size of inner as an Int followed by the built
// bytes as a Bin.
func (p *Packet) PutPacket(inner *Packet) {
	val := inner.Build()
	p.PutInt(int32(len(val)))
	p.PutBin(val)
}

// Put writes v using the element type matching its Go type. Plain int is
// rejected because its width is ambiguous on the wire, and oversized String
// or Bin values return an *ElementTooLargeError.
func (p *Packet) Put(v any) error {
	switch val := v.(type) {
	case byte:
		p.PutByte(val)
	case bool:
		p.PutBool(val)
	case int16:
		p.PutShort(val)
	case uint16:
		p.PutUShort(val)
	case int32:
		p.PutInt(val)
	case uint32:
		p.PutUInt(val)
	case int64:
		p.PutLong(val)
	case uint64:
		p.PutULong(val)
	case float32:
		p.PutFloat(val)
	case float64:
		p.PutFloat(float32(val))
	case string:
		if len(val)+1 > MaxElementLen {
			return &ElementTooLargeError{Type: String, Len: len(val) + 1}
		}
		p.PutString(val)
	case []byte:
		if len(val) > MaxElementLen {
			return &ElementTooLargeError{Type: Bin, Len: len(val)}
		}
		p.PutBin(val)
	case time.Time:
		p.PutTime(val)
	case *Packet:
		built := val.Build()
		if len(built) > MaxElementLen {
			return &ElementTooLargeError{Type: Bin, Len: len(built)}
		}
		p.PutInt(int32(len(built)))
		p.PutBin(built)
	default:
		return &UnsupportedTypeError{Value: v}
	}
	return nil
}

// ── Read ───────────────────────────────────────────────────────────

// expect checks the next tag and that n payload bytes follow it. It returns
// the payload offset and advances the cursor; on error the cursor is untouched.
func (p *Packet) expect(t ElementType, n int) (int, error) {
	if actual := p.Peek(); actual != t {
		return 0, &TypeMismatchError{Expected: t, Actual: actual, Offset: p.ptr - p.bodyStart}
	}
	start := p.ptr + 1
	if start+n > p.bodyEnd() {
		return 0, fmt.Errorf("%s at offset %d: %w", t, p.ptr-p.bodyStart, ErrTruncated)
	}
	p.ptr = start + n
	return start, nil
}

// expectWithLength handles String/Bin: tag, 16-bit length, payload.
func (p *Packet) expectWithLength(t ElementType) (int, int, error) {
	if actual := p.Peek(); actual != t {
		return 0, 0, &TypeMismatchError{Expected: t, Actual: actual, Offset: p.ptr - p.bodyStart}
	}
	lenAt := p.ptr + 1
	if lenAt+2 > p.bodyEnd() {
		return 0, 0, fmt.Errorf("%s length at offset %d: %w", t, p.ptr-p.bodyStart, ErrTruncated)
	}
	n := int(binary.BigEndian.Uint16(p.buf[lenAt:]))
	start := lenAt + 2
	if start+n > p.bodyEnd() {
		return 0, 0, fmt.Errorf("%s of %d bytes at offset %d: %w", t, n, p.ptr-p.bodyStart, ErrTruncated)
	}
	p.ptr = start + n
	return start, n, nil
}

// GetByte reads a Byte element.
func (p *Packet) GetByte() (byte, error) {
	at, err := p.expect(Byte, 1)
	if err != nil {
		return 0, err
	}
	return p.buf[at], nil
}

// GetBool reads a Byte element as a bool.
func (p *Packet) GetBool() (bool, error) {
	v, err := p.GetByte()
	return v != 0, err
}

// GetShort reads a Short element.
func (p *Packet) GetShort() (int16, error) {
	at, err := p.expect(Short, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(p.buf[at:])), nil
}

// GetUShort reads a Short element as unsigned.
func (p *Packet) GetUShort() (uint16, error) {
	v, err := p.GetShort()
	return uint16(v), err
}

// GetInt reads an Int element.
func (p *Packet) GetInt() (int32, error) {
	at, err := p.expect(Int, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p.buf[at:])), nil
}

// GetUInt reads an Int element as unsigned.
func (p *Packet) GetUInt() (uint32, error) {
	v, err := p.GetInt()
	return uint32(v), err
}

// GetLong reads a Long element.
func (p *Packet) GetLong() (int64, error) {
	at, err := p.expect(Long, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p.buf[at:])), nil
}

// GetULong reads a Long element as unsigned.
func (p *Packet) GetULong() (uint64, error) {
	v, err := p.GetLong()
	return uint64(v), err
}

// GetTime reads a Long element written by PutTime.
func (p *Packet) GetTime() (time.Time, error) {
	v, err := p.GetLong()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(v - epochOffsetMillis), nil
}

// GetFloat reads a Float element.
func (p *Packet) GetFloat() (float32, error) {
	at, err := p.expect(Float, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(p.buf[at:])), nil
}

// GetString reads a String element, dropping the trailing NUL.
func (p *Packet) GetString() (string, error) {
	at, n, err := p.expectWithLength(String)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	return string(p.buf[at : at+n-1]), nil
}

// GetBin reads a Bin element. The returned slice is a copy.
func (p *Packet) GetBin() ([]byte, error) {
	at, n, err := p.expectWithLength(Bin)
	if err != nil {
		return nil, err
	}
	val := make([]byte, n)
	copy(val, p.buf[at:at+n])
	return val, nil
}

// Rewind moves the read cursor back to the first body element.
func (p *Packet) Rewind() {
	p.ptr = p.bodyStart
}

// ── Build ──────────────────────────────────────────────────────────

// GetSize returns the exact length of Build's output.
func (p *Packet) GetSize() int {
	return headerFixed + varIntSize(p.bodyLen) + varIntSize(p.elements) + 1 + p.bodyLen
}

// Build returns the complete packet (header and body) as a new slice.
func (p *Packet) Build() []byte {
	result := make([]byte, p.GetSize())
	// cannot fail, result is exactly GetSize() long
	_ = p.BuildInto(result, 0)
	return result
}

// BuildInto writes the complete packet into buf at offset. buf must have
// room for GetSize() bytes past offset.
func (p *Packet) BuildInto(buf []byte, offset int) error {
	size := p.GetSize()
	if offset < 0 || len(buf) < offset+size {
		return fmt.Errorf("need %d bytes at offset %d, have %d: %w", size, offset, len(buf), ErrBufferTooSmall)
	}
	binary.BigEndian.PutUint32(buf[offset:], uint32(p.Op))
	binary.BigEndian.PutUint64(buf[offset+4:], uint64(p.ID))
	offset += headerFixed

	offset += writeVarInt(buf, offset, p.bodyLen)
	offset += writeVarInt(buf, offset, p.elements)
	buf[offset] = 0
	offset++

	copy(buf[offset:], p.buf[p.bodyStart:p.bodyEnd()])
	return nil
}
