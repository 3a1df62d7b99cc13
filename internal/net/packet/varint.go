package packet

import "fmt"

// maxVarIntLen is enough for any non-negative int32.
const maxVarIntLen = 5

// writeVarInt writes v at buf[off:] as 7-bit groups, least significant
// first, with the high bit set on every byte but the last. Returns the
// number of bytes written.
func writeVarInt(buf []byte, off int, v int) int {
	n := 0
	u := uint32(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			buf[off+n] = b | 0x80
			n++
			continue
		}
		buf[off+n] = b
		return n + 1
	}
}

// readVarInt reads a value written by writeVarInt from buf[off:].
func readVarInt(buf []byte, off int) (int, int, error) {
	var result uint32
	for i := 0; i < maxVarIntLen; i++ {
		if off+i >= len(buf) {
			return 0, 0, fmt.Errorf("varint: %w", ErrTruncated)
		}
		b := buf[off+i]
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int(result), i + 1, nil
		}
	}
	return 0, 0, ErrVarIntOverflow
}

// varIntSize returns how many bytes writeVarInt uses for v.
func varIntSize(v int) int {
	n := 1
	for u := uint32(v) >> 7; u != 0; u >>= 7 {
		n++
	}
	return n
}
