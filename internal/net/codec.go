package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/erinngo/server/internal/net/packet"
)

// Frame layout:
//
//	[0x88][4B BE total length][1B flag][packet ...][4B checksum]
//
// The total length covers the whole frame including prefix and checksum.
const (
	FrameMarker       byte = 0x88
	FramePrefixSize        = 6
	FrameChecksumSize      = 4
	RawFlag           byte = 0x03

	flagOffset = 5
	// smallest frame holding a packet header with empty body
	minFrameSize = FramePrefixSize + 12 + 1 + 1 + 1 + FrameChecksumSize
)

var (
	ErrBadMarker   = errors.New("frame: bad marker")
	ErrFrameLength = errors.New("frame: invalid length")
	ErrChecksum    = errors.New("frame: checksum mismatch")
)

// Checksummer fills and validates the trailing 4 checksum bytes of a frame.
// A nil Checksummer leaves them zero on send and unchecked on receive.
type Checksummer interface {
	Stamp(frame []byte)
	Verify(frame []byte) bool
}

// BuildFrame wraps p in the envelope. Flag and checksum bytes are left zero.
func BuildFrame(p *packet.Packet) []byte {
	frame := make([]byte, FramePrefixSize+p.GetSize()+FrameChecksumSize)
	frame[0] = FrameMarker
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(frame)))
	// the frame is sized from GetSize, BuildInto cannot run short
	_ = p.BuildInto(frame, FramePrefixSize)
	return frame
}

// EncodeBuffer stamps the raw flag into a frame about to be transmitted.
func EncodeBuffer(frame []byte) {
	frame[flagOffset] = RawFlag
}

// Framer converts packets to wire frames and back for one transport.
type Framer struct {
	Checksum Checksummer
	MaxSize  int // 0 means no upper bound besides the 4-byte length
}

// Encode builds a frame ready for transmission.
func (f *Framer) Encode(p *packet.Packet) []byte {
	frame := BuildFrame(p)
	EncodeBuffer(frame)
	if f.Checksum != nil {
		f.Checksum.Stamp(frame)
	}
	return frame
}

// ReadFrame reads one frame from r and returns the packet bytes with the
// envelope stripped.
func (f *Framer) ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [FramePrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}
	if prefix[0] != FrameMarker {
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadMarker, prefix[0])
	}

	total := int(binary.BigEndian.Uint32(prefix[1:5]))
	if total < minFrameSize || (f.MaxSize > 0 && total > f.MaxSize) {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, total)
	}

	frame := make([]byte, total)
	copy(frame, prefix[:])
	if _, err := io.ReadFull(r, frame[FramePrefixSize:]); err != nil {
		return nil, fmt.Errorf("read frame body (%d bytes): %w", total-FramePrefixSize, err)
	}
	if f.Checksum != nil && !f.Checksum.Verify(frame) {
		return nil, ErrChecksum
	}
	return frame[FramePrefixSize : total-FrameChecksumSize], nil
}
