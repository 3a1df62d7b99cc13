package net

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"testing"

	"github.com/erinngo/server/internal/net/packet"
)

func TestBuildFrameLayout(t *testing.T) {
	p := packet.New(0x1234, 0x10FF)
	p.PutInt(7)
	p.PutString("hi")

	frame := BuildFrame(p)
	if got, want := len(frame), FramePrefixSize+p.GetSize()+FrameChecksumSize; got != want {
		t.Fatalf("frame len = %d, want %d", got, want)
	}
	if frame[0] != FrameMarker {
		t.Errorf("marker = 0x%02X", frame[0])
	}
	if got := binary.BigEndian.Uint32(frame[1:5]); int(got) != len(frame) {
		t.Errorf("length field = %d, want %d", got, len(frame))
	}
	if frame[5] != 0 {
		t.Errorf("flag = 0x%02X before encode, want 0", frame[5])
	}
	if !bytes.Equal(frame[FramePrefixSize:len(frame)-FrameChecksumSize], p.Build()) {
		t.Error("packet bytes differ from Build()")
	}

	EncodeBuffer(frame)
	if frame[5] != RawFlag {
		t.Errorf("flag = 0x%02X after encode, want 0x03", frame[5])
	}
}

func TestReadFrameRoundTrip(t *testing.T) {
	f := &Framer{}
	var stream bytes.Buffer
	for i := int32(0); i < 3; i++ {
		p := packet.New(0x5000+i, int64(i))
		p.PutInt(i)
		stream.Write(f.Encode(p))
	}

	for i := int32(0); i < 3; i++ {
		raw, err := f.ReadFrame(&stream)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		p, err := packet.Parse(raw, 0)
		if err != nil {
			t.Fatalf("parse %d: %v", i, err)
		}
		if p.Op != 0x5000+i {
			t.Errorf("op = 0x%X", p.Op)
		}
		v, err := p.GetInt()
		if err != nil || v != i {
			t.Errorf("GetInt = %d, %v", v, err)
		}
	}
	if _, err := f.ReadFrame(&stream); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: %v, want EOF", err)
	}
}

func TestReadFrameRejects(t *testing.T) {
	good := (&Framer{}).Encode(packet.New(1, 1))

	badMarker := append([]byte(nil), good...)
	badMarker[0] = 0x77

	short := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(short[1:5], 4)

	huge := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(huge[1:5], 1<<30)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad marker", badMarker, ErrBadMarker},
		{"too short", short, ErrFrameLength},
		{"too long", huge, ErrFrameLength},
		{"truncated", good[:len(good)-2], io.ErrUnexpectedEOF},
	}
	f := &Framer{MaxSize: 1 << 16}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ReadFrame(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

type crcSum struct{}

func (crcSum) Stamp(frame []byte) {
	n := len(frame) - FrameChecksumSize
	binary.BigEndian.PutUint32(frame[n:], crc32.ChecksumIEEE(frame[:n]))
}

func (crcSum) Verify(frame []byte) bool {
	n := len(frame) - FrameChecksumSize
	return binary.BigEndian.Uint32(frame[n:]) == crc32.ChecksumIEEE(frame[:n])
}

func TestChecksummer(t *testing.T) {
	f := &Framer{Checksum: crcSum{}}
	p := packet.New(9, 9)
	p.PutString("checked")
	frame := f.Encode(p)

	if _, err := f.ReadFrame(bytes.NewReader(frame)); err != nil {
		t.Fatalf("valid frame: %v", err)
	}
	frame[len(frame)-6] ^= 0xFF
	if _, err := f.ReadFrame(bytes.NewReader(frame)); !errors.Is(err, ErrChecksum) {
		t.Fatalf("corrupted frame: %v, want ErrChecksum", err)
	}
}
