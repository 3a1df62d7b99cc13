package packet

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the header and every element, one per line, in the format
// used by packet logs. The read cursor is restored afterwards.
func (p *Packet) String() string {
	var sb strings.Builder
	prev := p.ptr
	p.ptr = p.bodyStart
	defer func() { p.ptr = prev }()

	fmt.Fprintf(&sb, "Op: %08X, Id: %016X\n", uint32(p.Op), uint64(p.ID))

	for i := 1; ; i++ {
		t := p.Peek()
		if t == None {
			break
		}
		var err error
		switch t {
		case Byte:
			var v byte
			if v, err = p.GetByte(); err == nil {
				fmt.Fprintf(&sb, "%03d [%16s] Byte   : %d", i, dots(fmt.Sprintf("%02X", v)), v)
			}
		case Short:
			var v int16
			if v, err = p.GetShort(); err == nil {
				fmt.Fprintf(&sb, "%03d [%16s] Short  : %d", i, dots(fmt.Sprintf("%04X", uint16(v))), v)
			}
		case Int:
			var v int32
			if v, err = p.GetInt(); err == nil {
				fmt.Fprintf(&sb, "%03d [%16s] Int    : %d", i, dots(fmt.Sprintf("%08X", uint32(v))), v)
			}
		case Long:
			var v int64
			if v, err = p.GetLong(); err == nil {
				fmt.Fprintf(&sb, "%03d [%016X] Long   : %d", i, uint64(v), v)
			}
		case Float:
			var v float32
			if v, err = p.GetFloat(); err == nil {
				fmt.Fprintf(&sb, "%03d [................] Float  : %s", i, strconv.FormatFloat(float64(v), 'f', -1, 32))
			}
		case String:
			var v string
			if v, err = p.GetString(); err == nil {
				fmt.Fprintf(&sb, "%03d [................] String : %s", i, v)
			}
		case Bin:
			var v []byte
			if v, err = p.GetBin(); err == nil {
				fmt.Fprintf(&sb, "%03d [................] Bin    : ", i)
				for j, b := range v {
					if j > 0 {
						if j%16 == 0 {
							sb.WriteString("\n" + strings.Repeat(" ", 33))
						} else {
							sb.WriteByte(' ')
						}
					}
					fmt.Fprintf(&sb, "%02X", b)
				}
			}
		default:
			err = fmt.Errorf("unknown tag %d", byte(t))
		}
		if err != nil {
			fmt.Fprintf(&sb, "%03d <%v>\n", i, err)
			break
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// dots left-pads s with '.' to 16 columns.
func dots(s string) string {
	if len(s) >= 16 {
		return s
	}
	return strings.Repeat(".", 16-len(s)) + s
}
