package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrBufferTooSmall is returned by BuildInto when the target cannot hold GetSize() bytes.
	ErrBufferTooSmall = errors.New("packet: buffer too small for packet, use GetSize()")
	// ErrTruncated is returned when the byte stream ends inside a header or element.
	ErrTruncated = errors.New("packet: truncated")
	// ErrVarIntOverflow is returned when a header varint runs past five bytes.
	ErrVarIntOverflow = errors.New("packet: varint overflow")
)

// TypeMismatchError is returned by the Get methods when the next element's
// tag is not the requested type. Offset is relative to the body start.
type TypeMismatchError struct {
	Expected ElementType
	Actual   ElementType
	Offset   int
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("packet: expected %s, got %s at body offset %d", e.Expected, e.Actual, e.Offset)
}

// UnsupportedTypeError is returned by Put for values with no element type.
type UnsupportedTypeError struct {
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("packet: unsupported element value of type %T", e.Value)
}

// ElementTooLargeError is returned by Put for String and Bin values whose
// encoded length does not fit the 16-bit length field.
type ElementTooLargeError struct {
	Type ElementType
	Len  int
}

func (e *ElementTooLargeError) Error() string {
	return fmt.Sprintf("packet: %s element of %d bytes exceeds %d", e.Type, e.Len, MaxElementLen)
}
