// Package tlv implements the Tag-Length-Value encoding used by receipt compliance codes.
//
// Every field is written as one tag byte, one length byte and the raw value bytes.
// Fields are concatenated with no separators.
package tlv

import (
	"errors"
	"fmt"
)

// MaxValueLen is the largest value a single field can carry.
const MaxValueLen = 255

var (
	// ErrValueTooLong is returned when a field value exceeds MaxValueLen bytes.
	ErrValueTooLong = errors.New("tlv value exceeds 255 bytes")
	// ErrTruncated is returned when a buffer ends in the middle of a field.
	ErrTruncated = errors.New("tlv buffer is truncated")
)

// Field is a single tagged value.
type Field struct {
	Tag   byte
	Value []byte
}

// String creates a field holding the UTF-8 bytes of s.
func String(tag byte, s string) Field {
	return Field{Tag: tag, Value: []byte(s)}
}

// Text returns the field value as a string.
func (f Field) Text() string {
	return string(f.Value)
}

// Encode writes fields in order. It never truncates: an oversized value fails the whole buffer.
func Encode(fields ...Field) ([]byte, error) {
	size := 0
	for _, f := range fields {
		if len(f.Value) > MaxValueLen {
			return nil, fmt.Errorf("tag %d: %w (got %d)", f.Tag, ErrValueTooLong, len(f.Value))
		}
		size += 2 + len(f.Value)
	}

	buf := make([]byte, 0, size)
	for _, f := range fields {
		buf = append(buf, f.Tag, byte(len(f.Value)))
		buf = append(buf, f.Value...)
	}

	return buf, nil
}

// Decode parses a buffer produced by Encode back into its fields.
func Decode(buf []byte) ([]Field, error) {
	fields := make([]Field, 0, 8)
	for i := 0; i < len(buf); {
		if i+2 > len(buf) {
			return nil, fmt.Errorf("offset %d: %w", i, ErrTruncated)
		}
		tag, n := buf[i], int(buf[i+1])
		i += 2
		if i+n > len(buf) {
			return nil, fmt.Errorf("tag %d at offset %d: %w", tag, i-2, ErrTruncated)
		}
		value := make([]byte, n)
		copy(value, buf[i:i+n])
		fields = append(fields, Field{Tag: tag, Value: value})
		i += n
	}

	return fields, nil
}
