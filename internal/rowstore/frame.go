package rowstore

import (
	"bytes"
	"errors"
)

// DelimiterSize is the length of both delimiters.
const DelimiterSize = 8

var (
	// FieldDelimiter separates the fields of one row.
	FieldDelimiter = [DelimiterSize]byte{0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	// RowDelimiter terminates a row.
	RowDelimiter = [DelimiterSize]byte{0x00, 0x7F, 0x00, 0xFF, 0x00, 0x7F, 0x00, 0xFF}
)

var (
	// ErrFilePointerCorrupt is returned when a read starts at an offset that is
	// not a row boundary, or when the file ends inside a row.
	ErrFilePointerCorrupt = errors.New("file pointer is corrupt")

	// ErrDelimiterInPayload is returned by WriteRow when the framed row would
	// not scan back into the same fields.
	ErrDelimiterInPayload = errors.New("field payload collides with a delimiter")

	// ErrInvalidSpan is returned by Erase for an empty, inverted or out-of-range span.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrInvalidOffset is returned by Seek for a position before the start of the file.
	ErrInvalidOffset = errors.New("invalid offset")
)

// Span delimits one row's bytes: [Begin, End). End includes the row delimiter.
type Span struct {
	Begin int64
	End   int64
}

// Len returns the number of bytes in the span.
func (s Span) Len() int64 { return s.End - s.Begin }

// frame appends one framed row to dst.
func frame(dst []byte, fields [][]byte) []byte {
	for i, f := range fields {
		dst = append(dst, f...)
		if i < len(fields)-1 {
			dst = append(dst, FieldDelimiter[:]...)
		}
	}
	return append(dst, RowDelimiter[:]...)
}

// scanner splits a byte stream into fields. After each byte the trailing
// DelimiterSize bytes are compared against both delimiters.
type scanner struct {
	buf    []byte
	fields [][]byte
	n      int64
}

// feed consumes one byte and reports whether a row delimiter completed.
func (s *scanner) feed(b byte) bool {
	s.buf = append(s.buf, b)
	s.n++
	if len(s.buf) < DelimiterSize {
		return false
	}
	tail := s.buf[len(s.buf)-DelimiterSize:]
	switch {
	case bytes.Equal(tail, FieldDelimiter[:]):
		s.flush()
		return false
	case bytes.Equal(tail, RowDelimiter[:]):
		s.flush()
		return true
	default:
		return false
	}
}

func (s *scanner) flush() {
	payload := s.buf[:len(s.buf)-DelimiterSize]
	s.fields = append(s.fields, bytes.Clone(payload))
	s.buf = s.buf[:0]
}

// roundTrips reports whether framed scans back into exactly fields.
func roundTrips(framed []byte, fields [][]byte) bool {
	var sc scanner
	for i, b := range framed {
		if sc.feed(b) {
			if i != len(framed)-1 || len(sc.fields) != len(fields) {
				return false
			}
			for j := range fields {
				if !bytes.Equal(sc.fields[j], fields[j]) {
					return false
				}
			}
			return true
		}
	}
	return false
}
