package field

import (
	"encoding/binary"
	"time"
	"unicode/utf8"
)

// InvalidString is what DecodeString returns for bytes that are not valid UTF-8.
const InvalidString = "#!ERR"

const (
	int32Size     = 4
	timestampSize = 8
)

// EncodeInt32 returns the 4-byte native-endian representation of v.
func EncodeInt32(v int32) []byte {
	return binary.NativeEndian.AppendUint32(make([]byte, 0, int32Size), uint32(v))
}

// DecodeInt32 decodes a value written by EncodeInt32.
// Input of any length other than 4 decodes to 0.
func DecodeInt32(b []byte) int32 {
	if len(b) != int32Size {
		return 0
	}
	return int32(binary.NativeEndian.Uint32(b))
}

// EncodeString returns the raw UTF-8 bytes of s.
func EncodeString(s string) []byte {
	return []byte(s)
}

// DecodeString decodes raw UTF-8 bytes.
func DecodeString(b []byte) string {
	if !utf8.Valid(b) {
		return InvalidString
	}
	return string(b)
}

// EncodeTimestamp returns t as 8 native-endian bytes of signed nanoseconds since the epoch.
func EncodeTimestamp(t time.Time) []byte {
	return binary.NativeEndian.AppendUint64(make([]byte, 0, timestampSize), uint64(t.UnixNano()))
}

// DecodeTimestamp decodes a value written by EncodeTimestamp.
// Input of any length other than 8 decodes to the epoch.
func DecodeTimestamp(b []byte) time.Time {
	if len(b) != timestampSize {
		return time.Unix(0, 0)
	}
	ns := int64(binary.NativeEndian.Uint64(b))
	return time.Unix(ns/int64(time.Second), ns%int64(time.Second))
}

// Encode encodes v with the codec of its kind.
// An invalid Value encodes to nil.
func Encode(v Value) []byte {
	switch v.Kind {
	case KindInt32:
		return EncodeInt32(int32(v.num))
	case KindString:
		return EncodeString(v.str)
	case KindTimestamp:
		return binary.NativeEndian.AppendUint64(make([]byte, 0, timestampSize), uint64(v.num))
	default:
		return nil
	}
}

// Decode decodes b as a value of kind k.
func Decode(k Kind, b []byte) Value {
	switch k {
	case KindInt32:
		return Int32(DecodeInt32(b))
	case KindString:
		return String(DecodeString(b))
	case KindTimestamp:
		return Timestamp(DecodeTimestamp(b))
	default:
		return Value{}
	}
}
