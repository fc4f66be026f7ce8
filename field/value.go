package field

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind.
	KindInvalid Kind = iota
	// KindInt32 is a 32-bit signed integer.
	KindInt32
	// KindString is a UTF-8 string.
	KindString
	// KindTimestamp is an instant with nanosecond precision.
	KindTimestamp
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "Int32"
	case KindString:
		return "String"
	case KindTimestamp:
		return "Timestamp"
	default:
		return "Invalid"
	}
}

// Value holds exactly one decoded field value.
//
// Values are comparable with == and with Equal; both agree.
// Timestamps are stored as nanoseconds since the epoch, so two instants
// in different locations compare equal.
type Value struct {
	Kind Kind
	num  int64
	str  string
}

// Int32 returns an Int32 Value.
func Int32(v int32) Value { return Value{Kind: KindInt32, num: int64(v)} }

// String returns a String Value.
func String(v string) Value { return Value{Kind: KindString, str: v} }

// Timestamp returns a Timestamp Value.
func Timestamp(t time.Time) Value { return Value{Kind: KindTimestamp, num: t.UnixNano()} }

// AsInt32 returns the integer if Kind is KindInt32.
func (v Value) AsInt32() (int32, bool) {
	if v.Kind != KindInt32 {
		return 0, false
	}
	return int32(v.num), true
}

// AsString returns the string if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsTimestamp returns the instant if Kind is KindTimestamp.
func (v Value) AsTimestamp() (time.Time, bool) {
	if v.Kind != KindTimestamp {
		return time.Time{}, false
	}
	return time.Unix(0, v.num), true
}

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.Kind != KindInvalid }

// Equal reports whether v and o have the same kind and payload.
// Values of different kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt32, KindTimestamp:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	default:
		return true
	}
}

// String formats v for display.
func (v Value) String() string {
	switch v.Kind {
	case KindInt32:
		return strconv.FormatInt(v.num, 10)
	case KindString:
		return strconv.Quote(v.str)
	case KindTimestamp:
		return time.Unix(0, v.num).UTC().Format(time.RFC3339Nano)
	default:
		return "<invalid>"
	}
}

// Interface returns the payload as int32, string or time.Time; nil when invalid.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt32:
		return int32(v.num)
	case KindString:
		return v.str
	case KindTimestamp:
		return time.Unix(0, v.num).UTC()
	default:
		return nil
	}
}

// MarshalJSON encodes the payload as a JSON number, string or RFC 3339 string.
func (v Value) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(v.Interface())
}

// ParseError reports text that could not be parsed as a value of the given kind.
type ParseError struct {
	Kind Kind
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %v", e.Text, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse converts user-supplied text into a Value of kind k.
//
// Int32 accepts base-10 integers. Timestamp accepts RFC 3339 or an integer
// number of nanoseconds since the epoch. String accepts anything; a single pair
// of surrounding double quotes is removed.
func Parse(k Kind, text string) (Value, error) {
	switch k {
	case KindInt32:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return Value{}, &ParseError{Kind: k, Text: text, Err: err}
		}
		return Int32(int32(n)), nil
	case KindString:
		if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
			if s, err := strconv.Unquote(text); err == nil {
				return String(s), nil
			}
		}
		return String(text), nil
	case KindTimestamp:
		text = strings.TrimSpace(text)
		if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return Timestamp(t), nil
		}
		ns, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, &ParseError{Kind: k, Text: text, Err: err}
		}
		return Timestamp(time.Unix(0, ns)), nil
	default:
		return Value{}, &ParseError{Kind: k, Text: text, Err: fmt.Errorf("unsupported kind")}
	}
}
