// Package codec encodes row exports as JSON lines: one object per row,
// each terminated by a newline.
package codec

// Codec marshals a single export record.
// Implementations must be safe for concurrent use.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Appender is implemented by codecs that can encode into a caller buffer.
type Appender interface {
	Append(dst []byte, v any) ([]byte, error)
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ByName returns the built-in codec registered under name.
func ByName(name string) (Codec, bool) {
	switch name {
	case GoJSON{}.Name():
		return GoJSON{}, true
	case StdJSON{}.Name():
		return StdJSON{}, true
	default:
		return nil, false
	}
}
