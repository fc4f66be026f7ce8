package codec

import gojson "github.com/goccy/go-json"

// GoJSON is the default export codec. Object keys come out sorted, so a
// line written by GoJSON is byte-identical to the StdJSON line for the same row.
type GoJSON struct{}

var (
	_ Codec    = GoJSON{}
	_ Appender = GoJSON{}
)

func (GoJSON) Name() string { return "go-json" }

// Marshal encodes one export record.
func (g GoJSON) Marshal(v any) ([]byte, error) { return g.Append(nil, v) }

// Unmarshal decodes one line; JSON numbers land in float64 as with encoding/json.
func (GoJSON) Unmarshal(line []byte, v any) error { return gojson.Unmarshal(line, v) }

// Append encodes v and appends it to dst, leaving dst unchanged on error.
// LineWriter reuses dst across rows.
func (GoJSON) Append(dst []byte, v any) ([]byte, error) {
	enc, err := gojson.Marshal(v)
	if err != nil {
		return dst, err
	}
	return append(dst, enc...), nil
}
