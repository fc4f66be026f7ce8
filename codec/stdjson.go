package codec

import "encoding/json"

// StdJSON encodes with encoding/json.
type StdJSON struct{}

var _ Codec = StdJSON{}

func (StdJSON) Name() string { return "json" }

func (StdJSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (StdJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
