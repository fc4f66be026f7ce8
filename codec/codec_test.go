package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type song struct {
	ID     int32  `json:"id"`
	Title  string `json:"title"`
	Artist int32  `json:"artist"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgree(t *testing.T) {
	in := map[string]any{"title": "Smells Like Teen Spirit", "id": 7, "artist": 1}

	std, err := StdJSON{}.Marshal(in)
	require.NoError(t, err)
	fast, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, string(std), string(fast))
}

func TestGoJSONAppend(t *testing.T) {
	dst := []byte("row=")
	dst, err := GoJSON{}.Append(dst, map[string]int{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, `row={"id":1}`, string(dst))
}

func TestLineWriter(t *testing.T) {
	for _, c := range []Codec{GoJSON{}, StdJSON{}, nil} {
		var buf bytes.Buffer
		lw := NewLineWriter(&buf, c)
		require.NoError(t, lw.Write(song{ID: 1, Title: "Underdog", Artist: 2}))
		require.NoError(t, lw.Write(song{ID: 2, Title: "Club Foot", Artist: 2}))
		assert.Equal(t, 2, lw.Lines())
		assert.Equal(t,
			"{\"id\":1,\"title\":\"Underdog\",\"artist\":2}\n{\"id\":2,\"title\":\"Club Foot\",\"artist\":2}\n",
			buf.String())
	}
}

func TestLineWriterMarshalError(t *testing.T) {
	lw := NewLineWriter(&bytes.Buffer{}, StdJSON{})
	err := lw.Write(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: line 1")
	assert.Equal(t, 0, lw.Lines())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLineWriterWriteError(t *testing.T) {
	lw := NewLineWriter(failingWriter{}, nil)
	assert.EqualError(t, lw.Write(1), "disk full")
}

func TestReadLines(t *testing.T) {
	in := "{\"id\":1,\"title\":\"Underdog\"}\n\n{\"id\":2,\"title\":\"Club Foot\"}\n"

	var got []song
	for s, err := range ReadLines[song](strings.NewReader(in), nil) {
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, []song{{ID: 1, Title: "Underdog"}, {ID: 2, Title: "Club Foot"}}, got)
}

func TestReadLinesBadLine(t *testing.T) {
	in := "{\"id\":1}\nnot json\n{\"id\":3}\n"

	var (
		ids  []int32
		errs []error
	)
	for s, err := range ReadLines[song](strings.NewReader(in), StdJSON{}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int32{1}, ids)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "line 2")
}
