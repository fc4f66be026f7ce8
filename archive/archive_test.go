package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowFile() []byte {
	return []byte(strings.Repeat("1\xFF\x00\xFF\x00\xFF\x00\xFF\x00Nirvana\x00\x7F\x00\xFF\x00\x7F\x00\xFF", 200))
}

func TestWriteRead(t *testing.T) {
	raw := rowFile()

	for _, c := range []Compression{None, LZ4, Zstd} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			h, n, err := Write(&buf, raw, c)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)
			assert.Equal(t, c, h.Compression)
			assert.Equal(t, uint64(len(raw)), h.RawLen)
			if c != None {
				assert.Less(t, buf.Len(), len(raw))
			}

			got, rh, err := Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, h, rh)
			assert.Equal(t, raw, got)
		})
	}
}

func TestHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := Write(&buf, []byte("abc"), None)
	require.NoError(t, err)

	b := buf.Bytes()
	require.Len(t, b, HeaderSize+3)
	assert.Equal(t, "VBAR", string(b[:4]))
	assert.Equal(t, byte(Version), b[4])
	assert.Equal(t, byte(None), b[5])
	assert.Equal(t, []byte{0, 0}, b[6:8])
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, b[12:20])
	assert.Equal(t, "abc", string(b[20:]))
}

func TestIncompressibleFallsBackToNone(t *testing.T) {
	raw := []byte("x")
	var buf bytes.Buffer
	h, _, err := Write(&buf, raw, Zstd)
	require.NoError(t, err)
	assert.Equal(t, None, h.Compression)

	got, _, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestEmpty(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := Write(&buf, nil, LZ4)
	require.NoError(t, err)

	got, h, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, uint64(0), h.RawLen)
}

func TestCorruption(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := Write(&buf, rowFile(), None)
	require.NoError(t, err)
	b := buf.Bytes()

	t.Run("body", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[HeaderSize+5] ^= 0x01
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader(b[:len(b)-1]))
		assert.ErrorIs(t, err, ErrChecksumMismatch)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[0] = 'X'
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[4] = 9
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("short header", func(t *testing.T) {
		_, _, err := Read(bytes.NewReader(b[:7]))
		assert.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("raw length", func(t *testing.T) {
		for _, c := range []Compression{None, LZ4, Zstd} {
			var cbuf bytes.Buffer
			h, _, err := Write(&cbuf, rowFile(), c)
			require.NoError(t, err)
			require.Equal(t, c, h.Compression)

			for _, rawLen := range []uint64{1 << 63, MaxRawLen + 1, MaxRawLen, uint64(len(rowFile())) + 1} {
				bad := bytes.Clone(cbuf.Bytes())
				binary.LittleEndian.PutUint64(bad[12:], rawLen)
				var rerr error
				require.NotPanics(t, func() {
					_, _, rerr = Read(bytes.NewReader(bad))
				}, "%s raw length %d", c, rawLen)
				assert.Error(t, rerr, "%s raw length %d", c, rawLen)
				assert.True(t, errors.Is(rerr, ErrInvalidArchive) || errors.Is(rerr, ErrChecksumMismatch), rerr)
			}
		}
	})

	t.Run("compression byte", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[5] = 42
		_, _, err := Read(bytes.NewReader(bad))
		assert.ErrorIs(t, err, ErrUnsupportedCompression)
	})
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{None, LZ4, Zstd} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
