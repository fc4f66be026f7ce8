package archive

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the body codec.
type Compression uint8

const (
	// None stores the body as is.
	None Compression = 0
	// LZ4 uses LZ4 block compression: fast, moderate ratio.
	LZ4 Compression = 1
	// Zstd uses Zstandard: slower, better ratio. The default for backups.
	Zstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the String form of a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxRawLen))
}

const (
	// lz4MaxRatio is the largest expansion an LZ4 block can encode.
	lz4MaxRatio = 255
	// zstdPrealloc caps the output buffer reserved up front from the header.
	zstdPrealloc = 8 << 20
)

// compress encodes raw. When the codec cannot shrink raw it returns raw with
// None, so the header always names the codec actually used.
func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	if len(raw) == 0 {
		return raw, None, nil
	}
	switch c {
	case None:
		return raw, None, nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, c, err
		}
		if n == 0 || n >= len(raw) {
			return raw, None, nil
		}
		return dst[:n], LZ4, nil
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, c, err
		}
		defer zstdEncoderPool.Put(enc)
		out := enc.EncodeAll(raw, nil)
		if len(out) >= len(raw) {
			return raw, None, nil
		}
		return out, Zstd, nil
	default:
		return nil, c, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}

func decompress(body []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case None:
		return body, nil
	case LZ4:
		if rawLen > lz4MaxRatio*len(body) {
			return nil, fmt.Errorf("raw length %d out of range for %d byte lz4 block", rawLen, len(body))
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	case Zstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(body, make([]byte, 0, min(rawLen, zstdPrealloc)))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}
