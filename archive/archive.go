package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the encoded size of Header.
const HeaderSize = 20

// Version is the archive format version written by Write.
const Version = 1

// MaxRawLen is the largest unpacked size an archive may declare.
const MaxRawLen = math.MaxInt32

var magic = [4]byte{'V', 'B', 'A', 'R'}

var (
	// ErrInvalidArchive is returned for a stream that is not an archive.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrChecksumMismatch is returned when the unpacked bytes fail the checksum.
	ErrChecksumMismatch = errors.New("archive checksum mismatch")
	// ErrTooLarge is returned by Write for input above MaxRawLen.
	ErrTooLarge = errors.New("archive too large")
	// ErrUnsupportedCompression is returned for an unknown compression byte.
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

// Header describes an archive body.
type Header struct {
	Version     uint8
	Compression Compression
	Checksum    uint32
	RawLen      uint64
}

func (h Header) encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[0:4], magic[:])
	b[4] = h.Version
	b[5] = byte(h.Compression)
	binary.LittleEndian.PutUint32(b[8:], h.Checksum)
	binary.LittleEndian.PutUint64(b[12:], h.RawLen)
	return b
}

func decodeHeader(b [HeaderSize]byte) (Header, error) {
	if [4]byte(b[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrInvalidArchive, b[0:4])
	}
	h := Header{
		Version:     b[4],
		Compression: Compression(b[5]),
		Checksum:    binary.LittleEndian.Uint32(b[8:]),
		RawLen:      binary.LittleEndian.Uint64(b[12:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: version %d", ErrInvalidArchive, h.Version)
	}
	if h.RawLen > MaxRawLen {
		return Header{}, fmt.Errorf("%w: raw length %d exceeds %d", ErrInvalidArchive, h.RawLen, MaxRawLen)
	}
	return h, nil
}

// Write packs raw into w using compression c. It returns the header written
// and the number of bytes written.
func Write(w io.Writer, raw []byte, c Compression) (Header, int64, error) {
	if len(raw) > MaxRawLen {
		return Header{}, 0, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(raw), MaxRawLen)
	}
	body, used, err := compress(raw, c)
	if err != nil {
		return Header{}, 0, fmt.Errorf("compress: %w", err)
	}
	h := Header{
		Version:     Version,
		Compression: used,
		Checksum:    Checksum(raw),
		RawLen:      uint64(len(raw)),
	}
	hb := h.encode()
	n, err := w.Write(hb[:])
	if err != nil {
		return h, int64(n), err
	}
	m, err := w.Write(body)
	return h, int64(n + m), err
}

// Read unpacks an archive from r and verifies its checksum.
func Read(r io.Reader) ([]byte, Header, error) {
	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, Header{}, fmt.Errorf("%w: short header", ErrInvalidArchive)
		}
		return nil, Header{}, err
	}
	h, err := decodeHeader(hb)
	if err != nil {
		return nil, Header{}, err
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, h, err
	}
	raw, err := decompress(body, h.Compression, int(h.RawLen))
	if err != nil {
		return nil, h, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	if uint64(len(raw)) != h.RawLen {
		return nil, h, fmt.Errorf("%w: length %d, want %d", ErrChecksumMismatch, len(raw), h.RawLen)
	}

	if got := Checksum(raw); got != h.Checksum {
		return nil, h, fmt.Errorf("%w: got %08x, want %08x", ErrChecksumMismatch, got, h.Checksum)
	}
	return raw, h, nil
}
