package rowstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/hupe1980/versebase/internal/fs"
	"github.com/hupe1980/versebase/schema"
)

// Record is one row yielded by Scan.
type Record struct {
	Fields []schema.Field
	Span   Span
}

// Store owns one row file.
type Store struct {
	path    string
	file    fs.File
	columns []string
	pos     int64
	size    int64
}

// Open opens or creates the row file at path. columns names the fields of
// every row in storage order; it labels the fields returned by ReadRow.
func Open(fsys fs.FileSystem, path string, columns []string) (*Store, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open row file %s: %w", path, err)
	}
	size, err := fs.Size(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat row file %s: %w", path, err)
	}
	return &Store{
		path:    path,
		file:    file,
		columns: append([]string(nil), columns...),
		size:    size,
	}, nil
}

// Path returns the row file path.
func (s *Store) Path() string { return s.path }

// Size returns the size of the row file in bytes.
func (s *Store) Size() int64 { return s.size }

// Seek moves the read position. A non-negative pos is an absolute offset; a
// negative pos counts from the end, with -1 meaning just past the last row.
// It returns the resulting absolute offset.
func (s *Store) Seek(pos int64) (int64, error) {
	abs := pos
	if pos < 0 {
		abs = s.size + pos + 1
	}
	if abs < 0 {
		return s.pos, fmt.Errorf("seek %d in %s: %w", pos, s.path, ErrInvalidOffset)
	}
	s.pos = abs
	return abs, nil
}

// checkBoundary verifies that the bytes just before pos are a row delimiter.
// The start and the end of the file are always boundaries.
func (s *Store) checkBoundary(pos int64) error {
	if pos == 0 || pos >= s.size {
		return nil
	}
	if pos < DelimiterSize {
		return fmt.Errorf("read at %d in %s: %w", pos, s.path, ErrFilePointerCorrupt)
	}
	var prev [DelimiterSize]byte
	if _, err := s.file.ReadAt(prev[:], pos-DelimiterSize); err != nil {
		return fmt.Errorf("read at %d in %s: %w", pos, s.path, err)
	}
	if prev != RowDelimiter {
		return fmt.Errorf("read at %d in %s: %w", pos, s.path, ErrFilePointerCorrupt)
	}
	return nil
}

// ReadRow reads the row starting at the current position and advances past it.
//
// It returns io.EOF when the position is at or beyond the end of the file, and
// ErrFilePointerCorrupt when the position is not a row boundary or the file
// ends before the row delimiter.
func (s *Store) ReadRow() ([]schema.Field, Span, error) {
	fields, span, err := s.readRowAt(s.pos)
	if err != nil {
		return nil, Span{}, err
	}
	s.pos = span.End
	return fields, span, nil
}

// readRowAt reads the row beginning at pos without moving the read position.
func (s *Store) readRowAt(pos int64) ([]schema.Field, Span, error) {
	if err := s.checkBoundary(pos); err != nil {
		return nil, Span{}, err
	}
	if pos >= s.size {
		return nil, Span{}, io.EOF
	}

	br := bufio.NewReader(io.NewSectionReader(s.file, pos, s.size-pos))
	var sc scanner
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil, Span{}, fmt.Errorf("unterminated row at %d in %s: %w", pos, s.path, ErrFilePointerCorrupt)
		}
		if err != nil {
			return nil, Span{}, fmt.Errorf("read row at %d in %s: %w", pos, s.path, err)
		}
		if sc.feed(b) {
			break
		}
	}
	return s.label(sc.fields), Span{Begin: pos, End: pos + sc.n}, nil
}

func (s *Store) label(raw [][]byte) []schema.Field {
	fields := make([]schema.Field, len(raw))
	for i, data := range raw {
		fields[i].Data = data
		if i < len(s.columns) {
			fields[i].Name = s.columns[i]
		}
	}
	return fields
}

// WriteRow appends a row after the last row, syncs, and returns its span.
func (s *Store) WriteRow(fields []schema.Field) (Span, error) {
	raw := make([][]byte, len(fields))
	for i, f := range fields {
		raw[i] = f.Data
	}
	framed := frame(nil, raw)
	if !roundTrips(framed, raw) {
		return Span{}, fmt.Errorf("write row to %s: %w", s.path, ErrDelimiterInPayload)
	}

	begin, _ := s.Seek(-1)
	if _, err := s.file.Seek(begin, io.SeekStart); err != nil {
		return Span{}, fmt.Errorf("write row to %s: %w", s.path, err)
	}
	if _, err := s.file.Write(framed); err != nil {
		s.refresh()
		return Span{}, fmt.Errorf("write row to %s: %w", s.path, err)
	}
	s.size = begin + int64(len(framed))
	s.pos = s.size
	if err := fs.SyncData(s.file); err != nil {
		return Span{}, fmt.Errorf("sync row file %s: %w", s.path, err)
	}
	return Span{Begin: begin, End: s.size}, nil
}

// Erase removes the bytes of span by rewriting everything after it, then syncs.
// Offsets of all later rows shift down by span.Len().
func (s *Store) Erase(span Span) error {
	if span.Begin < 0 || span.Begin >= span.End || span.End > s.size {
		return fmt.Errorf("erase [%d,%d) in %s: %w", span.Begin, span.End, s.path, ErrInvalidSpan)
	}

	tail := make([]byte, s.size-span.End)
	if len(tail) > 0 {
		if _, err := s.file.ReadAt(tail, span.End); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("erase in %s: %w", s.path, err)
		}
	}

	if err := s.file.Truncate(span.Begin); err != nil {
		s.refresh()
		return fmt.Errorf("erase in %s: %w", s.path, err)
	}
	s.size = span.Begin
	if _, err := s.file.Seek(span.Begin, io.SeekStart); err != nil {
		return fmt.Errorf("erase in %s: %w", s.path, err)
	}
	if _, err := s.file.Write(tail); err != nil {
		s.refresh()
		return fmt.Errorf("erase in %s: %w", s.path, err)
	}
	s.size = span.Begin + int64(len(tail))
	s.pos = span.Begin
	if err := fs.SyncData(s.file); err != nil {
		return fmt.Errorf("sync row file %s: %w", s.path, err)
	}
	return nil
}

// Scan iterates every row from the start of the file. It keeps its own
// cursor, so Seek, ReadRow and WriteRow calls made while ranging do not move
// it. Iteration stops after the first error, which is yielded.
func (s *Store) Scan() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		var pos int64
		for {
			fields, span, err := s.readRowAt(pos)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			pos = span.End
			if !yield(Record{Fields: fields, Span: span}, nil) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the whole row file.
func (s *Store) Snapshot() ([]byte, error) {
	buf := make([]byte, s.size)
	if _, err := s.file.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("snapshot %s: %w", s.path, err)
	}
	return buf, nil
}

func (s *Store) refresh() {
	if size, err := fs.Size(s.file); err == nil {
		s.size = size
	}
}

// Close closes the row file.
func (s *Store) Close() error {
	return s.file.Close()
}
