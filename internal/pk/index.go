package pk

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/versebase/internal/fs"
)

// RecordSize is the on-disk size of one index entry.
const RecordSize = 12

// ErrTruncated is returned by Load when the file ends inside a record.
// Every complete record before the tail has been loaded.
var ErrTruncated = errors.New("index file ends with a partial record")

// Index is a sorted id -> offset map mirrored to a file.
type Index struct {
	path    string
	file    fs.File
	ids     *roaring.Bitmap
	offsets map[int32]uint64
	closed  bool
}

// Open opens or creates the index file at path and loads it.
//
// When Load reports ErrTruncated the index is still returned, together with
// the error, holding every complete record.
func Open(fsys fs.FileSystem, path string) (*Index, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	file, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}

	idx := &Index{
		path:    path,
		file:    file,
		ids:     roaring.New(),
		offsets: make(map[int32]uint64),
	}
	if err := idx.Load(); err != nil {
		if errors.Is(err, ErrTruncated) {
			return idx, err
		}
		_ = file.Close()
		return nil, err
	}
	return idx, nil
}

// Path returns the index file path.
func (idx *Index) Path() string { return idx.path }

func key(id int32) uint32 { return uint32(id) ^ (1 << 31) }

func unkey(k uint32) int32 { return int32(k ^ (1 << 31)) }

// Load replaces the in-memory map with the records read from the file.
func (idx *Index) Load() error {
	idx.ids.Clear()
	clear(idx.offsets)

	if _, err := idx.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("load index %s: %w", idx.path, err)
	}

	br := bufio.NewReader(idx.file)
	var rec [RecordSize]byte
	for {
		_, err := io.ReadFull(br, rec[:])
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("load index %s: %w", idx.path, ErrTruncated)
		}
		if err != nil {
			return fmt.Errorf("load index %s: %w", idx.path, err)
		}
		id := int32(binary.NativeEndian.Uint32(rec[0:4]))
		off := binary.NativeEndian.Uint64(rec[4:12])
		idx.put(id, off)
	}
}

// Dump truncates the file and rewrites every entry in ascending id order.
func (idx *Index) Dump() error {
	if err := idx.file.Truncate(0); err != nil {
		return fmt.Errorf("dump index %s: %w", idx.path, err)
	}
	if _, err := idx.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("dump index %s: %w", idx.path, err)
	}

	bw := bufio.NewWriter(idx.file)
	var rec [RecordSize]byte
	for id, off := range idx.All() {
		binary.NativeEndian.PutUint32(rec[0:4], uint32(id))
		binary.NativeEndian.PutUint64(rec[4:12], off)
		if _, err := bw.Write(rec[:]); err != nil {
			return fmt.Errorf("dump index %s: %w", idx.path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dump index %s: %w", idx.path, err)
	}
	if err := fs.SyncData(idx.file); err != nil {
		return fmt.Errorf("sync index %s: %w", idx.path, err)
	}
	return nil
}

// Flush persists the current map now.
func (idx *Index) Flush() error { return idx.Dump() }

func (idx *Index) put(id int32, off uint64) {
	idx.ids.Add(key(id))
	idx.offsets[id] = off
}

// Exists reports whether id is indexed.
func (idx *Index) Exists(id int32) bool {
	_, ok := idx.offsets[id]
	return ok
}

// Get returns the offset recorded for id.
func (idx *Index) Get(id int32) (uint64, bool) {
	off, ok := idx.offsets[id]
	return off, ok
}

// Set records offset for id, replacing any previous entry, and dumps.
func (idx *Index) Set(id int32, offset uint64) error {
	idx.put(id, offset)
	return idx.Dump()
}

// Delete removes id and dumps. It returns the removed offset, if any.
func (idx *Index) Delete(id int32) (uint64, bool, error) {
	off, ok := idx.offsets[id]
	if ok {
		delete(idx.offsets, id)
		idx.ids.Remove(key(id))
	}
	return off, ok, idx.Dump()
}

// Reset replaces all entries with entries and dumps.
func (idx *Index) Reset(entries map[int32]uint64) error {
	idx.ids.Clear()
	clear(idx.offsets)
	for id, off := range entries {
		idx.put(id, off)
	}
	return idx.Dump()
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.offsets) }

// All iterates entries in ascending id order.
func (idx *Index) All() iter.Seq2[int32, uint64] {
	return func(yield func(int32, uint64) bool) {
		it := idx.ids.Iterator()
		for it.HasNext() {
			id := unkey(it.Next())
			if !yield(id, idx.offsets[id]) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the entries.
func (idx *Index) Snapshot() map[int32]uint64 {
	return maps.Clone(idx.offsets)
}

// Close performs a final best-effort dump and closes the file.
// The dump error, if any, is returned after the file is closed.
func (idx *Index) Close() error {
	if idx.closed {
		return nil
	}
	idx.closed = true
	dumpErr := idx.Dump()
	return errors.Join(dumpErr, idx.file.Close())
}
