package versebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"time"

	"github.com/hupe1980/versebase/codec"
	"github.com/hupe1980/versebase/field"
	"github.com/hupe1980/versebase/internal/pk"
	"github.com/hupe1980/versebase/internal/rowstore"
	"github.com/hupe1980/versebase/schema"
)

// Table stores rows of type R in one row file, optionally accelerated by a
// primary index.
//
// A Table is not safe for concurrent use.
type Table[R any] struct {
	schema  schema.Schema[R]
	store   *rowstore.Store
	index   *pk.Index // nil without an index
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// Open opens or creates the table whose rows live at path.
//
// When an index is configured it is rebuilt from the row file before Open
// returns, so a stale or torn index file never survives construction.
func Open[R any](path string, s schema.Schema[R], optFns ...Option) (*Table[R], error) {
	o := applyOptions(optFns)

	store, err := rowstore.Open(o.fs, path, schema.ColumnNames(s))
	if err != nil {
		return nil, wrapError("open", s.Name(), err)
	}

	t := &Table[R]{
		schema:  s,
		store:   store,
		logger:  o.logger.WithTable(s.Name()),
		metrics: o.metricsCollector,
	}

	if o.indexPath != "" {
		idx, err := pk.Open(o.fs, o.indexPath)
		switch {
		case errors.Is(err, pk.ErrTruncated):
			t.logger.Warn("index file has a torn tail, rebuilding", "path", o.indexPath)
		case err != nil:
			_ = store.Close()
			return nil, wrapError("open", s.Name(), err)
		}
		t.index = idx

		if err := t.rebuild(); err != nil {
			_ = t.Close()
			return nil, wrapError("open", s.Name(), err)
		}
	}

	return t, nil
}

// Name returns the schema name.
func (t *Table[R]) Name() string { return t.schema.Name() }

// Schema returns the row schema.
func (t *Table[R]) Schema() schema.Schema[R] { return t.schema }

// Path returns the row file path.
func (t *Table[R]) Path() string { return t.store.Path() }

// Indexed reports whether the table maintains a primary index.
func (t *Table[R]) Indexed() bool { return t.index != nil }

func (t *Table[R]) fail(op string, err error) error {
	return wrapError(op, t.schema.Name(), err)
}

func (t *Table[R]) checkOpen() error {
	if t.closed {
		return ErrClosed
	}
	return nil
}

// scanIndex maps every id in the row file to the begin offset of its first row.
func (t *Table[R]) scanIndex() (map[int32]uint64, error) {
	entries := make(map[int32]uint64)
	for rec, err := range t.store.Scan() {
		if err != nil {
			return nil, err
		}
		id := field.DecodeInt32(rec.Fields[0].Data)
		if _, dup := entries[id]; !dup {
			entries[id] = uint64(rec.Span.Begin)
		}
	}
	return entries, nil
}

// rebuild replaces the index with the result of a full scan.
func (t *Table[R]) rebuild() error {
	if t.index == nil {
		return nil
	}
	start := time.Now()
	entries, err := t.scanIndex()
	if err == nil {
		err = t.index.Reset(entries)
	}
	elapsed := time.Since(start)
	t.logger.LogRebuild(context.Background(), len(entries), elapsed, err)
	if err == nil {
		t.metrics.RecordRebuild(len(entries), elapsed)
	}
	return err
}

// Get returns the row with the given id, or ErrNotFound.
//
// An indexed offset beyond the end of the row file is also reported as
// ErrNotFound, additionally matching ErrIndexMismatch. An indexed offset that
// holds a different id fails with ErrIndexMismatch alone.
func (t *Table[R]) Get(id int32) (R, error) {
	start := time.Now()
	row, err := t.get(id)
	t.metrics.RecordGet(time.Since(start), err)
	return row, t.fail("get", err)
}

func (t *Table[R]) get(id int32) (R, error) {
	var zero R
	if err := t.checkOpen(); err != nil {
		return zero, err
	}
	if t.index == nil {
		row, _, err := t.find(id)
		return row, err
	}

	off, ok := t.index.Get(id)
	if !ok {
		return zero, fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if _, err := t.store.Seek(int64(off)); err != nil {
		return zero, err
	}
	fields, _, err := t.store.ReadRow()
	if errors.Is(err, io.EOF) {
		return zero, fmt.Errorf("id %d at offset %d past end of file: %w (%w)", id, off, ErrNotFound, ErrIndexMismatch)
	}
	if err != nil {
		return zero, err
	}
	row := t.schema.Decode(fields)
	if got := t.schema.ID(row); got != id {
		return zero, fmt.Errorf("id %d at offset %d holds id %d: %w", id, off, got, ErrIndexMismatch)
	}
	return row, nil
}

// find scans for the first row with the given id.
func (t *Table[R]) find(id int32) (R, rowstore.Span, error) {
	var zero R
	for rec, err := range t.store.Scan() {
		if err != nil {
			return zero, rowstore.Span{}, err
		}
		if field.DecodeInt32(rec.Fields[0].Data) == id {
			return t.schema.Decode(rec.Fields), rec.Span, nil
		}
	}
	return zero, rowstore.Span{}, fmt.Errorf("id %d: %w", id, ErrNotFound)
}

// Select returns every row matching all pairs of filter, in file order.
// An empty filter matches every row.
func (t *Table[R]) Select(filter field.Filter) ([]R, error) {
	start := time.Now()
	rows, err := t.selectRows(filter)
	t.metrics.RecordSelect(len(rows), time.Since(start), err)
	if err != nil {
		return nil, t.fail("select", err)
	}
	return rows, nil
}

func (t *Table[R]) selectRows(filter field.Filter) ([]R, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	var rows []R
	for row, err := range t.All() {
		if err != nil {
			return nil, err
		}
		if filter.Matches(func(name string) (field.Value, bool) { return t.schema.Get(row, name) }) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// All iterates every row in file order. Iteration stops after the first
// error, which is yielded.
func (t *Table[R]) All() iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		var zero R
		if err := t.checkOpen(); err != nil {
			yield(zero, t.fail("scan", err))
			return
		}
		for rec, err := range t.store.Scan() {
			if err != nil {
				yield(zero, t.fail("scan", err))
				return
			}
			if !yield(t.schema.Decode(rec.Fields), nil) {
				return
			}
		}
	}
}

// Len returns the number of rows.
func (t *Table[R]) Len() (int, error) {
	if err := t.checkOpen(); err != nil {
		return 0, t.fail("len", err)
	}
	if t.index != nil {
		return t.index.Len(), nil
	}
	n := 0
	for _, err := range t.store.Scan() {
		if err != nil {
			return 0, t.fail("len", err)
		}
		n++
	}
	return n, nil
}

// Create appends row. It fails with ErrAlreadyExists if the id is taken.
func (t *Table[R]) Create(row R) error {
	start := time.Now()
	off, err := t.create(row)
	t.metrics.RecordCreate(time.Since(start), err)
	t.logger.LogCreate(context.Background(), t.schema.ID(row), off, err)
	return t.fail("create", err)
}

func (t *Table[R]) create(row R) (int64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	id := t.schema.ID(row)
	if t.index != nil {
		if t.index.Exists(id) {
			return 0, fmt.Errorf("id %d: %w", id, ErrAlreadyExists)
		}
	} else {
		_, err := t.get(id)
		switch {
		case err == nil:
			return 0, fmt.Errorf("id %d: %w", id, ErrAlreadyExists)
		case !errors.Is(err, ErrNotFound):
			return 0, err
		}
	}

	span, err := t.store.WriteRow(t.schema.Encode(row))
	if err != nil {
		return 0, err
	}
	if t.index != nil {
		if err := t.index.Set(id, uint64(span.Begin)); err != nil {
			return span.Begin, err
		}
	}
	return span.Begin, nil
}

// Delete removes the row with the given id, or fails with ErrNotFound.
//
// Rows after the erased one shift down, so the index is rebuilt by a full scan.
func (t *Table[R]) Delete(id int32) error {
	start := time.Now()
	err := t.delete(id)
	t.metrics.RecordDelete(time.Since(start), err)
	t.logger.LogDelete(context.Background(), id, err)
	return t.fail("delete", err)
}

func (t *Table[R]) delete(id int32) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	_, span, err := t.find(id)
	if err != nil {
		return err
	}
	if err := t.store.Erase(span); err != nil {
		// The tail may be gone; realign the index with what is left.
		if rerr := t.rebuild(); rerr != nil {
			t.logger.Warn("index rebuild after failed erase", "error", rerr)
		}
		return err
	}
	return t.rebuild()
}

// Update replaces the row with the same id. It is a Delete followed by a
// Create and is not atomic: a failed Create leaves the row deleted.
func (t *Table[R]) Update(row R) error {
	start := time.Now()
	err := t.delete(t.schema.ID(row))
	if err == nil {
		_, err = t.create(row)
	}
	t.metrics.RecordUpdate(time.Since(start), err)
	return t.fail("update", err)
}

// Verify rebuilds the index in memory and compares it with the live index.
// It returns ErrIndexMismatch when they differ. Tables without an index
// verify that the row file scans cleanly.
func (t *Table[R]) Verify() error {
	if err := t.checkOpen(); err != nil {
		return t.fail("verify", err)
	}
	entries, err := t.scanIndex()
	if err != nil {
		return t.fail("verify", err)
	}
	if t.index == nil {
		return nil
	}
	if live := t.index.Snapshot(); !maps.Equal(live, entries) {
		t.logger.Warn("index mismatch", "indexed", len(live), "scanned", len(entries))
		return t.fail("verify", ErrIndexMismatch)
	}
	return nil
}

// Flush writes the index file now.
func (t *Table[R]) Flush() error {
	if t.index == nil || t.closed {
		return nil
	}
	return t.fail("flush", t.index.Flush())
}

// ExportJSON writes every row as one JSON object per line, keyed by column name.
// A nil c selects codec.Default.
func (t *Table[R]) ExportJSON(w io.Writer, c codec.Codec) error {
	cols := t.schema.Columns()
	lw := codec.NewLineWriter(w, c)
	obj := make(map[string]field.Value, len(cols))
	for row, err := range t.All() {
		if err != nil {
			return err
		}
		for _, col := range cols {
			obj[col.Name], _ = t.schema.Get(row, col.Name)
		}
		if err := lw.Write(obj); err != nil {
			return t.fail("export", err)
		}
	}
	return nil
}

// Snapshot returns a copy of the raw row file.
func (t *Table[R]) Snapshot() ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, t.fail("snapshot", err)
	}
	b, err := t.store.Snapshot()
	return b, t.fail("snapshot", err)
}

// Close dumps the index one last time and releases both files.
// Closing a closed table is a no-op.
func (t *Table[R]) Close() error {
	if t == nil || t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	if t.index != nil {
		errs = append(errs, t.index.Close())
	}
	errs = append(errs, t.store.Close())
	return t.fail("close", errors.Join(errs...))
}

// Size returns the size of the row file in bytes.
func (t *Table[R]) Size() int64 { return t.store.Size() }
