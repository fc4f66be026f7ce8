package versebase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/versebase/archive"
	"github.com/hupe1980/versebase/blobstore"
	vfs "github.com/hupe1980/versebase/internal/fs"
	"github.com/hupe1980/versebase/resource"
	"github.com/hupe1980/versebase/schema"
	"golang.org/x/sync/errgroup"
)

// File name extensions inside a database directory and a backup store.
const (
	TableExt   = ".tbl"
	IndexExt   = ".idx"
	ArchiveExt = ".vbar"
)

// managedTable is the type-erased view of a *Table[R] the database keeps.
type managedTable interface {
	Name() string
	Path() string
	Size() int64
	Verify() error
	Snapshot() ([]byte, error)
	Close() error
}

// Database is a directory of tables. Table name lives at name.tbl with its
// index at name.idx.
//
// Opening and closing tables is safe for concurrent use. The tables themselves
// are not, and must not be used while Verify or Backup runs.
type Database struct {
	dir    string
	opts   dbOptions
	fs     vfs.FileSystem
	logger *Logger

	mu     sync.Mutex
	tables map[string]managedTable
	closed bool
}

// OpenDatabase opens the database in dir, creating the directory if needed.
func OpenDatabase(dir string, optFns ...DatabaseOption) (*Database, error) {
	o := applyDatabaseOptions(optFns)
	to := applyOptions(o.tableOpts)

	if err := to.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: "open database", Kind: KindIo, Err: err}
	}
	return &Database{
		dir:    dir,
		opts:   o,
		fs:     to.fs,
		logger: to.logger,
		tables: make(map[string]managedTable),
	}, nil
}

// Dir returns the database directory.
func (db *Database) Dir() string { return db.dir }

// TablePath returns the row file path of table name.
func (db *Database) TablePath(name string) string {
	return filepath.Join(db.dir, name+TableExt)
}

// IndexPath returns the index file path of table name.
func (db *Database) IndexPath(name string) string {
	return filepath.Join(db.dir, name+IndexExt)
}

func validTableName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// OpenTable opens or creates the table for s and registers it with db.
// It fails with ErrTableExists if a table of that name is already open.
func OpenTable[R any](db *Database, s schema.Schema[R], optFns ...Option) (*Table[R], error) {
	name := s.Name()
	if !validTableName(name) {
		return nil, &Error{Op: "open table", Table: name, Kind: KindIo, Err: fmt.Errorf("invalid table name: %w", schema.ErrInvalidSchema)}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, &Error{Op: "open table", Table: name, Kind: KindIo, Err: ErrClosed}
	}
	if _, ok := db.tables[name]; ok {
		return nil, &Error{Op: "open table", Table: name, Kind: KindAlreadyExists, Err: ErrTableExists}
	}

	opts := slices.Clone(db.opts.tableOpts)
	opts = append(opts, optFns...)
	if db.opts.indexes {
		opts = append(opts, WithIndex(db.IndexPath(name)))
	} else {
		opts = append(opts, WithoutIndex())
	}

	t, err := Open(db.TablePath(name), s, opts...)
	if err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}

// Tables returns the names of the open tables, sorted.
func (db *Database) Tables() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sortedNames()
}

func (db *Database) sortedNames() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (db *Database) openTables() []managedTable {
	db.mu.Lock()
	defer db.mu.Unlock()
	tables := make([]managedTable, 0, len(db.tables))
	for _, name := range db.sortedNames() {
		tables = append(tables, db.tables[name])
	}
	return tables
}

// CloseTable closes and unregisters table name. Closing an unknown table is a no-op.
func (db *Database) CloseTable(name string) error {
	db.mu.Lock()
	t, ok := db.tables[name]
	delete(db.tables, name)
	db.mu.Unlock()
	if !ok {
		return nil
	}
	return t.Close()
}

// Close closes every open table.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	var errs []error
	for _, name := range db.sortedNames() {
		errs = append(errs, db.tables[name].Close())
	}
	clear(db.tables)
	return errors.Join(errs...)
}

// Verify checks every open table's index against its row file, several
// tables at a time. All failures are returned joined.
func (db *Database) Verify(ctx context.Context) error {
	tables := db.openTables()
	errs := make([]error, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(db.opts.concurrency)
	for i, t := range tables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[i] = t.Verify()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Backup archives the row file of every open table into store as
// name.vbar. Index files are not backed up; they are rebuilt on open.
func (db *Database) Backup(ctx context.Context, store blobstore.Store) error {
	tables := db.openTables()
	ctrl := resource.NewController(db.opts.resource)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(db.opts.concurrency)
	for _, t := range tables {
		g.Go(func() error {
			return db.backupTable(ctx, store, ctrl, t)
		})
	}
	return g.Wait()
}

func (db *Database) backupTable(ctx context.Context, store blobstore.Store, ctrl *resource.Controller, t managedTable) (err error) {
	name := t.Name()
	var raw, stored int64
	defer func() {
		db.logger.LogBackup(ctx, name, raw, stored, err)
	}()

	if err := ctrl.AcquireWorker(ctx); err != nil {
		return err
	}
	defer ctrl.ReleaseWorker()

	size := t.Size()
	if err := ctrl.AcquireBuffer(ctx, size); err != nil {
		return err
	}
	defer ctrl.ReleaseBuffer(size)

	data, err := t.Snapshot()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	h, n, err := archive.Write(&buf, data, db.opts.compression)
	if err != nil {
		return &Error{Op: "backup", Table: name, Kind: KindIo, Err: err}
	}
	raw, stored = int64(h.RawLen), n

	if err := store.Put(ctx, name+ArchiveExt, resource.NewRateLimitedReader(ctx, &buf, ctrl)); err != nil {
		return &Error{Op: "backup", Table: name, Kind: KindIo, Err: err}
	}
	return nil
}

// Restore replaces the row file of table name with the archive name.vbar
// from store and removes its index file. The table must not be open; the
// next OpenTable rebuilds the index from the restored rows.
func (db *Database) Restore(ctx context.Context, store blobstore.Store, name string) (err error) {
	if !validTableName(name) {
		return &Error{Op: "restore", Table: name, Kind: KindIo, Err: fmt.Errorf("invalid table name: %w", schema.ErrInvalidSchema)}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return &Error{Op: "restore", Table: name, Kind: KindIo, Err: ErrClosed}
	}
	if _, ok := db.tables[name]; ok {
		return &Error{Op: "restore", Table: name, Kind: KindAlreadyExists, Err: ErrTableExists}
	}

	var restored int64
	defer func() {
		db.logger.LogRestore(ctx, name, restored, err)
	}()

	ctrl := resource.NewController(db.opts.resource)
	rc, err := store.Open(ctx, name+ArchiveExt)
	if err != nil {
		return wrapError("restore", name, err)
	}
	defer rc.Close()

	raw, _, err := archive.Read(resource.NewRateLimitedReader(ctx, rc, ctrl))
	if err != nil {
		return wrapError("restore", name, err)
	}

	if err := vfs.ReplaceFile(db.fs, db.TablePath(name), ".restore", raw); err != nil {
		return wrapError("restore", name, err)
	}
	if err := db.fs.Remove(db.IndexPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapError("restore", name, err)
	}
	restored = int64(len(raw))
	return nil
}

// RestoreAll restores every archive found in store and returns the table names.
func (db *Database) RestoreAll(ctx context.Context, store blobstore.Store) ([]string, error) {
	blobs, err := store.List(ctx, "")
	if err != nil {
		return nil, &Error{Op: "restore", Kind: KindIo, Err: err}
	}
	var names []string
	for _, blob := range blobs {
		name, ok := strings.CutSuffix(blob, ArchiveExt)
		if !ok || !validTableName(name) {
			continue
		}
		if err := db.Restore(ctx, store, name); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}
