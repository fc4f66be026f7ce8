package schema

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/versebase/field"
)

// ErrInvalidSchema is returned by Define for an unusable column list.
var ErrInvalidSchema = errors.New("invalid schema")

// Column is one named, typed column of a row type.
type Column struct {
	Name string
	Kind field.Kind
}

// Field is the serialized form of one column of one row.
type Field struct {
	Name string
	Data []byte
}

// Schema is the per-row-type capability consumed by a table.
//
// Columns is fixed for the lifetime of the program and Columns()[0] is the
// Int32 primary key. Encode returns one Field per column in Columns order and
// Decode accepts the same shape.
type Schema[R any] interface {
	Name() string
	Columns() []Column
	ID(row R) int32
	Get(row R, name string) (field.Value, bool)
	Encode(row R) []Field
	Decode(fields []Field) R
}

// Binder connects one column to a struct field of R.
type Binder[R any] struct {
	col Column
	get func(*R) field.Value
	set func(*R, []byte)
}

// Column returns the column the binder describes.
func (b Binder[R]) Column() Column { return b.col }

// Int32 binds an Int32 column.
func Int32[R any](name string, ref func(*R) *int32) Binder[R] {
	return Binder[R]{
		col: Column{Name: name, Kind: field.KindInt32},
		get: func(r *R) field.Value { return field.Int32(*ref(r)) },
		set: func(r *R, b []byte) { *ref(r) = field.DecodeInt32(b) },
	}
}

// String binds a String column.
func String[R any](name string, ref func(*R) *string) Binder[R] {
	return Binder[R]{
		col: Column{Name: name, Kind: field.KindString},
		get: func(r *R) field.Value { return field.String(*ref(r)) },
		set: func(r *R, b []byte) { *ref(r) = field.DecodeString(b) },
	}
}

// Timestamp binds a Timestamp column.
func Timestamp[R any](name string, ref func(*R) *time.Time) Binder[R] {
	return Binder[R]{
		col: Column{Name: name, Kind: field.KindTimestamp},
		get: func(r *R) field.Value { return field.Timestamp(*ref(r)) },
		set: func(r *R, b []byte) { *ref(r) = field.DecodeTimestamp(b) },
	}
}

// Definition is a Schema assembled from binders.
type Definition[R any] struct {
	name    string
	binders []Binder[R]
	columns []Column
	byName  map[string]int
}

var _ Schema[struct{}] = (*Definition[struct{}])(nil)

// Define registers the columns of R under the table name.
func Define[R any](name string, binders ...Binder[R]) (*Definition[R], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidSchema)
	}
	if len(binders) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrInvalidSchema, name)
	}
	if binders[0].col.Kind != field.KindInt32 {
		return nil, fmt.Errorf("%w: %s: first column %q must be Int32, got %s",
			ErrInvalidSchema, name, binders[0].col.Name, binders[0].col.Kind)
	}

	d := &Definition[R]{
		name:    name,
		binders: binders,
		columns: make([]Column, len(binders)),
		byName:  make(map[string]int, len(binders)),
	}
	for i, b := range binders {
		if b.col.Name == "" || b.get == nil {
			return nil, fmt.Errorf("%w: %s: column %d is unbound", ErrInvalidSchema, name, i)
		}
		if _, dup := d.byName[b.col.Name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidSchema, name, b.col.Name)
		}
		d.byName[b.col.Name] = i
		d.columns[i] = b.col
	}
	return d, nil
}

// MustDefine is like Define but panics on error.
func MustDefine[R any](name string, binders ...Binder[R]) *Definition[R] {
	d, err := Define(name, binders...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the table name.
func (d *Definition[R]) Name() string { return d.name }

// Columns returns a copy of the ordered column list.
func (d *Definition[R]) Columns() []Column {
	return append([]Column(nil), d.columns...)
}

// ID returns the primary key of row.
func (d *Definition[R]) ID(row R) int32 {
	id, _ := d.binders[0].get(&row).AsInt32()
	return id
}

// Get returns the value of the named column.
func (d *Definition[R]) Get(row R, name string) (field.Value, bool) {
	i, ok := d.byName[name]
	if !ok {
		return field.Value{}, false
	}
	return d.binders[i].get(&row), true
}

// Encode serializes row in column order.
func (d *Definition[R]) Encode(row R) []Field {
	out := make([]Field, len(d.binders))
	for i, b := range d.binders {
		out[i] = Field{Name: b.col.Name, Data: field.Encode(b.get(&row))}
	}
	return out
}

// Decode builds a row from serialized fields.
//
// Fields are matched by position. Missing trailing fields decode from empty
// input (zero values); surplus fields are ignored.
func (d *Definition[R]) Decode(fields []Field) R {
	var row R
	for i, b := range d.binders {
		var data []byte
		if i < len(fields) {
			data = fields[i].Data
		}
		b.set(&row, data)
	}
	return row
}

// ColumnNames returns the names of s's columns in order.
func ColumnNames[R any](s Schema[R]) []string {
	cols := s.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Lookup returns the column with the given name.
func Lookup[R any](s Schema[R], name string) (Column, bool) {
	for _, c := range s.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
