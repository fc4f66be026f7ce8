package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/versebase"
	"github.com/hupe1980/versebase/codec"
	"github.com/hupe1980/versebase/field"
	"github.com/hupe1980/versebase/schema"
)

// view is the untyped face of one table that the shell drives.
type view interface {
	Name() string
	Columns() []schema.Column
	Column(name string) (schema.Column, bool)
	Len() (int, error)
	Get(id int32) (string, error)
	Insert(values map[string]field.Value) (int32, error)
	Update(id int32, values map[string]field.Value) error
	Delete(id int32) error
	Select(filter field.Filter) ([]string, error)
	Dump(w io.Writer, c codec.Codec) error
}

// tableView adapts a typed table to view. describe, when set, appends
// resolved relations to a rendered row.
type tableView[R any] struct {
	table    *versebase.Table[R]
	describe func(row R) string
}

var _ view = (*tableView[Artist])(nil)

func (v *tableView[R]) Name() string { return v.table.Name() }

func (v *tableView[R]) Columns() []schema.Column { return v.table.Schema().Columns() }

func (v *tableView[R]) Column(name string) (schema.Column, bool) {
	return schema.Lookup(v.table.Schema(), name)
}

func (v *tableView[R]) Len() (int, error) { return v.table.Len() }

func (v *tableView[R]) Get(id int32) (string, error) {
	row, err := v.table.Get(id)
	if err != nil {
		return "", err
	}
	return v.render(row), nil
}

func (v *tableView[R]) Insert(values map[string]field.Value) (int32, error) {
	idCol := v.Columns()[0].Name
	if _, ok := values[idCol]; !ok {
		return 0, fmt.Errorf("missing %s", idCol)
	}
	row := v.build(values, nil)
	return v.table.Schema().ID(row), v.table.Create(row)
}

// Update overwrites the named columns of row id and keeps the rest.
func (v *tableView[R]) Update(id int32, values map[string]field.Value) error {
	current, err := v.table.Get(id)
	if err != nil {
		return err
	}
	idCol := v.Columns()[0].Name
	if newID, ok := values[idCol]; ok {
		if n, _ := newID.AsInt32(); n != id {
			return fmt.Errorf("cannot change %s from %d to %d", idCol, id, n)
		}
	}
	return v.table.Update(v.build(values, &current))
}

func (v *tableView[R]) Delete(id int32) error { return v.table.Delete(id) }

func (v *tableView[R]) Select(filter field.Filter) ([]string, error) {
	rows, err := v.table.Select(filter)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = v.render(row)
	}
	return out, nil
}

func (v *tableView[R]) Dump(w io.Writer, c codec.Codec) error {
	return v.table.ExportJSON(w, c)
}

// build assembles a row from values, falling back to base (or zero values)
// for columns that are not given.
func (v *tableView[R]) build(values map[string]field.Value, base *R) R {
	s := v.table.Schema()
	cols := s.Columns()
	fields := make([]schema.Field, len(cols))
	for i, c := range cols {
		val, ok := values[c.Name]
		if !ok && base != nil {
			val, ok = s.Get(*base, c.Name)
		}
		fields[i] = schema.Field{Name: c.Name}
		if ok {
			fields[i].Data = field.Encode(val)
		}
	}
	return s.Decode(fields)
}

func (v *tableView[R]) render(row R) string {
	s := v.table.Schema()
	var sb strings.Builder
	sb.WriteString(s.Name())
	sb.WriteByte('{')
	for i, c := range s.Columns() {
		if i > 0 {
			sb.WriteString(", ")
		}
		val, _ := s.Get(row, c.Name)
		sb.WriteString(c.Name)
		sb.WriteByte('=')
		sb.WriteString(val.String())
	}
	sb.WriteByte('}')
	if v.describe != nil {
		if extra := v.describe(row); extra != "" {
			sb.WriteByte(' ')
			sb.WriteString(extra)
		}
	}
	return sb.String()
}

// parseValues parses name=value arguments against the columns that lookup
// resolves.
func parseValues(lookup func(name string) (schema.Column, bool), args []string) (map[string]field.Value, error) {
	values := make(map[string]field.Value, len(args))
	for _, arg := range args {
		name, text, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected name=value, got %q", versebase.ErrParse, arg)
		}
		col, known := lookup(name)
		if !known {
			return nil, fmt.Errorf("%w: unknown column %q", versebase.ErrParse, name)
		}
		val, err := field.Parse(col.Kind, text)
		if err != nil {
			return nil, err
		}
		values[name] = val
	}
	return values, nil
}
