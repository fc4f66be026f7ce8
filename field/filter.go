package field

import (
	"maps"
	"slices"
	"strings"
)

// Filter is a set of exact-match predicates keyed by field name.
//
// A row matches when, for every entry, the row's value for that field is
// Equal to the entry's value. Fields not named in the filter are ignored.
// A nil or empty Filter matches every row.
type Filter map[string]Value

// Eq returns a filter with the single predicate name == v.
func Eq(name string, v Value) Filter {
	return Filter{name: v}
}

// And returns a copy of f extended with name == v.
func (f Filter) And(name string, v Value) Filter {
	out := make(Filter, len(f)+1)
	maps.Copy(out, f)
	out[name] = v
	return out
}

// Matches reports whether the row exposed through get satisfies every predicate.
// A field that get cannot resolve never matches.
func (f Filter) Matches(get func(name string) (Value, bool)) bool {
	for name, want := range f {
		got, ok := get(name)
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// String renders the filter with predicates in name order.
func (f Filter) String() string {
	if len(f) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range slices.Sorted(maps.Keys(f)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(f[name].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
