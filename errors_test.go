package versebase

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/hupe1980/versebase/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("id 3: %w", ErrNotFound), KindNotFound},
		{"already exists", ErrAlreadyExists, KindAlreadyExists},
		{"corrupt", fmt.Errorf("read: %w", ErrFilePointerCorrupt), KindFilePointerCorrupt},
		{"parse sentinel", ErrParse, KindParse},
		{"parse error", &field.ParseError{Kind: field.KindInt32, Text: "x", Err: errors.New("bad")}, KindParse},
		{"other", io.ErrUnexpectedEOF, KindIo},
		{"typed", &Error{Op: "get", Kind: KindNotFound, Err: errors.New("x")}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "io error", KindIo.String())
	assert.Equal(t, "parsing error", KindParse.String())
	assert.Equal(t, "file pointer is corrupt", KindFilePointerCorrupt.String())
	assert.Equal(t, "already exists", KindAlreadyExists.String())
	assert.Equal(t, "record not found", KindNotFound.String())
}

func TestError(t *testing.T) {
	err := wrapError("delete", "songs", fmt.Errorf("id 4: %w", ErrNotFound))
	assert.EqualError(t, err, "delete songs: id 4: record not found")
	assert.ErrorIs(t, err, ErrNotFound)

	// Wrapping twice keeps the innermost operation.
	again := wrapError("update", "songs", err)
	assert.Same(t, err, again)

	assert.NoError(t, wrapError("get", "songs", nil))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int32(42), id)

	id, err = ParseID("-7")
	require.NoError(t, err)
	assert.Equal(t, int32(-7), id)

	for _, bad := range []string{"abc", "", "1.5", "4294967296"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrParse, bad)
		assert.Equal(t, KindParse, KindOf(err), bad)
	}
}
