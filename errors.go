package versebase

import (
	"errors"
	"fmt"

	"github.com/hupe1980/versebase/field"
	"github.com/hupe1980/versebase/internal/rowstore"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota
	KindIo
	KindParse
	KindFilePointerCorrupt
	KindAlreadyExists
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindIo:
		return "io error"
	case KindParse:
		return "parsing error"
	case KindFilePointerCorrupt:
		return "file pointer is corrupt"
	case KindAlreadyExists:
		return "already exists"
	case KindNotFound:
		return "record not found"
	default:
		return "none"
	}
}

var (
	// ErrNotFound is returned when no row carries the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrFilePointerCorrupt is returned when a read does not start on a row
	// boundary or the row file ends inside a row.
	ErrFilePointerCorrupt = rowstore.ErrFilePointerCorrupt

	// ErrDelimiterInPayload is returned by Create when an encoded field would
	// be mistaken for a delimiter on read.
	ErrDelimiterInPayload = rowstore.ErrDelimiterInPayload

	// ErrParse is returned for text that cannot be parsed into a field value.
	ErrParse = errors.New("parsing error")

	// ErrIndexMismatch is returned when the primary index disagrees with the row file.
	ErrIndexMismatch = errors.New("index does not match row file")

	// ErrTableExists is returned by OpenTable when the table is already open.
	ErrTableExists = errors.New("table already open")

	// ErrClosed is returned by operations on a closed table or database.
	ErrClosed = errors.New("closed")
)

// Error describes a failed table operation.
//
// The underlying error can be matched with errors.Is against the sentinels above.
type Error struct {
	Op    string
	Table string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Errors that match none of the sentinels are Io.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	var pe *field.ParseError
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrFilePointerCorrupt):
		return KindFilePointerCorrupt
	case errors.Is(err, ErrParse), errors.As(err, &pe):
		return KindParse
	default:
		return KindIo
	}
}

func wrapError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Table: table, Kind: classify(err), Err: err}
}

// ParseID parses a decimal primary key.
func ParseID(s string) (int32, error) {
	v, err := field.Parse(field.KindInt32, s)
	if err != nil {
		return 0, &Error{Op: "parse id", Kind: KindParse, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	id, _ := v.AsInt32()
	return id, nil
}
