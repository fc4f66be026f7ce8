package codec

import (
	"bufio"
	"fmt"
	"io"
	"iter"
)

// maxLine bounds a single decoded line.
const maxLine = 16 << 20

// LineWriter writes one encoded record per line.
type LineWriter struct {
	w   io.Writer
	c   Codec
	buf []byte
	n   int
}

// NewLineWriter returns a writer encoding with c, or Default if c is nil.
func NewLineWriter(w io.Writer, c Codec) *LineWriter {
	if c == nil {
		c = Default
	}
	return &LineWriter{w: w, c: c}
}

// Write encodes v and writes it followed by a newline.
func (lw *LineWriter) Write(v any) error {
	var err error
	if a, ok := lw.c.(Appender); ok {
		lw.buf, err = a.Append(lw.buf[:0], v)
	} else {
		lw.buf, err = lw.c.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("%s: line %d: %w", lw.c.Name(), lw.n+1, err)
	}
	lw.buf = append(lw.buf, '\n')
	if _, err := lw.w.Write(lw.buf); err != nil {
		return err
	}
	lw.n++
	return nil
}

// Lines returns the number of records written.
func (lw *LineWriter) Lines() int { return lw.n }

// ReadLines decodes every non-empty line of r into a fresh T.
// Iteration stops after the first error, which is yielded.
func ReadLines[T any](r io.Reader, c Codec) iter.Seq2[T, error] {
	if c == nil {
		c = Default
	}
	return func(yield func(T, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxLine)
		line := 0
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			var v T
			if err := c.Unmarshal(sc.Bytes(), &v); err != nil {
				yield(v, fmt.Errorf("%s: line %d: %w", c.Name(), line, err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}
