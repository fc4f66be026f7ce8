package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/versebase"
	"github.com/hupe1980/versebase/codec"
	"github.com/hupe1980/versebase/field"
	"github.com/hupe1980/versebase/schema"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  tables                      list tables and row counts
  get <table> <id>            print one row
  insert <table> k=v...       create a row; id is required
  update <table> id=N k=v...  overwrite the given columns of row N
  delete <table> <id>         delete one row
  select <table> [k=v...]     print rows matching every pair
  dump <table>                print all rows as JSON lines
  verify                      check every index against its row file
  help                        show this text
  quit                        leave the shell
values: strings may be quoted ("Club Foot"), timestamps are RFC 3339`

// playground holds the music tables of one database.
type playground struct {
	db    *versebase.Database
	views map[string]view
	// codec encodes dump output.
	codec codec.Codec
	names []string

	artists *versebase.Table[Artist]
}

// openPlayground opens every music table in db. metrics supplies the
// collector for a table name and may be nil.
func openPlayground(db *versebase.Database, metrics func(table string) versebase.MetricsCollector) (*playground, error) {
	p := &playground{db: db, views: make(map[string]view), codec: codec.Default}

	if _, err := register(p, userSchema, metrics); err != nil {
		return nil, err
	}
	artists, err := register(p, artistSchema, metrics)
	if err != nil {
		return nil, err
	}
	p.artists = artists.table
	songs, err := register(p, songSchema, metrics)
	if err != nil {
		return nil, err
	}
	songs.describe = p.describeSong
	if _, err := register(p, lyricSchema, metrics); err != nil {
		return nil, err
	}
	if _, err := register(p, likedSongSchema, metrics); err != nil {
		return nil, err
	}
	return p, nil
}

func register[R any](p *playground, s schema.Schema[R], metrics func(string) versebase.MetricsCollector) (*tableView[R], error) {
	var opts []versebase.Option
	if metrics != nil {
		opts = append(opts, versebase.WithMetricsCollector(metrics(s.Name())))
	}
	t, err := versebase.OpenTable(p.db, s, opts...)
	if err != nil {
		return nil, err
	}
	v := &tableView[R]{table: t}
	p.views[s.Name()] = v
	p.names = append(p.names, s.Name())
	return v, nil
}

func (p *playground) describeSong(s Song) string {
	a, err := s.Artist(p.artists)
	if err != nil {
		if versebase.KindOf(err) == versebase.KindNotFound {
			return "artist=<missing>"
		}
		return fmt.Sprintf("artist=<%v>", err)
	}
	return "artist=" + field.String(a.Name).String()
}

func (p *playground) view(name string) (view, error) {
	v, ok := p.views[name]
	if !ok {
		return nil, fmt.Errorf("unknown table %q (have %s)", name, strings.Join(p.names, ", "))
	}
	return v, nil
}

// run reads commands from r until EOF or quit. Command errors are printed
// and do not stop the shell.
func (p *playground) run(ctx context.Context, r io.Reader, w io.Writer, prompt bool) error {
	sc := bufio.NewScanner(r)
	for {
		if prompt {
			fmt.Fprint(w, "versebase> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		err := p.exec(ctx, sc.Text(), w)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(w, "error (%s): %v\n", versebase.KindOf(err), err)
		}
	}
}

// exec runs a single command line.
func (p *playground) exec(ctx context.Context, line string, w io.Writer) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(w, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "tables":
		for _, name := range p.names {
			n, err := p.views[name].Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\n", name, n)
		}
		return nil
	case "verify":
		if err := p.db.Verify(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "ok")
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("%s: missing table (try help)", cmd)
	}
	v, err := p.view(args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	switch cmd {
	case "get":
		id, err := singleID(cmd, args)
		if err != nil {
			return err
		}
		row, err := v.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, row)
	case "insert":
		values, err := parseValues(v.Column, args)
		if err != nil {
			return err
		}
		id, err := v.Insert(values)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "created %s %d\n", v.Name(), id)
	case "update":
		values, err := parseValues(v.Column, args)
		if err != nil {
			return err
		}
		idCol := v.Columns()[0].Name
		idVal, ok := values[idCol]
		if !ok {
			return fmt.Errorf("update: missing %s", idCol)
		}
		id, _ := idVal.AsInt32()
		if err := v.Update(id, values); err != nil {
			return err
		}
		fmt.Fprintf(w, "updated %s %d\n", v.Name(), id)
	case "delete":
		id, err := singleID(cmd, args)
		if err != nil {
			return err
		}
		if err := v.Delete(id); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s %d\n", v.Name(), id)
	case "select":
		values, err := parseValues(v.Column, args)
		if err != nil {
			return err
		}
		rows, err := v.Select(field.Filter(values))
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Fprintln(w, row)
		}
		fmt.Fprintf(w, "(%d rows)\n", len(rows))
	case "dump":
		return v.Dump(w, p.codec)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func singleID(cmd string, args []string) (int32, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected exactly one id", cmd)
	}
	return versebase.ParseID(args[0])
}

// splitArgs splits line on spaces. Double quotes group words and are
// removed; a backslash inside quotes escapes the next byte.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quoted  bool
		escaped bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
			inArg = true
		case !quoted && (c == ' ' || c == '\t'):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteByte(c)
			inArg = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", versebase.ErrParse)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
