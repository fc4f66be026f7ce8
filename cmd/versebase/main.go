// Command versebase is an interactive playground over a small music
// database: users, artists, songs, lyrics and liked songs.
//
//	versebase --data-dir ./data shell
//	versebase --data-dir ./data backup --dir ./backups
//	versebase --data-dir ./data restore --s3-bucket my-bucket
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/versebase"
	"github.com/hupe1980/versebase/archive"
	"github.com/hupe1980/versebase/codec"
	"github.com/hupe1980/versebase/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/alecthomas/kingpin.v2"
)

// cli holds the parsed command line.
type cli struct {
	command string

	dataDir     string
	logLevel    string
	logJSON     bool
	logOut      io.Writer
	jsonCodec   string
	metricsAddr string
	noIndex     bool

	compression string
	ioLimit     int64
	target      target

	tables []string
}

func newApp(c *cli) *kingpin.Application {
	app := kingpin.New("versebase", "A playground over a versebase music database.")
	app.HelpFlag.Short('h')

	app.Flag("data-dir", "database directory").Short('d').Default("data").StringVar(&c.dataDir)
	app.Flag("log-level", "log level").Default("warn").EnumVar(&c.logLevel, "debug", "info", "warn", "error")
	app.Flag("log-json", "log as JSON instead of text").BoolVar(&c.logJSON)
	app.Flag("json-codec", "codec for dump output").Default(codec.Default.Name()).EnumVar(&c.jsonCodec, codec.GoJSON{}.Name(), codec.StdJSON{}.Name())
	app.Flag("metrics-addr", "serve Prometheus metrics on this address, e.g. :9090").StringVar(&c.metricsAddr)
	app.Flag("no-index", "scan row files instead of keeping primary key indexes").BoolVar(&c.noIndex)

	app.Command("shell", "interactive shell").Default()

	backup := app.Command("backup", "archive every table into a blob store")
	backup.Flag("compression", "archive compression").Default("zstd").EnumVar(&c.compression, "none", "lz4", "zstd")
	backup.Flag("io-limit", "throughput limit in bytes per second, 0 for none").Default("0").Int64Var(&c.ioLimit)
	c.target.register(backup)

	restore := app.Command("restore", "restore tables from a blob store")
	restore.Flag("table", "table to restore; repeatable, default all").StringsVar(&c.tables)
	restore.Flag("io-limit", "throughput limit in bytes per second, 0 for none").Default("0").Int64Var(&c.ioLimit)
	c.target.register(restore)

	return app
}

func parseArgs(args []string) (*cli, error) {
	c := &cli{logOut: os.Stderr}
	cmd, err := newApp(c).Parse(args)
	if err != nil {
		return nil, err
	}
	c.command = cmd
	return c, nil
}

// logOption configures table logging from the log flags. Text logs go to
// stderr; JSON logs go to logOut.
func (c *cli) logOption() (versebase.Option, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, err
	}
	if !c.logJSON {
		return versebase.WithLogLevel(level), nil
	}
	out := c.logOut
	if out == nil {
		out = os.Stderr
	}
	return versebase.WithLogger(versebase.NewLogger(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))), nil
}

func (c *cli) databaseOptions() ([]versebase.DatabaseOption, error) {
	logOpt, err := c.logOption()
	if err != nil {
		return nil, err
	}
	opts := []versebase.DatabaseOption{
		versebase.WithIndexes(!c.noIndex),
		versebase.WithTableOptions(logOpt),
		versebase.WithResourceConfig(resource.Config{IOLimitBytesPerSec: c.ioLimit}),
	}
	if c.compression != "" {
		comp, err := archive.ParseCompression(c.compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, versebase.WithCompression(comp))
	}
	return opts, nil
}

func main() {
	c, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "versebase: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli, in io.Reader, out io.Writer) (err error) {
	opts, err := c.databaseOptions()
	if err != nil {
		return err
	}
	db, err := versebase.OpenDatabase(c.dataDir, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()

	switch c.command {
	case "backup":
		return runBackup(ctx, c, db, out)
	case "restore":
		return runRestore(ctx, c, db, out)
	default:
		return runShell(ctx, c, db, in, out)
	}
}

func runShell(ctx context.Context, c *cli, db *versebase.Database, in io.Reader, out io.Writer) error {
	var metrics func(string) versebase.MetricsCollector
	if c.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		pm := newPromMetrics(reg)
		metrics = pm.forTable
		srv := serveMetrics(c.metricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	p, err := openPlayground(db, metrics)
	if err != nil {
		return err
	}
	if c.jsonCodec != "" {
		cd, ok := codec.ByName(c.jsonCodec)
		if !ok {
			return fmt.Errorf("%w: unknown json codec %q", versebase.ErrParse, c.jsonCodec)
		}
		p.codec = cd
	}
	fmt.Fprintf(out, "versebase playground in %s; type help\n", db.Dir())
	return p.run(ctx, in, out, true)
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	return srv
}

func runBackup(ctx context.Context, c *cli, db *versebase.Database, out io.Writer) error {
	store, err := c.target.open(ctx, true)
	if err != nil {
		return err
	}
	if _, err := openPlayground(db, nil); err != nil {
		return err
	}
	if err := db.Verify(ctx); err != nil {
		return err
	}
	if err := db.Backup(ctx, store); err != nil {
		return err
	}
	for _, name := range db.Tables() {
		fmt.Fprintf(out, "backed up %s\n", name)
	}
	return nil
}

func runRestore(ctx context.Context, c *cli, db *versebase.Database, out io.Writer) error {
	store, err := c.target.open(ctx, false)
	if err != nil {
		return err
	}
	names := c.tables
	if len(names) == 0 {
		names, err = db.RestoreAll(ctx, store)
		if err != nil {
			return err
		}
	} else {
		for _, name := range names {
			if err := db.Restore(ctx, store, name); err != nil {
				return err
			}
		}
	}
	for _, name := range names {
		fmt.Fprintf(out, "restored %s\n", name)
	}
	// Reopening rebuilds the indexes and checks the restored rows.
	if _, err := openPlayground(db, nil); err != nil {
		return err
	}
	return db.Verify(ctx)
}
